package xbrl

import "strings"

// extractFacts iterates the document root's direct children only. Nested
// elements (inside contexts, units) are intentionally excluded. A child is
// a reported fact iff it is outside the instance namespace and carries a
// contextRef attribute.
func extractFacts(root *element) []ParsedFact {
	var facts []ParsedFact
	for _, el := range root.children {
		namespace, local := SplitTag(el.tag)
		if namespace == InstanceNS {
			continue
		}
		if _, ok := el.attrs["contextRef"]; !ok {
			continue
		}

		var value *string
		if text := el.trimmedText(); text != "" {
			value = &text
		}

		facts = append(facts, ParsedFact{
			Name:       local,
			Namespace:  namespace,
			Value:      value,
			ContextRef: el.attr("contextRef"),
			UnitRef:    el.attr("unitRef"),
			Decimals:   el.attr("decimals"),
			Ordinal:    len(facts),
		})
	}
	return facts
}

// findFactText returns the first non-empty text of any element whose local
// name matches, scanning the full document recursively.
func findFactText(root *element, localName string) string {
	var found string
	root.walk(func(el *element) {
		if found != "" {
			return
		}
		if _, local := SplitTag(el.tag); local != localName {
			return
		}
		if text := strings.TrimSpace(el.text); text != "" {
			found = text
		}
	})
	return found
}
