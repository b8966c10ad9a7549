package xbrl

import "strings"

// SplitTag splits a Clark-notation tag ("{namespace}local") into its
// namespace URI and local name. A tag without a namespace yields an empty
// namespace. Any string is valid input.
func SplitTag(tag string) (namespace, local string) {
	if strings.HasPrefix(tag, "{") {
		if i := strings.Index(tag, "}"); i >= 0 {
			return tag[1:i], tag[i+1:]
		}
	}
	return "", tag
}

// JoinTag reconstructs a Clark-notation tag from a namespace and local name.
func JoinTag(namespace, local string) string {
	if namespace == "" {
		return local
	}
	return "{" + namespace + "}" + local
}
