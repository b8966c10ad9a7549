package xbrl

import (
	"strings"
	"time"
)

// inferTicker derives the entity ticker from the first context carrying a
// non-empty entity identifier: the portion after the last ':', upper-cased.
// Documents with no identified context fall back to the UNKNOWN sentinel.
func inferTicker(contexts []ParsedContext) string {
	for _, ctx := range contexts {
		if ctx.EntityIdentifier == "" {
			continue
		}
		parts := strings.Split(ctx.EntityIdentifier, ":")
		return strings.ToUpper(parts[len(parts)-1])
	}
	return "UNKNOWN"
}

type inferredPeriod struct {
	start   *time.Time
	end     *time.Time
	instant *time.Time
	label   string
}

// inferPeriod resolves the filing period. Explicit document-period facts win;
// otherwise the first duration context supplies start/end and the first
// instant context supplies the instant date. The label falls back to the
// processing date so ingestion never produces a blank period label.
func inferPeriod(root *element, contexts []ParsedContext, now func() time.Time) inferredPeriod {
	p := inferredPeriod{
		end:     findFactDate(root, "DocumentPeriodEndDate"),
		start:   findFactDate(root, "DocumentPeriodStartDate"),
		instant: findFactDate(root, "DocumentPeriodInstantDate"),
	}

	if p.end == nil {
		for _, ctx := range contexts {
			if ctx.PeriodType == string(periodDuration) && ctx.EndDate != nil {
				p.end = ctx.EndDate
				p.start = ctx.StartDate
				break
			}
		}
	}
	if p.instant == nil {
		for _, ctx := range contexts {
			if ctx.PeriodType == string(periodInstant) && ctx.InstantDate != nil {
				p.instant = ctx.InstantDate
				break
			}
		}
	}

	switch {
	case p.end != nil:
		p.label = p.end.Format("2006-01-02")
	case p.instant != nil:
		p.label = p.instant.Format("2006-01-02")
	default:
		p.label = now().Format("2006-01-02")
	}
	return p
}

// findFactDate parses the first matching non-empty element's text as a
// date, scanning the full document recursively. The first match decides:
// if its text is not a parseable date the result is absent.
func findFactDate(root *element, localName string) *time.Time {
	var found *time.Time
	matched := false
	root.walk(func(el *element) {
		if matched {
			return
		}
		if _, local := SplitTag(el.tag); local != localName {
			return
		}
		if el.trimmedText() == "" {
			return
		}
		matched = true
		found = ParseDate(el.text)
	})
	return found
}
