package xbrl

var (
	tagContext    = JoinTag(InstanceNS, "context")
	tagEntity     = JoinTag(InstanceNS, "entity")
	tagIdentifier = JoinTag(InstanceNS, "identifier")
	tagPeriod     = JoinTag(InstanceNS, "period")
	tagStartDate  = JoinTag(InstanceNS, "startDate")
	tagEndDate    = JoinTag(InstanceNS, "endDate")
	tagInstant    = JoinTag(InstanceNS, "instant")
)

// extractContexts scans the whole document for instance-namespace context
// elements. Contexts without an id attribute are dropped silently; order
// follows the document. When two contexts share an id the first occurrence
// wins, mirroring the fact-lookup convention, so a sloppy document still
// ingests.
func extractContexts(root *element) []ParsedContext {
	var contexts []ParsedContext
	seen := make(map[string]bool)
	root.walk(func(el *element) {
		if el.tag != tagContext {
			return
		}
		contextID := el.attr("id")
		if contextID == "" || seen[contextID] {
			return
		}
		seen[contextID] = true

		ctx := ParsedContext{
			ContextID:  contextID,
			PeriodType: string(periodUnknown),
			Ordinal:    len(contexts),
		}

		if entity := el.findChild(tagEntity); entity != nil {
			if ident := entity.findChild(tagIdentifier); ident != nil {
				ctx.EntityIdentifier = ident.trimmedText()
			}
		}

		if period := el.findChild(tagPeriod); period != nil {
			start := period.findChild(tagStartDate)
			end := period.findChild(tagEndDate)
			instant := period.findChild(tagInstant)
			switch {
			case start != nil && end != nil:
				ctx.StartDate = ParseDate(start.text)
				ctx.EndDate = ParseDate(end.text)
				ctx.PeriodType = string(periodDuration)
			case instant != nil:
				ctx.InstantDate = ParseDate(instant.text)
				ctx.PeriodType = string(periodInstant)
			}
		}

		contexts = append(contexts, ctx)
	})
	return contexts
}

type periodClass string

const (
	periodDuration periodClass = "duration"
	periodInstant  periodClass = "instant"
	periodUnknown  periodClass = "unknown"
)
