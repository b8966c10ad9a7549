// Package xbrl implements best-effort structural extraction of XBRL
// instance documents: reporting contexts, reported facts, and inferred
// period and entity metadata. It does not validate taxonomies, units, or
// calculation linkbases.
package xbrl

import (
	"io"
	"time"
)

// InstanceNS is the XBRL 2003 instance namespace carrying context, entity,
// period and identifier elements.
const InstanceNS = "http://www.xbrl.org/2003/instance"

// ParsedContext is one reporting context in document order.
type ParsedContext struct {
	ContextID        string
	EntityIdentifier string
	StartDate        *time.Time
	EndDate          *time.Time
	InstantDate      *time.Time
	PeriodType       string // duration, instant, or unknown
	Ordinal          int    // position within the document
}

// ParsedFact is one reported fact in document order. Value is nil when the
// source element had no text or only whitespace; that is distinct from an
// empty-but-present value upstream of storage.
type ParsedFact struct {
	Name       string
	Namespace  string
	Value      *string
	ContextRef string
	UnitRef    string
	Decimals   string
	Ordinal    int
}

// ParsedResult aggregates everything extracted from one document. It is
// immutable once returned.
type ParsedResult struct {
	Ticker       string
	EntityCode   string
	EntityName   string
	MainIndustry string
	Sector       string
	Subsector    string
	Industry     string
	Subindustry  string
	PeriodLabel  string
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	InstantDate  *time.Time
	Contexts     []ParsedContext
	Facts        []ParsedFact
}

// Parser reads the basic structure of an XBRL instance file. Now supplies
// the processing date used as the last-resort period label; tests inject a
// fixed clock.
type Parser struct {
	Now func() time.Time
}

// New returns a Parser using the wall clock.
func New() *Parser {
	return &Parser{Now: time.Now}
}

// Parse decodes the document and runs all extractors. The only hard failure
// is ErrMalformedDocument for unparseable XML; a well-formed document with
// zero recognizable facts still parses successfully.
func (p *Parser) Parse(r io.Reader) (*ParsedResult, error) {
	root, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}

	contexts := extractContexts(root)
	facts := extractFacts(root)

	result := &ParsedResult{
		Ticker:       inferTicker(contexts),
		EntityCode:   findFactText(root, "EntityCode"),
		EntityName:   findFactText(root, "EntityName"),
		MainIndustry: findFactText(root, "EntityMainIndustry"),
		Sector:       findFactText(root, "Sector"),
		Subsector:    findFactText(root, "Subsector"),
		Industry:     findFactText(root, "Industry"),
		Subindustry:  findFactText(root, "Subindustry"),
		Contexts:     contexts,
		Facts:        facts,
	}

	period := inferPeriod(root, contexts, p.Now)
	result.PeriodStart = period.start
	result.PeriodEnd = period.end
	result.InstantDate = period.instant
	result.PeriodLabel = period.label

	return result, nil
}
