package model

import "time"

// PeriodType classifies an XBRL reporting period.
type PeriodType string

const (
	PeriodDuration PeriodType = "duration"
	PeriodInstant  PeriodType = "instant"
	PeriodUnknown  PeriodType = "unknown"
)

// Filing is one reporting period's submission for a company. At most one
// filing exists per (company, period label); re-ingestion under the
// overwrite policy replaces the whole row together with its contexts and
// facts.
type Filing struct {
	ID             string     `json:"id"`
	CompanyID      string     `json:"company_id"`
	PeriodLabel    string     `json:"period_label"`
	PeriodStart    *time.Time `json:"period_start,omitempty"`
	PeriodEnd      *time.Time `json:"period_end,omitempty"`
	InstantDate    *time.Time `json:"instant_date,omitempty"`
	SourceFilename string     `json:"source_filename"`
	StoredPath     string     `json:"stored_path"`
	UploadedAt     time.Time  `json:"uploaded_at"`
}

// Context is an XBRL reporting context scoped to one filing. Contexts are
// written in bulk at ingestion time and never mutated afterwards.
type Context struct {
	ID               string     `json:"id"`
	FilingID         string     `json:"filing_id"`
	ContextID        string     `json:"context_id"`
	EntityIdentifier string     `json:"entity_identifier"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	InstantDate      *time.Time `json:"instant_date,omitempty"`
	PeriodType       PeriodType `json:"period_type"`
	Ordinal          int        `json:"ordinal"`
}

// Fact is one reported value scoped to a filing. The raw value stays
// unparsed at storage time; numeric interpretation happens at report time.
// ContextRef carries the source document's context reference; ContextRowID
// is the resolved storage link and stays nil when the reference does not
// match any context in the same filing.
type Fact struct {
	ID           string  `json:"id"`
	FilingID     string  `json:"filing_id"`
	ContextRef   string  `json:"context_ref,omitempty"`
	ContextRowID *string `json:"context_row_id,omitempty"`
	Name         string  `json:"name"`
	Namespace    string  `json:"namespace"`
	Value        string  `json:"value"`
	Decimals     string  `json:"decimals"`
	Unit         string  `json:"unit"`
	Ordinal      int     `json:"ordinal"`
}
