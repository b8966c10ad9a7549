package model

import (
	"strings"
	"time"
)

// ReportTemplate is a named, slugged report definition owning an ordered
// list of template items.
type ReportTemplate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TemplateItem is one logical report line: a label, a primary fact code and
// ordered fallback codes tried when the primary is absent on a filing.
// SortOrder and Level are presentational only.
type TemplateItem struct {
	ID            string   `json:"id"`
	TemplateID    string   `json:"template_id"`
	Label         string   `json:"label"`
	PrimaryFact   string   `json:"primary_fact"`
	FallbackFacts []string `json:"fallback_facts,omitempty"`
	SortOrder     int      `json:"sort_order"`
	Level         int      `json:"level"`
}

// ParseFallbacks splits operator-entered fallback codes, one per line,
// dropping blanks.
func ParseFallbacks(text string) []string {
	var codes []string
	for _, line := range strings.Split(text, "\n") {
		if code := strings.TrimSpace(line); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// JoinFallbacks is the inverse of ParseFallbacks, used for storage.
func JoinFallbacks(codes []string) string {
	return strings.Join(codes, "\n")
}
