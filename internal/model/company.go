package model

import "time"

// Company is a reporting entity keyed by its exchange ticker.
type Company struct {
	ID           string    `json:"id"`
	Ticker       string    `json:"ticker"`
	Name         string    `json:"name"`
	EntityCode   string    `json:"entity_code"`
	EntityName   string    `json:"entity_name"`
	MainIndustry string    `json:"main_industry"`
	Sector       string    `json:"sector"`
	Subsector    string    `json:"subsector"`
	Industry     string    `json:"industry"`
	Subindustry  string    `json:"subindustry"`
	CreatedAt    time.Time `json:"created_at"`
}

// CompanyField identifies a patchable Company column.
type CompanyField string

const (
	CompanyFieldName         CompanyField = "name"
	CompanyFieldEntityCode   CompanyField = "entity_code"
	CompanyFieldEntityName   CompanyField = "entity_name"
	CompanyFieldMainIndustry CompanyField = "main_industry"
	CompanyFieldSector       CompanyField = "sector"
	CompanyFieldSubsector    CompanyField = "subsector"
	CompanyFieldIndustry     CompanyField = "industry"
	CompanyFieldSubindustry  CompanyField = "subindustry"
)

// CompanyPatch maps fields to replacement values. Only fields present in the
// map are written; a later filing never blanks out data an earlier one set.
type CompanyPatch map[CompanyField]string

// DiffCompany builds the patch to apply when a new filing carries metadata
// for an already-known company. A field is included only when the incoming
// value is non-empty and differs from what is stored (last write wins per
// field). The display name follows the entity name.
func DiffCompany(existing Company, incoming Company) CompanyPatch {
	patch := CompanyPatch{}
	add := func(field CompanyField, current, next string) {
		if next != "" && next != current {
			patch[field] = next
		}
	}
	add(CompanyFieldEntityCode, existing.EntityCode, incoming.EntityCode)
	add(CompanyFieldEntityName, existing.EntityName, incoming.EntityName)
	add(CompanyFieldName, existing.Name, incoming.EntityName)
	add(CompanyFieldMainIndustry, existing.MainIndustry, incoming.MainIndustry)
	add(CompanyFieldSector, existing.Sector, incoming.Sector)
	add(CompanyFieldSubsector, existing.Subsector, incoming.Subsector)
	add(CompanyFieldIndustry, existing.Industry, incoming.Industry)
	add(CompanyFieldSubindustry, existing.Subindustry, incoming.Subindustry)
	return patch
}
