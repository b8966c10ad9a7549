// Package store persists companies, filings and report templates behind a
// driver-neutral interface with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/filings-cli/internal/model"
)

// ErrDuplicateFiling reports that a filing already exists for the same
// (company, period label) pair. The uniqueness constraint is also enforced
// at commit time, so two racing ingestions cannot both win: the loser gets
// this error instead of corrupt data.
var ErrDuplicateFiling = eris.New("store: duplicate filing for company and period")

// Store defines the persistence contract for the filing pipeline and the
// report projection's reads.
type Store interface {
	// Companies
	GetCompanyByTicker(ctx context.Context, ticker string) (*model.Company, error)
	CreateCompany(ctx context.Context, c model.Company) (*model.Company, error)
	PatchCompany(ctx context.Context, id string, patch model.CompanyPatch) error
	ListCompanies(ctx context.Context) ([]model.Company, error)

	// Filings
	FindFiling(ctx context.Context, companyID, periodLabel string) (*model.Filing, error)
	GetFiling(ctx context.Context, id string) (*model.Filing, error)
	ListFilings(ctx context.Context, companyID string) ([]model.Filing, error)
	// ReplaceFiling atomically deletes any existing filing for the same
	// (company, period label), creates the new filing and bulk-creates its
	// contexts and facts, linking each fact to its context by reference.
	// All-or-nothing: any failure rolls the whole transaction back.
	ReplaceFiling(ctx context.Context, filing model.Filing, contexts []model.Context, facts []model.Fact) (*model.Filing, error)
	DeleteFiling(ctx context.Context, id string) error
	ListContexts(ctx context.Context, filingID string) ([]model.Context, error)
	ListFacts(ctx context.Context, filingID string) ([]model.Fact, error)

	// Report templates
	CreateTemplate(ctx context.Context, t model.ReportTemplate) (*model.ReportTemplate, error)
	GetTemplateBySlug(ctx context.Context, slug string) (*model.ReportTemplate, error)
	ListTemplates(ctx context.Context) ([]model.ReportTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
	CreateTemplateItem(ctx context.Context, item model.TemplateItem) (*model.TemplateItem, error)
	UpdateTemplateItem(ctx context.Context, item model.TemplateItem) error
	DeleteTemplateItem(ctx context.Context, id string) error
	ListTemplateItems(ctx context.Context, templateID string) ([]model.TemplateItem, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
