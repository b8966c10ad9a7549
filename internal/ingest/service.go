// Package ingest turns raw XBRL instance documents into stored filings:
// parse, resolve the company, swap the filing row and its contexts and
// facts in one transaction, and keep the raw document on disk.
package ingest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/filings-cli/internal/filestore"
	"github.com/sells-group/filings-cli/internal/model"
	"github.com/sells-group/filings-cli/internal/store"
	"github.com/sells-group/filings-cli/internal/xbrl"
)

// Service wires the parser, the relational store and the document store
// into the ingestion flow.
type Service struct {
	store  store.Store
	files  *filestore.Store
	parser *xbrl.Parser

	// Now stamps UploadedAt; tests pin it.
	Now func() time.Time
}

func NewService(st store.Store, files *filestore.Store, parser *xbrl.Parser) *Service {
	return &Service{store: st, files: files, parser: parser, Now: time.Now}
}

// Result summarizes one successful ingestion.
type Result struct {
	Company      *model.Company
	Filing       *model.Filing
	ContextCount int
	FactCount    int
	Replaced     bool
}

// Ingest processes one document. With overwrite false an existing filing
// for the same company and period fails with store.ErrDuplicateFiling;
// with overwrite true the previous filing, its contexts, its facts and its
// stored document are replaced atomically from the caller's point of view.
func (s *Service) Ingest(ctx context.Context, sourceFilename string, r io.Reader, overwrite bool) (*Result, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", sourceFilename)
	}

	parsed, err := s.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: parse %s", sourceFilename)
	}
	if len(parsed.Facts) == 0 {
		return nil, eris.Wrapf(ErrEmptyFiling, "ingest: %s", sourceFilename)
	}

	company, err := s.resolveCompany(ctx, parsed)
	if err != nil {
		return nil, err
	}

	previous, err := s.store.FindFiling(ctx, company.ID, parsed.PeriodLabel)
	if err != nil {
		return nil, err
	}
	if previous != nil && !overwrite {
		return nil, eris.Wrapf(store.ErrDuplicateFiling, "ingest: %s period %s", company.Ticker, parsed.PeriodLabel)
	}

	storedPath, err := s.files.Save(company.Ticker, parsed.PeriodLabel, sourceFilename, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	filing := model.Filing{
		CompanyID:      company.ID,
		PeriodLabel:    parsed.PeriodLabel,
		PeriodStart:    parsed.PeriodStart,
		PeriodEnd:      parsed.PeriodEnd,
		InstantDate:    parsed.InstantDate,
		SourceFilename: sourceFilename,
		StoredPath:     storedPath,
		UploadedAt:     s.Now().UTC(),
	}
	contexts := buildContexts(parsed.Contexts)
	facts := buildFacts(parsed.Facts)

	created, err := s.store.ReplaceFiling(ctx, filing, contexts, facts)
	if err != nil {
		// The document on disk is orphaned if the swap failed; clean it up.
		if rmErr := s.files.Remove(storedPath); rmErr != nil {
			zap.S().Warnw("orphaned document cleanup failed", "path", storedPath, "error", rmErr)
		}
		return nil, err
	}

	// Only after the database swap commits is the old document unreachable.
	if previous != nil && previous.StoredPath != "" && previous.StoredPath != storedPath {
		if rmErr := s.files.Remove(previous.StoredPath); rmErr != nil {
			zap.S().Warnw("stale document cleanup failed", "path", previous.StoredPath, "error", rmErr)
		}
	}

	zap.S().Infow("filing ingested",
		"ticker", company.Ticker,
		"period", created.PeriodLabel,
		"contexts", len(contexts),
		"facts", len(facts),
		"replaced", previous != nil,
	)
	return &Result{
		Company:      company,
		Filing:       created,
		ContextCount: len(contexts),
		FactCount:    len(facts),
		Replaced:     previous != nil,
	}, nil
}

// resolveCompany finds or creates the company for a parsed document and
// folds in any new metadata the document carries. The declared entity code
// is the authoritative ticker; the identifier-derived one is the fallback.
func (s *Service) resolveCompany(ctx context.Context, parsed *xbrl.ParsedResult) (*model.Company, error) {
	ticker := parsed.Ticker
	if parsed.EntityCode != "" {
		ticker = parsed.EntityCode
	}
	ticker = strings.ToUpper(ticker)

	incoming := model.Company{
		Ticker:       ticker,
		Name:         parsed.EntityName,
		EntityCode:   parsed.EntityCode,
		EntityName:   parsed.EntityName,
		MainIndustry: parsed.MainIndustry,
		Sector:       parsed.Sector,
		Subsector:    parsed.Subsector,
		Industry:     parsed.Industry,
		Subindustry:  parsed.Subindustry,
	}

	existing, err := s.store.GetCompanyByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// Metadata-poor documents still get a presentable company row.
		if incoming.Name == "" {
			incoming.Name = ticker
		}
		if incoming.EntityCode == "" {
			incoming.EntityCode = ticker
		}
		return s.store.CreateCompany(ctx, incoming)
	}

	patch := model.DiffCompany(*existing, incoming)
	if len(patch) > 0 {
		if err := s.store.PatchCompany(ctx, existing.ID, patch); err != nil {
			return nil, err
		}
		for field, value := range patch {
			applyCompanyField(existing, field, value)
		}
	}
	return existing, nil
}

func applyCompanyField(c *model.Company, field model.CompanyField, value string) {
	switch field {
	case model.CompanyFieldName:
		c.Name = value
	case model.CompanyFieldEntityCode:
		c.EntityCode = value
	case model.CompanyFieldEntityName:
		c.EntityName = value
	case model.CompanyFieldMainIndustry:
		c.MainIndustry = value
	case model.CompanyFieldSector:
		c.Sector = value
	case model.CompanyFieldSubsector:
		c.Subsector = value
	case model.CompanyFieldIndustry:
		c.Industry = value
	case model.CompanyFieldSubindustry:
		c.Subindustry = value
	}
}

func buildContexts(parsed []xbrl.ParsedContext) []model.Context {
	contexts := make([]model.Context, 0, len(parsed))
	for _, c := range parsed {
		contexts = append(contexts, model.Context{
			ContextID:        c.ContextID,
			EntityIdentifier: c.EntityIdentifier,
			StartDate:        c.StartDate,
			EndDate:          c.EndDate,
			InstantDate:      c.InstantDate,
			PeriodType:       model.PeriodType(c.PeriodType),
			Ordinal:          c.Ordinal,
		})
	}
	return contexts
}

func buildFacts(parsed []xbrl.ParsedFact) []model.Fact {
	facts := make([]model.Fact, 0, len(parsed))
	for _, f := range parsed {
		value := ""
		if f.Value != nil {
			value = *f.Value
		}
		facts = append(facts, model.Fact{
			ContextRef: f.ContextRef,
			Name:       f.Name,
			Namespace:  f.Namespace,
			Value:      value,
			Decimals:   f.Decimals,
			Unit:       f.UnitRef,
			Ordinal:    f.Ordinal,
		})
	}
	return facts
}
