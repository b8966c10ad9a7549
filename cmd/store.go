package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/filings-cli/internal/filestore"
	"github.com/sells-group/filings-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "filings.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initFilestore() *filestore.Store {
	return filestore.New(cfg.Files.Dir)
}
