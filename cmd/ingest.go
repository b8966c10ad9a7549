package main

import (
	"os"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/filings-cli/internal/ingest"
	"github.com/sells-group/filings-cli/internal/store"
	"github.com/sells-group/filings-cli/internal/xbrl"
)

var (
	ingestOverwrite   bool
	ingestConcurrency int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest one or more XBRL instance documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := ingest.NewService(st, initFilestore(), xbrl.New())

		concurrency := ingestConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Ingest.Concurrency
		}

		var failed atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, path := range args {
			g.Go(func() error {
				f, err := os.Open(path)
				if err != nil {
					failed.Add(1)
					zap.L().Error("open failed", zap.String("file", path), zap.Error(err))
					return nil
				}
				defer f.Close()

				result, err := svc.Ingest(gctx, f.Name(), f, ingestOverwrite)
				if err != nil {
					failed.Add(1)
					if eris.Is(err, store.ErrDuplicateFiling) {
						zap.L().Warn("filing already exists, use --overwrite to replace",
							zap.String("file", path))
					} else {
						zap.L().Error("ingest failed", zap.String("file", path), zap.Error(err))
					}
					return nil
				}

				zap.L().Info("ingested",
					zap.String("file", path),
					zap.String("ticker", result.Company.Ticker),
					zap.String("period", result.Filing.PeriodLabel),
					zap.Int("facts", result.FactCount),
					zap.Int("contexts", result.ContextCount),
					zap.Bool("replaced", result.Replaced),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if n := failed.Load(); n > 0 {
			return eris.Errorf("%d of %d files failed", n, len(args))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestOverwrite, "overwrite", false, "replace an existing filing for the same company and period")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", 0, "parallel file ingestions (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
