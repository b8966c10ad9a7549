package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/filings-cli/internal/ingest"
	"github.com/sells-group/filings-cli/internal/report"
	"github.com/sells-group/filings-cli/internal/store"
	"github.com/sells-group/filings-cli/internal/xbrl"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for uploads and reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		svc := ingest.NewService(st, initFilestore(), xbrl.New())
		maxUpload := int64(cfg.Server.MaxUploadMB) << 20

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		mux.HandleFunc("POST /filings", func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
			if err := r.ParseMultipartForm(maxUpload); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
				return
			}
			file, header, err := r.FormFile("document")
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "document file field is required")
				return
			}
			defer file.Close()

			overwrite := r.FormValue("overwrite") == "true"
			result, err := svc.Ingest(r.Context(), header.Filename, file, overwrite)
			switch {
			case err == nil:
			case eris.Is(err, store.ErrDuplicateFiling):
				writeJSONError(w, http.StatusConflict, "filing already exists for this company and period")
				return
			case eris.Is(err, ingest.ErrEmptyFiling):
				writeJSONError(w, http.StatusUnprocessableEntity, "document contains no facts")
				return
			case eris.Is(err, xbrl.ErrMalformedDocument):
				writeJSONError(w, http.StatusUnprocessableEntity, "document is not well-formed XBRL")
				return
			default:
				zap.L().Error("upload ingest failed", zap.String("file", header.Filename), zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "ingestion failed")
				return
			}

			writeJSON(w, http.StatusCreated, map[string]any{
				"filing":   result.Filing,
				"company":  result.Company,
				"facts":    result.FactCount,
				"contexts": result.ContextCount,
				"replaced": result.Replaced,
			})
		})

		mux.HandleFunc("GET /reports/{slug}", func(w http.ResponseWriter, r *http.Request) {
			ticker := r.URL.Query().Get("ticker")
			if ticker == "" {
				writeJSONError(w, http.StatusBadRequest, "ticker query parameter is required")
				return
			}

			rpt, err := report.Build(r.Context(), st, r.PathValue("slug"),
				ticker, r.URL.Query().Get("period"), r.URL.Query().Get("comparison"))
			if err != nil {
				writeJSONError(w, http.StatusNotFound, eris.Cause(err).Error())
				return
			}
			writeJSON(w, http.StatusOK, rpt)
		})

		mux.HandleFunc("GET /companies", func(w http.ResponseWriter, r *http.Request) {
			companies, err := st.ListCompanies(r.Context())
			if err != nil {
				zap.L().Error("list companies failed", zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "listing failed")
				return
			}
			writeJSON(w, http.StatusOK, companies)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
