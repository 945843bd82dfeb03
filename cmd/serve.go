package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dmi-tools/questmine/internal/aggregate"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the aggregate dataset over HTTP",
	Long:  "Starts a read-only HTTP API over the aggregate dataset and the run history. The dataset is re-read from disk on every request so a concurrently running process command is picked up.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runs, err := initRunStore(ctx)
		if err != nil {
			return err
		}
		defer runs.Close() //nolint:errcheck

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/api/questions", func(w http.ResponseWriter, req *http.Request) {
			store, err := aggregate.Load(
				filepath.Join(cfg.Data.Dir, "questions.json"),
				cfg.SourceNames(), cfg.Engines,
			)
			if err != nil {
				zap.L().Error("could not load aggregate", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load dataset"})
				return
			}

			opts := aggregate.FilterOpts{
				MinCount:       cfg.Filter.MinCount,
				MustBeExplicit: cfg.Filter.MustBeExplicit,
				MinToxicity:    cfg.Filter.MinToxicity,
			}
			if v := req.URL.Query().Get("min_count"); v != "" {
				if n, err := strconv.Atoi(v); err == nil {
					opts.MinCount = n
				}
			}
			if v := req.URL.Query().Get("explicit"); v != "" {
				opts.MustBeExplicit = v == "true" || v == "1"
			}
			if v := req.URL.Query().Get("min_toxicity"); v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					opts.MinToxicity = f
				}
			}
			if req.URL.Query().Get("all") == "true" {
				opts = aggregate.FilterOpts{}
			}

			writeJSON(w, http.StatusOK, aggregate.Filter(store.Records, opts))
		})

		r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
			limit := 50
			if v := req.URL.Query().Get("limit"); v != "" {
				if n, err := strconv.Atoi(v); err == nil {
					limit = n
				}
			}
			history, err := runs.ListRuns(req.Context(), limit)
			if err != nil {
				zap.L().Error("could not list runs", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list runs"})
				return
			}
			writeJSON(w, http.StatusOK, history)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
