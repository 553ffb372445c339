package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/metrics"
	"github.com/sells-group/matjip/internal/model"
	"github.com/sells-group/matjip/internal/resilience"
	"github.com/sells-group/matjip/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	shutdownTimeout = 15 * time.Second
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the weekly crawl schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCrawl(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		trig := newTrigger(ctx, env.Orchestrator, func(explicit []string) ([]string, error) {
			return resolveRegions(env.Regions, explicit)
		})
		trig.onFinish = func(ctx context.Context, run *model.Run) {
			env.Monitor.Check(ctx, run)
		}

		if cfg.Schedule.Enabled {
			sched, err := newScheduler(cfg.Schedule.Cron, func() {
				regions, err := trig.Start(nil)
				if err != nil {
					zap.L().Warn("scheduled crawl skipped", zap.Error(err))
					return
				}
				zap.L().Info("scheduled crawl started", zap.Strings("regions", regions))
			})
			if err != nil {
				return err
			}
			sched.Start()
			defer func() {
				<-sched.Stop().Done()
			}()
			zap.L().Info("crawl schedule enabled", zap.String("cron", cfg.Schedule.Cron))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Store, trig, env.Breakers, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		trig.Wait()
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires the HTTP API. breakers may be nil.
func buildRouter(st store.RecordStore, trig *trigger, breakers *resilience.ServiceBreakers, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"status": "ok"}
		if trig != nil {
			body["crawl_running"] = trig.Running()
		}
		if breakers != nil {
			circuits := make(map[string]string)
			for svc, s := range breakers.States() {
				circuits[svc] = s.String()
			}
			body["circuits"] = circuits
		}
		writeJSON(w, http.StatusOK, body)
	})

	r.Handle("/metrics", metrics.Handler())

	r.Post("/crawl", func(w http.ResponseWriter, req *http.Request) {
		if trig == nil {
			writeError(w, http.StatusServiceUnavailable, "crawler not configured")
			return
		}
		var body struct {
			Regions []string `json:"regions"`
		}
		if req.ContentLength != 0 {
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}
		regions, err := trig.Start(body.Regions)
		switch {
		case errors.Is(err, ErrCrawlRunning):
			writeError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":  "accepted",
			"regions": regions,
		})
	})

	r.Route("/restaurants", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			f, err := parseFilter(req)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			total, err := st.Count(req.Context(), f)
			if err != nil {
				internalError(w, "count restaurants", err)
				return
			}
			recs, err := st.List(req.Context(), f)
			if err != nil {
				internalError(w, "list restaurants", err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"total":       total,
				"limit":       f.Limit,
				"offset":      f.Offset,
				"restaurants": recs,
			})
		})

		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			rec, err := st.Get(req.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "restaurant not found")
				return
			}
			if err != nil {
				internalError(w, "get restaurant", err)
				return
			}
			mentions, err := st.Mentions(req.Context(), id, 20)
			if err != nil {
				internalError(w, "list mentions", err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"restaurant": rec,
				"mentions":   mentions,
			})
		})
	})

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			runs, err := st.ListRuns(req.Context(), limit)
			if err != nil {
				internalError(w, "list runs", err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
		})

		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			if err != nil {
				internalError(w, "get run", err)
				return
			}
			writeJSON(w, http.StatusOK, run)
		})
	})

	return r
}

// parseFilter reads the list filter from the query string.
func parseFilter(req *http.Request) (store.ListFilter, error) {
	q := req.URL.Query()
	f := store.ListFilter{
		Region:   q.Get("region"),
		Category: q.Get("category"),
		Limit:    defaultPageSize,
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset, "min_trend": &f.MinTrend} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, eris.Errorf("%s must be a non-negative integer", name)
		}
		*dst = n
	}
	switch {
	case f.Limit == 0:
		f.Limit = defaultPageSize
	case f.Limit > maxPageSize:
		f.Limit = maxPageSize
	}
	return f, nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, action string, err error) {
	zap.L().Error("http: "+action, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
