// Package api serves the dashboard HTTP surface: metrics, lead queries,
// pipeline actions, and automation control. Read endpoints are open;
// every mutation passes the auth gate.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/automation"
	"github.com/sells-group/domain-lead-pipeline/internal/config"
	"github.com/sells-group/domain-lead-pipeline/internal/export"
	"github.com/sells-group/domain-lead-pipeline/internal/metrics"
	"github.com/sells-group/domain-lead-pipeline/internal/scorer"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

// Server carries the handler dependencies.
type Server struct {
	store      store.Store
	metrics    *metrics.Collector
	controller *automation.Controller
	exporter   *export.Exporter
	scorer     *scorer.Runner
	exportDir  string
	gate       authGate
	origins    []string
}

// Deps bundles the collaborators for NewServer.
type Deps struct {
	Store      store.Store
	Metrics    *metrics.Collector
	Controller *automation.Controller
	Exporter   *export.Exporter
	Scorer     *scorer.Runner
	ExportDir  string
}

// NewServer builds the API server from config and dependencies.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	return &Server{
		store:      deps.Store,
		metrics:    deps.Metrics,
		controller: deps.Controller,
		exporter:   deps.Exporter,
		scorer:     deps.Scorer,
		exportDir:  deps.ExportDir,
		gate: authGate{
			key:            cfg.MutationKey,
			loopbackBypass: cfg.LoopbackBypass,
		},
		origins: cfg.FrontendOrigins,
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", apiKeyHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/metrics", s.handleMetrics)
		r.Get("/jobs", s.handleJobs)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/business", s.handleLeads)
			r.Get("/categories", s.handleCategories)
			r.Get("/cities", s.handleCities)
		})

		r.Route("/exports", func(r chi.Router) {
			r.Get("/files", s.handleExportFiles)
			r.Get("/files/{filename}", s.handleExportDownload)
		})

		r.Get("/automation/status", s.handleAutomationStatus)
		r.Get("/automation/settings", s.handleGetSettings)

		r.Group(func(r chi.Router) {
			r.Use(s.gate.middleware)

			r.Route("/actions", func(r chi.Router) {
				r.Post("/pipeline-run", s.handlePipelineRun)
				r.Post("/business-score", s.handleBusinessScore)
				r.Post("/business-export", s.handleBusinessExport)
			})

			r.Route("/automation", func(r chi.Router) {
				r.Post("/start", s.handleAutomationStart)
				r.Post("/stop", s.handleAutomationStop)
				r.Post("/run-now", s.handleAutomationRunNow)
				r.Post("/daily-target-now", s.handleDailyTargetNow)
				r.Post("/settings", s.handleUpdateSettings)
			})
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("api request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
