package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Vantage/internal/insights"
	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
	"github.com/MikeSquared-Agency/Vantage/internal/store"
)

type Options struct {
	AdminToken        string
	CORSOrigins       []string
	RequestsPerMinute int
	AnalysisWait      time.Duration
	Weights           scoring.CompositeWeights
	Insights          insights.Generator
}

func NewRouter(s store.Store, a Analyzer, opts Options, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(RequestLogger(logger))
	if opts.RequestsPerMinute > 0 {
		r.Use(RateLimitMiddleware(opts.RequestsPerMinute))
	}

	analyses := NewAnalysesHandler(a, opts.AnalysisWait, logger)
	results := NewResultsHandler(s, opts.Weights, opts.Insights, logger)
	admin := NewAdminHandler(s, a)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyses", analyses.Create)

		r.Get("/results", results.List)
		r.Get("/results/{id}", results.Get)
		r.Get("/results/{id}/explain", results.Explain)
		r.Post("/results/{id}/insights", results.Insights)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(opts.AdminToken))
			r.Get("/admin/pending", admin.Pending)
			r.Get("/admin/stats", admin.Stats)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
