package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Vantage/internal/insights"
	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
	"github.com/MikeSquared-Agency/Vantage/internal/store"
)

type ResultsHandler struct {
	store     store.Store
	weights   scoring.CompositeWeights
	generator insights.Generator
	logger    *slog.Logger
}

// NewResultsHandler serves persisted analyses. generator may be nil.
func NewResultsHandler(s store.Store, weights scoring.CompositeWeights, g insights.Generator, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{store: s, weights: weights, generator: g, logger: logger}
}

// List returns records matching the query, best first.
// GET /api/v1/results?business_type=&target_demo=&monthly_budget=
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := store.Query{
		BusinessType: r.URL.Query().Get("business_type"),
		TargetDemo:   r.URL.Query().Get("target_demo"),
	}
	if v := r.URL.Query().Get("monthly_budget"); v != "" {
		budget, err := strconv.ParseFloat(v, 64)
		if err != nil || budget < 0 {
			writeError(w, http.StatusBadRequest, "invalid monthly_budget")
			return
		}
		q.MonthlyBudget = budget
	}

	doc, err := h.store.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	results := store.Filter(doc.Results, q)
	if results == nil {
		results = []*store.ResultRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"total":   len(results),
	})
}

func (h *ResultsHandler) load(w http.ResponseWriter, r *http.Request) *store.ResultRecord {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid result id")
		return nil
	}
	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "result not found")
		return nil
	}
	return rec
}

// GET /api/v1/results/{id}
func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if rec := h.load(w, r); rec != nil {
		writeJSON(w, http.StatusOK, rec)
	}
}

// Explain returns the weighted contribution of each sub-score.
// GET /api/v1/results/{id}/explain
func (h *ResultsHandler) Explain(w http.ResponseWriter, r *http.Request) {
	rec := h.load(w, r)
	if rec == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"record_id":     rec.ID,
		"status":        rec.Status,
		"overall_score": rec.OverallScore,
		"weights":       h.weights,
		"contributions": scoring.Explain(rec.Location, rec.Competitor, rec.Revenue, h.weights),
	})
}

// Insights generates narrative insights for a record.
// POST /api/v1/results/{id}/insights
func (h *ResultsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	rec := h.load(w, r)
	if rec == nil {
		return
	}

	var out []insights.Insight
	if h.generator != nil {
		var err error
		out, err = h.generator.Generate(r.Context(), rec)
		if err != nil {
			h.logger.Warn("insight generation failed", "record_id", rec.ID, "error", err)
		}
	}
	if len(out) == 0 {
		out = []insights.Insight{insights.Unavailable}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"insights": out})
}
