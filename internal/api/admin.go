package api

import (
	"net/http"

	"github.com/MikeSquared-Agency/Vantage/internal/store"
)

type AdminHandler struct {
	store    store.Store
	analyzer Analyzer
}

func NewAdminHandler(s store.Store, a Analyzer) *AdminHandler {
	return &AdminHandler{store: s, analyzer: a}
}

// GET /api/v1/admin/pending
func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.analyzer.Pending())
}

type Stats struct {
	store.Metadata
	Pending  int                        `json:"pending"`
	ByStatus map[store.RecordStatus]int `json:"by_status"`
}

// GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats := Stats{
		Metadata: doc.Metadata,
		Pending:  len(h.analyzer.Pending()),
		ByStatus: make(map[store.RecordStatus]int),
	}
	for _, rec := range doc.Results {
		stats.ByStatus[rec.Status]++
	}
	writeJSON(w, http.StatusOK, stats)
}
