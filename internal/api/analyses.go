package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Vantage/internal/broker"
	"github.com/MikeSquared-Agency/Vantage/internal/store"
)

const maxRequestBody = 64 << 10

// Analyzer runs analyses through the pipeline.
type Analyzer interface {
	Submit(req store.ScoreRequest) (uuid.UUID, error)
	Analyze(ctx context.Context, req store.ScoreRequest) (*store.ResultRecord, uuid.UUID, error)
	Pending() []broker.PendingAnalysis
}

type AnalysesHandler struct {
	analyzer Analyzer
	wait     time.Duration
	logger   *slog.Logger
}

// NewAnalysesHandler waits at most wait for a synchronous analysis.
func NewAnalysesHandler(a Analyzer, wait time.Duration, logger *slog.Logger) *AnalysesHandler {
	return &AnalysesHandler{analyzer: a, wait: wait, logger: logger}
}

// Create runs an analysis. With ?async=true it returns 202 and the
// correlation id instead of waiting for the record.
// POST /api/v1/analyses
func (h *AnalysesHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateScoreRequest(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req store.ScoreRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		id, err := h.analyzer.Submit(req)
		if err != nil {
			h.writeAnalyzeError(w, uuid.Nil, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"analysis_id": id.String(),
			"status":      "accepted",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.wait)
	defer cancel()
	rec, id, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		h.writeAnalyzeError(w, id, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *AnalysesHandler) writeAnalyzeError(w http.ResponseWriter, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, broker.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, broker.ErrBrokerStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, broker.ErrAnalysisIncomplete), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("analysis did not complete in time", "analysis_id", id, "error", err)
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{
			"error":       "analysis incomplete",
			"analysis_id": id.String(),
		})
	default:
		h.logger.Error("analysis failed", "analysis_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
