package broker

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
	"github.com/MikeSquared-Agency/Vantage/internal/store"
)

// State is where an analysis sits in the pipeline.
type State string

const (
	StateAwaitingLocationAndCompetitor State = "awaiting_location_and_competitor"
	StateAwaitingRevenue               State = "awaiting_revenue"
)

// analysis is the in-flight state for one correlation id. Fields other than
// done/record/err are guarded by Broker.mu.
type analysis struct {
	id          uuid.UUID
	req         store.ScoreRequest
	state       State
	submittedAt time.Time

	location   *scoring.LocationResult
	competitor *scoring.CompetitorResult

	once   sync.Once
	done   chan struct{}
	record *store.ResultRecord
	err    error
}

func newAnalysis(id uuid.UUID, req store.ScoreRequest, now time.Time) *analysis {
	return &analysis{
		id:          id,
		req:         req,
		state:       StateAwaitingLocationAndCompetitor,
		submittedAt: now,
		done:        make(chan struct{}),
	}
}

// resolve completes the future. Only the first call has any effect.
func (a *analysis) resolve(rec *store.ResultRecord, err error) {
	a.once.Do(func() {
		a.record = rec
		a.err = err
		close(a.done)
	})
}

// PendingAnalysis is a snapshot of an in-flight analysis.
type PendingAnalysis struct {
	ID            string    `json:"id"`
	BusinessType  string    `json:"business_type"`
	Neighborhood  string    `json:"neighborhood"`
	State         State     `json:"state"`
	SubmittedAt   time.Time `json:"submitted_at"`
	AgeSeconds    float64   `json:"age_seconds"`
	HasLocation   bool      `json:"has_location"`
	HasCompetitor bool      `json:"has_competitor"`
}
