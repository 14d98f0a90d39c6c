package store

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
)

// ScoreRequest is the inbound analysis request.
type ScoreRequest struct {
	Neighborhood string  `json:"neighborhood"`
	BusinessType string  `json:"business_type"`
	TargetDemo   string  `json:"target_demo"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RentEstimate float64 `json:"rent_estimate"`
	RadiusMeters int     `json:"radius_meters,omitempty"`
}

type RecordStatus string

const (
	// StatusComplete records carry all three sub-results.
	StatusComplete RecordStatus = "complete"
	// StatusPartial records expired while waiting for the revenue projection.
	StatusPartial RecordStatus = "partial"
)

// ResultRecord is one persisted analysis. OverallScore is fixed at write time.
type ResultRecord struct {
	ID         int64     `json:"id"`
	AnalysisID string    `json:"analysis_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ScoreRequest
	Status       RecordStatus               `json:"status"`
	Location     *scoring.LocationResult    `json:"location"`
	Competitor   *scoring.CompetitorResult  `json:"competitor"`
	Revenue      *scoring.RevenueProjection `json:"revenue"`
	OverallScore *int                       `json:"overall_score"`
}

type Metadata struct {
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	TotalEntries int64      `json:"total_entries"`
	LastUpdated  *time.Time `json:"last_updated,omitempty"`
}

// Document is the whole store: every record plus metadata.
type Document struct {
	Results  []*ResultRecord `json:"results"`
	Metadata Metadata        `json:"metadata"`
}

func emptyDocument() *Document {
	return &Document{Results: []*ResultRecord{}}
}

// Store is an append-only record store. Append assigns ID (count before
// insert + 1) and CreatedAt. Get returns (nil, nil) for an unknown id.
// Load does not fail: an unreadable backend is logged and reads as empty.
type Store interface {
	Append(ctx context.Context, rec *ResultRecord) error
	Load(ctx context.Context) (*Document, error)
	Get(ctx context.Context, id int64) (*ResultRecord, error)
	Close() error
}
