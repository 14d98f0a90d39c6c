package hermes

import (
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
)

// Source identifies which scout produced a response.
type Source string

const (
	SourceLocation   Source = "location"
	SourceCompetitor Source = "competitor"
	SourceRevenue    Source = "revenue"
)

// ScoreRequestEvent starts an analysis and is also the sub-request sent to
// the location and competitor scouts.
type ScoreRequestEvent struct {
	AnalysisID   string  `json:"analysis_id,omitempty"`
	Neighborhood string  `json:"neighborhood"`
	BusinessType string  `json:"business_type"`
	TargetDemo   string  `json:"target_demo"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RentEstimate float64 `json:"rent_estimate"`
	RadiusMeters int     `json:"radius_meters,omitempty"`
}

// RevenueRequestEvent carries the inputs the revenue analyst derives from the
// location and competitor results.
type RevenueRequestEvent struct {
	AnalysisID       string   `json:"analysis_id"`
	BusinessType     string   `json:"business_type"`
	Neighborhood     string   `json:"neighborhood"`
	FootTrafficScore int      `json:"foot_traffic_score"`
	CompetitorCount  int      `json:"competitor_count"`
	RentEstimate     float64  `json:"rent_estimate"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
}

// ScoreResponseEvent is a tagged union: Source names the one payload that is set.
type ScoreResponseEvent struct {
	AnalysisID string                     `json:"analysis_id"`
	Source     Source                     `json:"source"`
	Location   *scoring.LocationResult    `json:"location,omitempty"`
	Competitor *scoring.CompetitorResult  `json:"competitor,omitempty"`
	Revenue    *scoring.RevenueProjection `json:"revenue,omitempty"`
}

// Validate checks that exactly the payload named by Source is present.
func (e *ScoreResponseEvent) Validate() error {
	set := 0
	for _, p := range []bool{e.Location != nil, e.Competitor != nil, e.Revenue != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("response carries %d payloads, want 1", set)
	}
	switch e.Source {
	case SourceLocation:
		if e.Location == nil {
			return fmt.Errorf("source %s without location payload", e.Source)
		}
	case SourceCompetitor:
		if e.Competitor == nil {
			return fmt.Errorf("source %s without competitor payload", e.Source)
		}
	case SourceRevenue:
		if e.Revenue == nil {
			return fmt.Errorf("source %s without revenue payload", e.Source)
		}
	default:
		return fmt.Errorf("unknown source %q", e.Source)
	}
	return nil
}

type AnalysisCompletedEvent struct {
	AnalysisID   string    `json:"analysis_id"`
	RecordID     int64     `json:"record_id"`
	Status       string    `json:"status"`
	OverallScore *int      `json:"overall_score"`
	CompletedAt  time.Time `json:"completed_at"`
}

type AnalysisFailedEvent struct {
	AnalysisID string `json:"analysis_id"`
	Error      string `json:"error"`
	// State is the pipeline state the analysis was in when it failed.
	State string `json:"state"`
}
