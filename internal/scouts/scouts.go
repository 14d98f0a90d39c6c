// Package scouts runs the scoring agents that answer the broker's
// per-analysis sub-requests.
package scouts

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/Vantage/internal/dataset"
	"github.com/MikeSquared-Agency/Vantage/internal/hermes"
	"github.com/MikeSquared-Agency/Vantage/internal/merchant"
	"github.com/MikeSquared-Agency/Vantage/internal/metrics"
	"github.com/MikeSquared-Agency/Vantage/internal/places"
	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
)

// Options configures the scouts. Merchant is optional.
type Options struct {
	Datasets             *dataset.Datasets
	Weights              scoring.LocationWeights
	Places               places.Client
	Merchant             merchant.Client
	SearchRadiusMeters   int
	MerchantRadiusMeters int
	LookupTimeout        time.Duration
}

type Scouts struct {
	hermes hermes.Client
	opts   Options
	logger *slog.Logger
}

func New(h hermes.Client, opts Options, logger *slog.Logger) *Scouts {
	if opts.SearchRadiusMeters <= 0 {
		opts.SearchRadiusMeters = scoring.DefaultSearchRadiusMeters
	}
	if opts.MerchantRadiusMeters <= 0 {
		opts.MerchantRadiusMeters = opts.SearchRadiusMeters
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 15 * time.Second
	}
	if opts.Datasets == nil {
		opts.Datasets = &dataset.Datasets{}
	}
	return &Scouts{hermes: h, opts: opts, logger: logger}
}

func (s *Scouts) SetupSubscriptions() error {
	subs := []struct {
		subject string
		handler func(string, []byte)
	}{
		{hermes.SubjectLocationRequests, s.onLocationRequest},
		{hermes.SubjectCompetitorRequests, s.onCompetitorRequest},
		{hermes.SubjectRevenueRequests, s.onRevenueRequest},
	}
	for _, sub := range subs {
		if err := s.hermes.Subscribe(sub.subject, sub.handler); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scouts) onLocationRequest(_ string, data []byte) {
	var req hermes.ScoreRequestEvent
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Error("failed to unmarshal location request", "error", err)
		return
	}
	result := s.ScoreLocation(req)
	s.respond(hermes.ScoreResponseEvent{
		AnalysisID: req.AnalysisID,
		Source:     hermes.SourceLocation,
		Location:   &result,
	})
}

func (s *Scouts) onCompetitorRequest(_ string, data []byte) {
	var req hermes.ScoreRequestEvent
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Error("failed to unmarshal competitor request", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.LookupTimeout)
	defer cancel()
	result := s.ScoreCompetitors(ctx, req)
	s.respond(hermes.ScoreResponseEvent{
		AnalysisID: req.AnalysisID,
		Source:     hermes.SourceCompetitor,
		Competitor: &result,
	})
}

func (s *Scouts) onRevenueRequest(_ string, data []byte) {
	var req hermes.RevenueRequestEvent
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Error("failed to unmarshal revenue request", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.LookupTimeout)
	defer cancel()
	result := s.ProjectRevenue(ctx, req)
	s.respond(hermes.ScoreResponseEvent{
		AnalysisID: req.AnalysisID,
		Source:     hermes.SourceRevenue,
		Revenue:    &result,
	})
}

func (s *Scouts) respond(evt hermes.ScoreResponseEvent) {
	subject := hermes.SubjectScoreResponse(evt.AnalysisID, evt.Source)
	if err := s.hermes.Publish(subject, evt); err != nil {
		s.logger.Error("failed to publish score response", "analysis_id", evt.AnalysisID, "source", evt.Source, "error", err)
	}
}

// ScoreLocation scores foot traffic and transit access from the static datasets.
func (s *Scouts) ScoreLocation(req hermes.ScoreRequestEvent) scoring.LocationResult {
	start := time.Now()
	defer observe(hermes.SourceLocation, start)

	result := scoring.ScoreLocation(req.Latitude, req.Longitude, s.opts.Datasets, s.opts.Weights)
	s.logger.Info("location scored",
		"analysis_id", req.AnalysisID,
		"score", result.Score,
		"confidence", result.Confidence,
		"pedestrian_points", result.Breakdown.FootTraffic.Count,
		"stations", result.Breakdown.TransitAccess.Count,
	)
	return result
}

// ScoreCompetitors looks up nearby businesses of the same type. A failed
// lookup scores as an empty neighborhood.
func (s *Scouts) ScoreCompetitors(ctx context.Context, req hermes.ScoreRequestEvent) scoring.CompetitorResult {
	start := time.Now()
	defer observe(hermes.SourceCompetitor, start)

	radius := req.RadiusMeters
	if radius <= 0 {
		radius = s.opts.SearchRadiusMeters
	}

	var found []places.Place
	if s.opts.Places != nil {
		var err error
		found, err = s.opts.Places.SearchNearby(ctx, req.Latitude, req.Longitude, req.BusinessType, radius)
		if err != nil {
			s.logger.Warn("places lookup failed, scoring without competitors",
				"analysis_id", req.AnalysisID, "business_type", req.BusinessType, "error", err)
			found = nil
		}
	}

	competitors := make([]scoring.Competitor, 0, len(found))
	for _, p := range found {
		competitors = append(competitors, scoring.Competitor{
			Name:       p.Name,
			Rating:     p.Rating,
			Reviews:    p.ReviewCount,
			PriceLevel: p.PriceLevel,
			Address:    p.Address,
		})
	}

	result := scoring.ScoreCompetitors(competitors, radius)
	s.logger.Info("competitors scored",
		"analysis_id", req.AnalysisID,
		"score", result.Score,
		"competitor_count", result.Breakdown.CompetitorCount,
		"gap", result.Breakdown.GapAnalysis,
	)
	return result
}

// ProjectRevenue projects revenue from industry benchmarks, enriched with
// merchant data when it is available for the coordinates.
func (s *Scouts) ProjectRevenue(ctx context.Context, req hermes.RevenueRequestEvent) scoring.RevenueProjection {
	start := time.Now()
	defer observe(hermes.SourceRevenue, start)

	in := scoring.RevenueInput{
		BusinessType:     req.BusinessType,
		Neighborhood:     req.Neighborhood,
		FootTrafficScore: req.FootTrafficScore,
		CompetitorCount:  req.CompetitorCount,
		Rent:             req.RentEstimate,
		HasCoordinates:   req.Latitude != nil && req.Longitude != nil,
	}

	if in.HasCoordinates && s.opts.Merchant != nil {
		ins, err := s.opts.Merchant.Lookup(ctx, *req.Latitude, *req.Longitude, req.BusinessType, s.opts.MerchantRadiusMeters)
		switch {
		case err != nil:
			s.logger.Warn("merchant lookup failed, using benchmarks", "analysis_id", req.AnalysisID, "error", err)
		case ins != nil:
			in.Market = &scoring.MarketActivity{
				MerchantCount:            ins.MerchantCount,
				AverageTransactionVolume: ins.AverageTransactionVolume,
				EstimatedMonthlySpending: ins.EstimatedMonthlySpending,
				ActivityScore:            float64(ins.MarketActivityScore),
			}
		}
	}

	result := scoring.ProjectRevenue(in)
	s.logger.Info("revenue projected",
		"analysis_id", req.AnalysisID,
		"moderate", result.Moderate,
		"breakeven_months", result.BreakevenMonths,
		"data_source", result.DataSource,
	)
	return result
}

func observe(src hermes.Source, start time.Time) {
	metrics.ScoutDuration.WithLabelValues(string(src)).Observe(time.Since(start).Seconds())
}
