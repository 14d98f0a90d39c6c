// Package broker correlates scout responses into persisted analyses.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Vantage/internal/config"
	"github.com/MikeSquared-Agency/Vantage/internal/hermes"
	"github.com/MikeSquared-Agency/Vantage/internal/metrics"
	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
	"github.com/MikeSquared-Agency/Vantage/internal/store"
)

var (
	// ErrAnalysisIncomplete means the deadline passed before any record
	// could be computed.
	ErrAnalysisIncomplete = errors.New("analysis incomplete")
	ErrBrokerStopped      = errors.New("broker stopped")
	ErrInvalidRequest     = errors.New("invalid score request")
)

const persistTimeout = 10 * time.Second

type Broker struct {
	store   store.Store
	hermes  hermes.Client
	weights scoring.CompositeWeights
	timeout time.Duration
	sweep   time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending map[uuid.UUID]*analysis

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, h hermes.Client, cfg *config.Config, logger *slog.Logger) *Broker {
	return &Broker{
		store:   s,
		hermes:  h,
		weights: cfg.Pipeline.CompositeWeights,
		timeout: cfg.AnalysisTimeout(),
		sweep:   cfg.SweepInterval(),
		logger:  logger,
		now:     time.Now,
		pending: make(map[uuid.UUID]*analysis),
		stopCh:  make(chan struct{}),
	}
}

func (b *Broker) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.timeoutLoop(ctx)
}

func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
}

func (b *Broker) stopped() bool {
	select {
	case <-b.stopCh:
		return true
	default:
		return false
	}
}

func validateRequest(req store.ScoreRequest) error {
	switch {
	case req.BusinessType == "":
		return fmt.Errorf("%w: business_type is required", ErrInvalidRequest)
	case req.Latitude < -90 || req.Latitude > 90:
		return fmt.Errorf("%w: latitude %f out of range", ErrInvalidRequest, req.Latitude)
	case req.Longitude < -180 || req.Longitude > 180:
		return fmt.Errorf("%w: longitude %f out of range", ErrInvalidRequest, req.Longitude)
	case req.RentEstimate < 0:
		return fmt.Errorf("%w: rent_estimate must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Submit starts an analysis and returns its correlation id. The location
// and competitor sub-requests are published without waiting on each other.
func (b *Broker) Submit(req store.ScoreRequest) (uuid.UUID, error) {
	a, err := b.submit(req)
	if err != nil {
		return uuid.Nil, err
	}
	return a.id, nil
}

func (b *Broker) submit(req store.ScoreRequest) (*analysis, error) {
	if b.stopped() {
		return nil, ErrBrokerStopped
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	a := newAnalysis(uuid.New(), req, b.now())
	b.mu.Lock()
	b.pending[a.id] = a
	metrics.PendingAnalyses.Set(float64(len(b.pending)))
	b.mu.Unlock()
	metrics.AnalysesStarted.Inc()

	id := a.id.String()
	evt := hermes.ScoreRequestEvent{
		AnalysisID:   id,
		Neighborhood: req.Neighborhood,
		BusinessType: req.BusinessType,
		TargetDemo:   req.TargetDemo,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RentEstimate: req.RentEstimate,
		RadiusMeters: req.RadiusMeters,
	}
	for _, src := range []hermes.Source{hermes.SourceLocation, hermes.SourceCompetitor} {
		if err := b.hermes.Publish(hermes.SubjectScoreRequest(id, src), evt); err != nil {
			b.detach(a.id)
			err = fmt.Errorf("dispatch %s request: %w", src, err)
			a.resolve(nil, err)
			return nil, err
		}
	}

	b.logger.Info("analysis submitted",
		"analysis_id", id,
		"business_type", req.BusinessType,
		"neighborhood", req.Neighborhood,
		"latitude", req.Latitude,
		"longitude", req.Longitude,
	)
	return a, nil
}

// Analyze submits req and waits for its record. A partial record is
// returned when the revenue projection never arrived; ErrAnalysisIncomplete
// when no record could be built before the deadline.
func (b *Broker) Analyze(ctx context.Context, req store.ScoreRequest) (*store.ResultRecord, uuid.UUID, error) {
	a, err := b.submit(req)
	if err != nil {
		return nil, uuid.Nil, err
	}
	select {
	case <-a.done:
		return a.record, a.id, a.err
	case <-ctx.Done():
		return nil, a.id, ctx.Err()
	case <-b.stopCh:
		return nil, a.id, ErrBrokerStopped
	}
}

// Pending returns the in-flight analyses, oldest first.
func (b *Broker) Pending() []PendingAnalysis {
	now := b.now()
	b.mu.Lock()
	out := make([]PendingAnalysis, 0, len(b.pending))
	for _, a := range b.pending {
		out = append(out, PendingAnalysis{
			ID:            a.id.String(),
			BusinessType:  a.req.BusinessType,
			Neighborhood:  a.req.Neighborhood,
			State:         a.state,
			SubmittedAt:   a.submittedAt,
			AgeSeconds:    now.Sub(a.submittedAt).Seconds(),
			HasLocation:   a.location != nil,
			HasCompetitor: a.competitor != nil,
		})
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

// detach removes the analysis from the pending map and reports whether it
// was still there.
func (b *Broker) detach(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[id]
	delete(b.pending, id)
	metrics.PendingAnalyses.Set(float64(len(b.pending)))
	return ok
}

// SetupSubscriptions registers the scout response and inbound request handlers.
func (b *Broker) SetupSubscriptions() error {
	if err := b.hermes.Subscribe(hermes.SubjectScoreResponses, b.handleResponse); err != nil {
		return fmt.Errorf("subscribe responses: %w", err)
	}

	// Analyses requested over the bus rather than the API
	err := b.hermes.Subscribe(hermes.SubjectAnalysisRequest, func(_ string, data []byte) {
		var evt hermes.ScoreRequestEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			b.logger.Warn("invalid analysis request event", "error", err)
			return
		}
		req := store.ScoreRequest{
			Neighborhood: evt.Neighborhood,
			BusinessType: evt.BusinessType,
			TargetDemo:   evt.TargetDemo,
			Latitude:     evt.Latitude,
			Longitude:    evt.Longitude,
			RentEstimate: evt.RentEstimate,
			RadiusMeters: evt.RadiusMeters,
		}
		if _, err := b.Submit(req); err != nil {
			b.logger.Warn("failed to submit analysis from bus request", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe analysis requests: %w", err)
	}
	return nil
}

func (b *Broker) drop(reason, subject string, attrs ...any) {
	metrics.ResponsesDropped.WithLabelValues(reason).Inc()
	b.logger.Warn("dropping score response", append([]any{"reason", reason, "subject", subject}, attrs...)...)
}

func (b *Broker) handleResponse(subject string, data []byte) {
	var evt hermes.ScoreResponseEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		b.drop("malformed", subject, "error", err)
		return
	}
	if err := evt.Validate(); err != nil {
		b.drop("invalid", subject, "error", err)
		return
	}
	if fromSubject := hermes.AnalysisIDFromSubject(subject); fromSubject != "" && fromSubject != evt.AnalysisID {
		b.drop("mismatched_id", subject, "analysis_id", evt.AnalysisID)
		return
	}
	id, err := uuid.Parse(evt.AnalysisID)
	if err != nil {
		b.drop("invalid_id", subject, "analysis_id", evt.AnalysisID)
		return
	}

	b.mu.Lock()
	a, ok := b.pending[id]
	if !ok {
		b.mu.Unlock()
		b.drop("unknown_analysis", subject, "analysis_id", evt.AnalysisID)
		return
	}

	switch evt.Source {
	case hermes.SourceLocation, hermes.SourceCompetitor:
		if a.state != StateAwaitingLocationAndCompetitor ||
			(evt.Source == hermes.SourceLocation && a.location != nil) ||
			(evt.Source == hermes.SourceCompetitor && a.competitor != nil) {
			b.mu.Unlock()
			b.drop("duplicate", subject, "analysis_id", evt.AnalysisID, "source", evt.Source)
			return
		}
		if evt.Location != nil {
			a.location = evt.Location
		} else {
			a.competitor = evt.Competitor
		}
		if a.location == nil || a.competitor == nil {
			b.mu.Unlock()
			b.logger.Info("score received", "analysis_id", evt.AnalysisID, "source", evt.Source)
			return
		}
		a.state = StateAwaitingRevenue
		revReq := revenueRequest(a)
		b.mu.Unlock()

		b.logger.Info("location and competitor scored, requesting revenue projection",
			"analysis_id", evt.AnalysisID,
			"foot_traffic_score", revReq.FootTrafficScore,
			"competitor_count", revReq.CompetitorCount,
		)
		if err := b.hermes.Publish(hermes.SubjectScoreRequest(evt.AnalysisID, hermes.SourceRevenue), revReq); err != nil {
			// the sweep will persist a partial record
			b.logger.Error("failed to dispatch revenue request", "analysis_id", evt.AnalysisID, "error", err)
		}

	case hermes.SourceRevenue:
		if a.state != StateAwaitingRevenue {
			b.mu.Unlock()
			b.drop("unexpected_revenue", subject, "analysis_id", evt.AnalysisID, "state", a.state)
			return
		}
		delete(b.pending, id)
		metrics.PendingAnalyses.Set(float64(len(b.pending)))
		b.mu.Unlock()

		b.finish(a, evt.Revenue, store.StatusComplete)
	}
}

// revenueRequest derives the revenue analyst's inputs. Caller holds b.mu.
func revenueRequest(a *analysis) hermes.RevenueRequestEvent {
	evt := hermes.RevenueRequestEvent{
		AnalysisID:       a.id.String(),
		BusinessType:     a.req.BusinessType,
		Neighborhood:     a.req.Neighborhood,
		FootTrafficScore: a.location.Breakdown.FootTraffic.Score,
		CompetitorCount:  a.competitor.Breakdown.CompetitorCount,
		RentEstimate:     a.req.RentEstimate,
	}
	if a.req.Latitude != 0 || a.req.Longitude != 0 {
		lat, lng := a.req.Latitude, a.req.Longitude
		evt.Latitude = &lat
		evt.Longitude = &lng
	}
	return evt
}

// finish persists the record for a detached analysis and resolves its future.
func (b *Broker) finish(a *analysis, rev *scoring.RevenueProjection, status store.RecordStatus) {
	id := a.id.String()
	rec := &store.ResultRecord{
		AnalysisID:   id,
		ScoreRequest: a.req,
		Status:       status,
		Location:     a.location,
		Competitor:   a.competitor,
		Revenue:      rev,
		OverallScore: scoring.Composite(a.location, a.competitor, rev, b.weights),
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := b.store.Append(ctx, rec); err != nil {
		b.logger.Error("failed to persist analysis", "analysis_id", id, "error", err)
		metrics.AnalysesCompleted.WithLabelValues("failed").Inc()
		b.publishEvent(hermes.SubjectAnalysisFailed(id), hermes.AnalysisFailedEvent{
			AnalysisID: id,
			Error:      err.Error(),
			State:      string(a.state),
		})
		a.resolve(nil, fmt.Errorf("persist analysis %s: %w", id, err))
		return
	}

	metrics.AnalysesCompleted.WithLabelValues(string(status)).Inc()
	metrics.AnalysisDuration.Observe(b.now().Sub(a.submittedAt).Seconds())
	b.logger.Info("analysis complete",
		"analysis_id", id,
		"record_id", rec.ID,
		"status", status,
		"overall_score", rec.OverallScore,
	)
	b.publishEvent(hermes.SubjectAnalysisCompleted(id), hermes.AnalysisCompletedEvent{
		AnalysisID:   id,
		RecordID:     rec.ID,
		Status:       string(status),
		OverallScore: rec.OverallScore,
		CompletedAt:  rec.CreatedAt,
	})
	a.resolve(rec, nil)
}

func (b *Broker) publishEvent(subject string, evt interface{}) {
	if err := b.hermes.Publish(subject, evt); err != nil {
		b.logger.Warn("failed to publish analysis event", "subject", subject, "error", err)
	}
}
