package broker

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/Vantage/internal/hermes"
	"github.com/MikeSquared-Agency/Vantage/internal/metrics"
	"github.com/MikeSquared-Agency/Vantage/internal/store"
)

func (b *Broker) timeoutLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.checkTimeouts()
		}
	}
}

// checkTimeouts expires analyses older than the deadline. One still waiting
// on revenue is persisted as a partial record; one still waiting on location
// or competitor cannot be scored and fails with ErrAnalysisIncomplete.
func (b *Broker) checkTimeouts() {
	now := b.now()

	b.mu.Lock()
	var expired []*analysis
	for id, a := range b.pending {
		if now.Sub(a.submittedAt) <= b.timeout {
			continue
		}
		expired = append(expired, a)
		delete(b.pending, id)
	}
	metrics.PendingAnalyses.Set(float64(len(b.pending)))
	b.mu.Unlock()

	for _, a := range expired {
		id := a.id.String()
		b.logger.Warn("analysis timed out",
			"analysis_id", id,
			"state", a.state,
			"has_location", a.location != nil,
			"has_competitor", a.competitor != nil,
		)

		if a.state == StateAwaitingRevenue {
			b.finish(a, nil, store.StatusPartial)
			continue
		}

		metrics.AnalysesCompleted.WithLabelValues("expired").Inc()
		b.publishEvent(hermes.SubjectAnalysisExpired(id), hermes.AnalysisFailedEvent{
			AnalysisID: id,
			Error:      ErrAnalysisIncomplete.Error(),
			State:      string(a.state),
		})
		a.resolve(nil, ErrAnalysisIncomplete)
	}
}
