package scouts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Vantage/internal/dataset"
	"github.com/MikeSquared-Agency/Vantage/internal/hermes"
	"github.com/MikeSquared-Agency/Vantage/internal/merchant"
	"github.com/MikeSquared-Agency/Vantage/internal/places"
	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
)

const (
	siteLat = 40.721990
	siteLng = -73.927764
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockPlaces struct {
	places []places.Place
	err    error
	calls  int
	radius int
}

func (m *mockPlaces) SearchNearby(_ context.Context, _, _ float64, _ string, radiusMeters int) ([]places.Place, error) {
	m.calls++
	m.radius = radiusMeters
	return m.places, m.err
}

type mockMerchant struct {
	insights *merchant.Insights
	err      error
	calls    int
}

func (m *mockMerchant) Lookup(_ context.Context, _, _ float64, _ string, _ int) (*merchant.Insights, error) {
	m.calls++
	return m.insights, m.err
}

func testDatasets() *dataset.Datasets {
	return &dataset.Datasets{
		Transit: []dataset.TransitStop{
			{Name: "Grand St", Latitude: 40.7225, Longitude: -73.9280, Routes: "L"},
			{Name: "Graham Av", Latitude: 40.7215, Longitude: -73.9270, Routes: "L"},
			{Name: "Lorimer St", Latitude: 40.7230, Longitude: -73.9285, Routes: "G L"},
		},
	}
}

func newTestScouts(p places.Client, m merchant.Client) *Scouts {
	return New(hermes.NewLocalClient(), Options{
		Datasets: testDatasets(),
		Weights:  scoring.DefaultLocationWeights(),
		Places:   p,
		Merchant: m,
	}, discardLogger())
}

func TestScoreLocation(t *testing.T) {
	s := newTestScouts(nil, nil)
	got := s.ScoreLocation(hermes.ScoreRequestEvent{Latitude: siteLat, Longitude: siteLng})

	assert.Equal(t, 60, got.Score)
	assert.Equal(t, scoring.ConfidenceMedium, got.Confidence)
	assert.Equal(t, 0, got.Breakdown.FootTraffic.Score)
	assert.Equal(t, 100, got.Breakdown.TransitAccess.Score)
}

func TestScoreCompetitors_LookupFailureDegrades(t *testing.T) {
	p := &mockPlaces{err: errors.New("connection refused")}
	s := newTestScouts(p, nil)

	got := s.ScoreCompetitors(context.Background(), hermes.ScoreRequestEvent{BusinessType: "bakery"})
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, scoring.DefaultSearchRadiusMeters, p.radius)
	assert.Equal(t, 0, got.Breakdown.CompetitorCount)
	assert.Equal(t, 90, got.Breakdown.SaturationScore)
}

func TestScoreCompetitors_MapsPlaces(t *testing.T) {
	p := &mockPlaces{places: []places.Place{
		{Name: "A", Rating: 4.5, ReviewCount: 200},
		{Name: "B", Rating: 4.2, ReviewCount: 80},
	}}
	s := newTestScouts(p, nil)

	got := s.ScoreCompetitors(context.Background(), hermes.ScoreRequestEvent{BusinessType: "coffee shop", RadiusMeters: 500})
	assert.Equal(t, 500, p.radius)
	assert.Equal(t, 2, got.Breakdown.CompetitorCount)
	assert.Equal(t, 70, got.Breakdown.SaturationScore)
	assert.Equal(t, 70, got.Score)
	assert.Equal(t, 30, got.Breakdown.SaturationInverse)
	require.Len(t, got.Breakdown.Competitors, 2)
	assert.Equal(t, 200, got.Breakdown.Competitors[0].Reviews)
}

func TestProjectRevenue(t *testing.T) {
	lat, lng := siteLat, siteLng

	t.Run("no coordinates skips merchant lookup", func(t *testing.T) {
		m := &mockMerchant{}
		s := newTestScouts(nil, m)
		got := s.ProjectRevenue(context.Background(), hermes.RevenueRequestEvent{BusinessType: "bakery", FootTrafficScore: 40})
		assert.Zero(t, m.calls)
		assert.Equal(t, scoring.DataSourceBenchmarks, got.DataSource)
		assert.Contains(t, got.Assumptions, "Location data not available for Visa API lookup")
	})

	t.Run("merchant error falls back to benchmarks", func(t *testing.T) {
		m := &mockMerchant{err: errors.New("401")}
		s := newTestScouts(nil, m)
		got := s.ProjectRevenue(context.Background(), hermes.RevenueRequestEvent{
			BusinessType: "bakery", FootTrafficScore: 40, Latitude: &lat, Longitude: &lng,
		})
		assert.Equal(t, 1, m.calls)
		assert.Equal(t, scoring.DataSourceBenchmarks, got.DataSource)
		assert.Equal(t, scoring.ConfidenceMedium, got.Confidence)
	})

	t.Run("merchant data enriches projection", func(t *testing.T) {
		m := &mockMerchant{insights: &merchant.Insights{MerchantCount: 6, MarketActivityScore: 60}}
		s := newTestScouts(nil, m)
		got := s.ProjectRevenue(context.Background(), hermes.RevenueRequestEvent{
			BusinessType: "bakery", FootTrafficScore: 40, Latitude: &lat, Longitude: &lng,
		})
		assert.Equal(t, scoring.DataSourceMerchant, got.DataSource)
		assert.Equal(t, scoring.ConfidenceHigh, got.Confidence)
		assert.LessOrEqual(t, got.Conservative, got.Moderate)
		assert.LessOrEqual(t, got.Moderate, got.Optimistic)
	})
}

func TestSubscriptionsRespondOnCorrelatedSubject(t *testing.T) {
	bus := hermes.NewLocalClient()
	defer bus.Close()

	s := New(bus, Options{
		Datasets: testDatasets(),
		Weights:  scoring.DefaultLocationWeights(),
		Places:   &mockPlaces{},
	}, discardLogger())
	require.NoError(t, s.SetupSubscriptions())

	type delivery struct {
		subject string
		evt     hermes.ScoreResponseEvent
	}
	got := make(chan delivery, 3)
	require.NoError(t, bus.Subscribe(hermes.SubjectScoreResponses, func(subject string, data []byte) {
		var evt hermes.ScoreResponseEvent
		if err := json.Unmarshal(data, &evt); err == nil {
			got <- delivery{subject, evt}
		}
	}))

	req := hermes.ScoreRequestEvent{AnalysisID: "a1", BusinessType: "bakery", Latitude: siteLat, Longitude: siteLng}
	require.NoError(t, bus.Publish(hermes.SubjectScoreRequest("a1", hermes.SourceLocation), req))
	require.NoError(t, bus.Publish(hermes.SubjectScoreRequest("a1", hermes.SourceCompetitor), req))
	require.NoError(t, bus.Publish(hermes.SubjectScoreRequest("a1", hermes.SourceRevenue), hermes.RevenueRequestEvent{
		AnalysisID: "a1", BusinessType: "bakery",
	}))

	seen := map[hermes.Source]bool{}
	for i := 0; i < 3; i++ {
		select {
		case d := <-got:
			require.NoError(t, d.evt.Validate())
			assert.Equal(t, "a1", d.evt.AnalysisID)
			assert.Equal(t, hermes.SubjectScoreResponse("a1", d.evt.Source), d.subject)
			seen[d.evt.Source] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for scout responses")
		}
	}
	assert.Len(t, seen, 3)
}
