package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int { return &v }

func record(business, demo string, rent float64, overall *int) *ResultRecord {
	return &ResultRecord{
		ScoreRequest: ScoreRequest{BusinessType: business, TargetDemo: demo, RentEstimate: rent},
		Status:       StatusComplete,
		OverallScore: overall,
	}
}

func TestFileStore_AppendAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "results.json"), discardLogger())

	for i := 1; i <= 3; i++ {
		rec := record("coffee shop", "students", 3000, intPtr(60+i))
		require.NoError(t, s.Append(ctx, rec))
		assert.Equal(t, int64(i), rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())

		doc, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(i), doc.Metadata.TotalEntries)
		require.NotNil(t, doc.Metadata.LastUpdated)
	}

	got, err := s.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 62, *got.OverallScore)

	missing, err := s.Get(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFileStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "results.json"), discardLogger())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, record("bakery", "", 0, nil)))
		}()
	}
	wg.Wait()

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Results, n)
	for i, r := range doc.Results {
		assert.Equal(t, int64(i+1), r.ID)
	}
	assert.Equal(t, int64(n), doc.Metadata.TotalEntries)
}

func TestFileStore_MissingAndCorrupt(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	doc, err := NewFileStore(filepath.Join(dir, "nope.json"), discardLogger()).Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, doc.Results)
	assert.Empty(t, doc.Results)

	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s := NewFileStore(path, discardLogger())
	doc, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Results)

	rec := record("bar", "", 0, nil)
	require.NoError(t, s.Append(ctx, rec))
	assert.Equal(t, int64(1), rec.ID)

	// the corrupt document is kept next to the new one
	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	kept, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(kept))

	doc, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Results, 1)
	assert.Equal(t, "bar", doc.Results[0].BusinessType)
}

func TestFileStore_UnreadableIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	// a directory at the store path cannot be read as a file
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	s := NewFileStore(path, discardLogger())
	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Results)

	err = s.Append(ctx, record("bar", "", 0, nil))
	require.Error(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileStore_RoundTripsSubResults(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "results.json"), discardLogger())

	rec := record("coffee shop", "young professionals", 4000, intPtr(86))
	rec.AnalysisID = "abc"
	rec.Location = &scoring.LocationResult{Score: 80, Confidence: scoring.ConfidenceHigh}
	rec.Competitor = &scoring.CompetitorResult{Score: 90}
	rec.Revenue = &scoring.RevenueProjection{Moderate: 36000, BreakevenMonths: 5, Assumptions: []string{"x"}}
	require.NoError(t, s.Append(ctx, rec))

	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.AnalysisID)
	assert.Equal(t, 80, got.Location.Score)
	assert.Equal(t, 36000, got.Revenue.Moderate)
	assert.Equal(t, "young professionals", got.TargetDemo)
}

func TestFilter(t *testing.T) {
	withIDs := func(recs ...*ResultRecord) []*ResultRecord {
		for i, r := range recs {
			r.ID = int64(i + 1)
		}
		return recs
	}

	t.Run("alias and substring match", func(t *testing.T) {
		recs := withIDs(
			record("coffee shop", "", 3000, intPtr(70)),
			record("Coffee Shop", "", 3000, intPtr(80)),
		)
		got := Filter(recs, Query{BusinessType: "coffee"})
		require.Len(t, got, 2)
		assert.Equal(t, int64(2), got[0].ID)

		got = Filter(recs, Query{BusinessType: "cafe"})
		assert.Len(t, got, 2)
	})

	t.Run("boba alias", func(t *testing.T) {
		recs := withIDs(record("boba tea shop", "", 0, nil), record("bakery", "", 0, nil))
		got := Filter(recs, Query{BusinessType: "tea shop"})
		require.Len(t, got, 1)
		assert.Equal(t, "boba tea shop", got[0].BusinessType)

		got = Filter(recs, Query{BusinessType: "bake shop"})
		require.Len(t, got, 1)
		assert.Equal(t, "bakery", got[0].BusinessType)
	})

	t.Run("budget excludes expensive records", func(t *testing.T) {
		recs := withIDs(
			record("coffee shop", "", 4000, intPtr(90)),
			record("coffee shop", "", 7000, intPtr(95)),
		)
		got := Filter(recs, Query{BusinessType: "coffee", MonthlyBudget: 4000})
		require.Len(t, got, 1)
		assert.Equal(t, 4000.0, got[0].RentEstimate)

		got = Filter(recs, Query{BusinessType: "coffee", MonthlyBudget: 5000})
		assert.Len(t, got, 2)
	})

	t.Run("falls back to all records", func(t *testing.T) {
		recs := withIDs(
			record("coffee shop", "", 9000, intPtr(50)),
			record("gym", "", 9000, intPtr(60)),
		)
		got := Filter(recs, Query{BusinessType: "coffee", MonthlyBudget: 1000})
		require.Len(t, got, 2)
		assert.Equal(t, "gym", got[0].BusinessType)
	})

	t.Run("unscored last and demographic breaks ties", func(t *testing.T) {
		recs := withIDs(
			record("bar", "retirees", 0, nil),
			record("bar", "retirees", 0, intPtr(70)),
			record("bar", "students", 0, intPtr(70)),
			record("bar", "families", 0, intPtr(90)),
		)
		got := Filter(recs, Query{BusinessType: "bar", TargetDemo: "student"})
		ids := []int64{}
		for _, r := range got {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []int64{4, 3, 2, 1}, ids)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Filter(nil, Query{BusinessType: "coffee"}))
	})
}

func TestMatches(t *testing.T) {
	assert.True(t, BusinessMatches("coffee shop", ""))
	assert.True(t, BusinessMatches("Coffee Shop", "coffee shop"))
	assert.False(t, BusinessMatches("", "coffee"))
	assert.False(t, BusinessMatches("gym", "coffee"))
	assert.True(t, DemoMatches("Young Professionals", "professional"))
	assert.True(t, DemoMatches("families and millennials", "families"))
	assert.False(t, DemoMatches("students", "families"))
}
