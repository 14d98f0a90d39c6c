package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_AppendGetLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Results)
	assert.Zero(t, doc.Metadata.TotalEntries)

	a := record("coffee shop", "students", 3000, intPtr(77))
	b := record("bakery", "families", 2500, nil)
	require.NoError(t, s.Append(ctx, a))
	require.NoError(t, s.Append(ctx, b))
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)

	got, err := s.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "students", got.TargetDemo)
	assert.Equal(t, 77, *got.OverallScore)

	missing, err := s.Get(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, missing)

	doc, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Results, 2)
	assert.Equal(t, int64(2), doc.Metadata.TotalEntries)
	require.NotNil(t, doc.Metadata.CreatedAt)
}

func TestSQLiteStore_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, record("gym", "", 0, nil)))
		}()
	}
	wg.Wait()

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc.Results, 10)
	for i, r := range doc.Results {
		assert.Equal(t, int64(i+1), r.ID)
	}
}

func TestSQLiteStore_LoadWithoutSchemaIsEmpty(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Empty(t, doc.Results)
}
