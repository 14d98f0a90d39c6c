package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	fixed := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	return &PostgresStore{pool: mock, logger: discardLogger(), now: func() time.Time { return fixed }}, mock
}

func TestPostgresStore_Append(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`LOCK TABLE vantage_results IN EXCLUSIVE MODE`).
		WillReturnResult(pgxmock.NewResult("LOCK TABLE", 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM vantage_results`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectExec(`INSERT INTO vantage_results \(`).
		WithArgs(int64(5), "analysis-1", "bakery", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO vantage_results_meta`).
		WithArgs(pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	rec := record("bakery", "", 2000, intPtr(64))
	rec.AnalysisID = "analysis-1"
	require.NoError(t, s.Append(context.Background(), rec))
	assert.Equal(t, int64(5), rec.ID)
	assert.Equal(t, 2026, rec.CreatedAt.Year())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Append_InsertFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`LOCK TABLE`).WillReturnResult(pgxmock.NewResult("LOCK TABLE", 0))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectExec(`INSERT INTO vantage_results \(`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Append(context.Background(), record("bakery", "", 0, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM vantage_results WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"record"}).
			AddRow([]byte(`{"id":3,"business_type":"bar","status":"complete","overall_score":71}`)))

	rec, err := s.Get(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "bar", rec.BusinessType)
	assert.Equal(t, 71, *rec.OverallScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM vantage_results WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	mock.ExpectQuery(`SELECT record FROM vantage_results ORDER BY id`).
		WillReturnRows(pgxmock.NewRows([]string{"record"}).
			AddRow([]byte(`{"id":1,"business_type":"bar"}`)).
			AddRow([]byte(`{"id":2,"business_type":"gym"}`)))
	mock.ExpectQuery(`SELECT created_at, total_entries, last_updated FROM vantage_results_meta`).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "total_entries", "last_updated"}).
			AddRow(created, int64(2), updated))

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Results, 2)
	assert.Equal(t, "gym", doc.Results[1].BusinessType)
	assert.Equal(t, int64(2), doc.Metadata.TotalEntries)
	assert.Equal(t, updated, *doc.Metadata.LastUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM vantage_results ORDER BY id`).
		WillReturnRows(pgxmock.NewRows([]string{"record"}))
	mock.ExpectQuery(`SELECT created_at, total_entries, last_updated FROM vantage_results_meta`).
		WillReturnError(pgx.ErrNoRows)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc.Results)
	assert.Nil(t, doc.Metadata.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_DegradesOnQueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM vantage_results ORDER BY id`).
		WillReturnError(errors.New("connection reset"))

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.NotNil(t, doc.Results)
	assert.Empty(t, doc.Results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load_DegradesOnMetadataError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT record FROM vantage_results ORDER BY id`).
		WillReturnRows(pgxmock.NewRows([]string{"record"}).
			AddRow([]byte(`{"id":1,"business_type":"bar"}`)))
	mock.ExpectQuery(`SELECT created_at, total_entries, last_updated FROM vantage_results_meta`).
		WillReturnError(errors.New("permission denied"))

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc.Results)
	assert.Zero(t, doc.Metadata.TotalEntries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
