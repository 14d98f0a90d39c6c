package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxPool is the subset of *pgxpool.Pool the store uses.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type PostgresStore struct {
	pool   pgxPool
	logger *slog.Logger
	now    func() time.Time
}

func NewPostgresStore(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger, now: time.Now}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS vantage_results (
	id            BIGINT PRIMARY KEY,
	analysis_id   TEXT,
	business_type TEXT NOT NULL,
	overall_score INT,
	created_at    TIMESTAMPTZ NOT NULL,
	record        JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS vantage_results_meta (
	id            INT PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	total_entries BIGINT NOT NULL,
	last_updated  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vantage_results_business_type ON vantage_results(business_type);`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Append locks the results table so concurrent writers get consecutive ids.
func (s *PostgresStore) Append(ctx context.Context, rec *ResultRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("append result: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `LOCK TABLE vantage_results IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("append result: lock: %w", err)
	}

	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM vantage_results`).Scan(&count); err != nil {
		return fmt.Errorf("append result: count: %w", err)
	}

	now := s.now().UTC()
	rec.ID = count + 1
	rec.CreatedAt = now
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("append result: marshal: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO vantage_results (id, analysis_id, business_type, overall_score, created_at, record)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.AnalysisID, rec.BusinessType, rec.OverallScore, now, payload,
	); err != nil {
		return fmt.Errorf("append result: insert: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO vantage_results_meta (id, created_at, total_entries, last_updated)
		VALUES (1, $1, $2, $1)
		ON CONFLICT (id) DO UPDATE SET total_entries = EXCLUDED.total_entries, last_updated = EXCLUDED.last_updated`,
		now, rec.ID,
	); err != nil {
		return fmt.Errorf("append result: metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("append result: commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*ResultRecord, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM vantage_results WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result %d: %w", id, err)
	}
	rec := &ResultRecord{}
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, fmt.Errorf("decode result %d: %w", id, err)
	}
	return rec, nil
}

// Load degrades to an empty document when the database cannot be read.
func (s *PostgresStore) Load(ctx context.Context) (*Document, error) {
	doc, err := s.load(ctx)
	if err != nil {
		s.logger.Error("failed to load results, treating as empty", "error", err)
		return emptyDocument(), nil
	}
	return doc, nil
}

func (s *PostgresStore) load(ctx context.Context) (*Document, error) {
	doc := emptyDocument()

	rows, err := s.pool.Query(ctx, `SELECT record FROM vantage_results ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("load results: scan: %w", err)
		}
		rec := &ResultRecord{}
		if err := json.Unmarshal(payload, rec); err != nil {
			continue
		}
		doc.Results = append(doc.Results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}

	var createdAt, lastUpdated time.Time
	err = s.pool.QueryRow(ctx, `SELECT created_at, total_entries, last_updated FROM vantage_results_meta WHERE id = 1`).
		Scan(&createdAt, &doc.Metadata.TotalEntries, &lastUpdated)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load metadata: %w", err)
	default:
		doc.Metadata.CreatedAt = &createdAt
		doc.Metadata.LastUpdated = &lastUpdated
	}
	return doc, nil
}
