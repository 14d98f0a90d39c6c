package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a single-file embedded backend for local runs.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

func NewSQLiteStore(dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS results (
	id            INTEGER PRIMARY KEY,
	analysis_id   TEXT,
	business_type TEXT NOT NULL,
	overall_score INTEGER,
	created_at    DATETIME NOT NULL,
	record        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS results_meta (
	id            INTEGER PRIMARY KEY,
	created_at    DATETIME NOT NULL,
	total_entries INTEGER NOT NULL,
	last_updated  DATETIME NOT NULL
);`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Append(ctx context.Context, rec *ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&count); err != nil {
		return fmt.Errorf("sqlite: count results: %w", err)
	}

	now := s.now().UTC()
	rec.ID = count + 1
	rec.CreatedAt = now
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sqlite: marshal result: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO results (id, analysis_id, business_type, overall_score, created_at, record) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AnalysisID, rec.BusinessType, rec.OverallScore, now, string(payload),
	); err != nil {
		return fmt.Errorf("sqlite: insert result: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO results_meta (id, created_at, total_entries, last_updated) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET total_entries = excluded.total_entries, last_updated = excluded.last_updated`,
		now, rec.ID, now,
	); err != nil {
		return fmt.Errorf("sqlite: update metadata: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*ResultRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM results WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get result %d: %w", id, err)
	}
	rec := &ResultRecord{}
	if err := json.Unmarshal([]byte(payload), rec); err != nil {
		return nil, fmt.Errorf("sqlite: decode result %d: %w", id, err)
	}
	return rec, nil
}

// Load degrades to an empty document when the database cannot be read.
func (s *SQLiteStore) Load(ctx context.Context) (*Document, error) {
	doc, err := s.load(ctx)
	if err != nil {
		s.logger.Error("sqlite: failed to load results, treating as empty", "error", err)
		return emptyDocument(), nil
	}
	return doc, nil
}

func (s *SQLiteStore) load(ctx context.Context) (*Document, error) {
	doc := emptyDocument()

	rows, err := s.db.QueryContext(ctx, `SELECT record FROM results ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sqlite: scan result: %w", err)
		}
		rec := &ResultRecord{}
		if err := json.Unmarshal([]byte(payload), rec); err != nil {
			continue
		}
		doc.Results = append(doc.Results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: load results: %w", err)
	}

	var createdAt, lastUpdated time.Time
	err = s.db.QueryRowContext(ctx, `SELECT created_at, total_entries, last_updated FROM results_meta WHERE id = 1`).
		Scan(&createdAt, &doc.Metadata.TotalEntries, &lastUpdated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("sqlite: load metadata: %w", err)
	default:
		doc.Metadata.CreatedAt = &createdAt
		doc.Metadata.LastUpdated = &lastUpdated
	}
	return doc, nil
}
