package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps the whole store in one JSON document. Writes replace the
// file atomically (temp file + rename) under a single-writer lock.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
	now    func() time.Time
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger, now: time.Now}
}

// Load never fails: a missing or unreadable document is an empty store.
func (s *FileStore) Load(_ context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, _ := s.readLocked()
	return doc, nil
}

func (s *FileStore) Get(ctx context.Context, id int64) (*ResultRecord, error) {
	doc, _ := s.Load(ctx)
	for _, r := range doc.Results {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (s *FileStore) Append(_ context.Context, rec *ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, state := s.readLocked()
	now := s.now().UTC()

	switch state {
	case docUnreadable:
		return fmt.Errorf("results store %s is unreadable, refusing to overwrite", s.path)
	case docCorrupt:
		aside := fmt.Sprintf("%s.corrupt-%s", s.path, now.Format("20060102T150405.000000000Z"))
		if err := os.Rename(s.path, aside); err != nil {
			return fmt.Errorf("move corrupt results store aside: %w", err)
		}
		s.logger.Warn("moved corrupt results store aside", "path", s.path, "moved_to", aside)
	}

	rec.ID = int64(len(doc.Results)) + 1
	rec.CreatedAt = now
	doc.Results = append(doc.Results, rec)

	if doc.Metadata.CreatedAt == nil {
		doc.Metadata.CreatedAt = &now
	}
	doc.Metadata.TotalEntries = int64(len(doc.Results))
	doc.Metadata.LastUpdated = &now

	if err := s.writeLocked(doc); err != nil {
		return fmt.Errorf("persist results: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

type docState int

const (
	docOK docState = iota
	docUnreadable
	docCorrupt
)

// readLocked returns an empty document when the file is missing or bad; the
// state tells Append whether the file on disk may be replaced.
func (s *FileStore) readLocked() (*Document, docState) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return emptyDocument(), docOK
	}
	if err != nil {
		s.logger.Error("failed to read results store, treating as empty", "path", s.path, "error", err)
		return emptyDocument(), docUnreadable
	}

	doc := emptyDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		s.logger.Error("results store is corrupt, treating as empty", "path", s.path, "error", err)
		return emptyDocument(), docCorrupt
	}
	if doc.Results == nil {
		doc.Results = []*ResultRecord{}
	}
	kept := doc.Results[:0]
	for _, r := range doc.Results {
		if r != nil {
			kept = append(kept, r)
		}
	}
	doc.Results = kept
	return doc, docOK
}

func (s *FileStore) writeLocked(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".results-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
