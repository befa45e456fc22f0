// Package sqlite provides a SQLite-backed document store that mirrors the
// in-memory semantics while persisting full-state snapshots after every
// successful write.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"placementcore/internal/infra/persistence/memory"
	"placementcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain
// interface.
var _ domain.DocumentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs,
// one bucket per document type.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path and hydrates the
// in-memory store from any existing snapshot.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "placementcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var buckets = []domain.DocumentType{
	domain.DocumentCohort,
	domain.DocumentPerceptualMap,
	domain.DocumentWinnerSelection,
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{Documents: make(map[string]domain.Document)}
	loaded := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		var docs map[string]domain.Document
		if err := json.Unmarshal(payload, &docs); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
		for id, doc := range docs {
			snapshot.Documents[id] = doc
		}
		loaded = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if loaded {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	byType := make(map[domain.DocumentType]map[string]domain.Document, len(buckets))
	for _, bucket := range buckets {
		byType[bucket] = make(map[string]domain.Document)
	}
	for id, doc := range snapshot.Documents {
		if _, ok := byType[doc.Type]; !ok {
			byType[doc.Type] = make(map[string]domain.Document)
		}
		byType[doc.Type][id] = doc
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for bucket, docs := range byType {
		data, err := json.Marshal(docs)
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, string(bucket), data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// CreateDocument persists a new document, then snapshots state to SQLite.
func (s *Store) CreateDocument(ctx context.Context, doc domain.Document) (domain.Document, error) {
	created, err := s.Store.CreateDocument(ctx, doc)
	if err != nil {
		return created, err
	}
	if pErr := s.persist(); pErr != nil {
		return created, domain.TransientError{Err: pErr}
	}
	return created, nil
}

// UpdateDocument replaces the document payload, then snapshots state to
// SQLite.
func (s *Store) UpdateDocument(ctx context.Context, id string, extra json.RawMessage) (domain.Document, error) {
	updated, err := s.Store.UpdateDocument(ctx, id, extra)
	if err != nil {
		return updated, err
	}
	if pErr := s.persist(); pErr != nil {
		return updated, domain.TransientError{Err: pErr}
	}
	return updated, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
