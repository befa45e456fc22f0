// Package postgres provides a Postgres-backed document store that mirrors
// the in-memory semantics while snapshotting full state as JSONB buckets.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"placementcore/internal/infra/persistence/memory"
	"placementcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain
// interface.
var _ domain.DocumentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/placementcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen replaces the sql.Open seam for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driver, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

// Store persists state to Postgres while reusing the in-memory
// implementation for reads and indexing.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), ensures the snapshot table exists, and hydrates the
// in-memory store from any existing snapshot.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore()
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{Documents: make(map[string]domain.Document)}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan: %w", err)
		}
		var docs map[string]domain.Document
		if err := json.Unmarshal(payload, &docs); err != nil {
			return memory.Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
		}
		for id, doc := range docs {
			snapshot.Documents[id] = doc
		}
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	return snapshot, nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	byType := make(map[domain.DocumentType]map[string]domain.Document)
	for id, doc := range snapshot.Documents {
		if _, ok := byType[doc.Type]; !ok {
			byType[doc.Type] = make(map[string]domain.Document)
		}
		byType[doc.Type][id] = doc
	}

	tx, err := s.db.BeginTx(ctx, nil)
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
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, string(bucket), data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// CreateDocument persists a new document, then snapshots to Postgres.
func (s *Store) CreateDocument(ctx context.Context, doc domain.Document) (domain.Document, error) {
	created, err := s.Store.CreateDocument(ctx, doc)
	if err != nil {
		return created, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return created, domain.TransientError{Err: pErr}
	}
	return created, nil
}

// UpdateDocument replaces the document payload, then snapshots to Postgres.
func (s *Store) UpdateDocument(ctx context.Context, id string, extra json.RawMessage) (domain.Document, error) {
	updated, err := s.Store.UpdateDocument(ctx, id, extra)
	if err != nil {
		return updated, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return updated, domain.TransientError{Err: pErr}
	}
	return updated, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
