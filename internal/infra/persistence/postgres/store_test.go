package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"placementcore/pkg/domain"
)

var stubSeq uint64

// stubConn is a minimal database/sql driver backing the store with an
// in-memory bucket table, so the persistence path can be exercised without
// a running Postgres server.
type stubConn struct {
	mu      sync.Mutex
	buckets map[string][]byte
	execs   []string
}

func newStubDB(t *testing.T) (*sql.DB, *stubConn) {
	t.Helper()
	conn := &stubConn{buckets: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", atomic.AddUint64(&stubSeq, 1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		t.Fatalf("open stub: %v", err)
	}
	return db, conn
}

type stubDriver struct{ conn *stubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }
func (c *stubConn) Ping(context.Context) error          { return nil }

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return stubTx{}, nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, query)
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO STATE") {
		if len(args) != 2 {
			return nil, fmt.Errorf("unexpected args %v", args)
		}
		bucket, _ := args[0].Value.(string)
		payload, _ := args[1].Value.([]byte)
		c.buckets[bucket] = append([]byte(nil), payload...)
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(query, "FROM state") {
		return nil, fmt.Errorf("unexpected query %q", query)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.buckets))
	for name := range c.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := &stubRows{}
	for _, name := range names {
		rows.rows = append(rows.rows, [2]any{name, append([]byte(nil), c.buckets[name]...)})
	}
	return rows, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	rows [][2]any
	pos  int
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	dest[0] = r.rows[r.pos][0]
	dest[1] = r.rows[r.pos][1]
	r.pos++
	return nil
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	db, conn := newStubDB(t)
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	if _, err := NewStore(""); err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var sawDDL bool
	for _, stmt := range conn.execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.execs)
	}
}

func TestStorePersistsBucketsOnWrite(t *testing.T) {
	db, _ := newStubDB(t)
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	created, err := store.CreateDocument(context.Background(), domain.Document{
		ProjectID: "p1",
		Type:      domain.DocumentPerceptualMap,
		Extra:     json.RawMessage(`{"label":"alpha"}`),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	snapshot, err := loadSnapshot(context.Background(), db)
	if err != nil {
		t.Fatalf("loadSnapshot: %v", err)
	}
	doc, ok := snapshot.Documents[created.ID]
	if !ok {
		t.Fatalf("document missing from persisted snapshot: %v", snapshot.Documents)
	}
	if domain.DecodeSegmentExtra(doc.Extra).Label != "alpha" {
		t.Fatalf("payload lost in snapshot: %s", doc.Extra)
	}
}

func TestNewStoreHydratesFromSnapshot(t *testing.T) {
	db, conn := newStubDB(t)
	docs := map[string]domain.Document{
		"d1": {Base: domain.Base{ID: "d1"}, ProjectID: "p1", Type: domain.DocumentCohort},
	}
	payload, _ := json.Marshal(docs)
	conn.buckets[string(domain.DocumentCohort)] = payload

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.GetDocument(context.Background(), "d1"); err != nil {
		t.Fatalf("expected hydrated document: %v", err)
	}
}
