// Package memory provides an in-memory implementation of the document store
// used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"placementcore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the
// domain persistence interface.
var _ domain.DocumentStore = (*Store)(nil)

// Store keeps every document in process memory behind a mutex. Reads return
// deep copies so callers can never mutate shared state.
type Store struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
	now  func() time.Time
}

// NewStore constructs an empty in-memory document store.
func NewStore() *Store {
	return &Store{
		docs: make(map[string]domain.Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.now = now
	}
}

func newID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("memory store id generation: %w", err))
	}
	return hex.EncodeToString(buf)
}

func cloneDocument(doc domain.Document) domain.Document {
	out := doc
	out.Extra = doc.CloneExtra()
	return out
}

// QueryByProjectAndType returns the project's documents of the given type in
// ascending id order. An empty result is not an error.
func (s *Store) QueryByProjectAndType(_ context.Context, projectID string, typ domain.DocumentType) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Document
	for _, doc := range s.docs {
		if doc.ProjectID == projectID && doc.Type == typ {
			out = append(out, cloneDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetDocument fetches a single document by id.
func (s *Store) GetDocument(_ context.Context, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound{ID: id}
	}
	return cloneDocument(doc), nil
}

// CreateDocument persists a new document, assigning id and timestamps when
// missing.
func (s *Store) CreateDocument(_ context.Context, doc domain.Document) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = newID()
	}
	if _, exists := s.docs[doc.ID]; exists {
		return domain.Document{}, fmt.Errorf("document %s already exists", doc.ID)
	}
	ts := s.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = ts
	}
	doc.UpdatedAt = ts
	s.docs[doc.ID] = cloneDocument(doc)
	return cloneDocument(doc), nil
}

// UpdateDocument replaces the document's extra payload wholesale and bumps
// its update timestamp.
func (s *Store) UpdateDocument(_ context.Context, id string, extra json.RawMessage) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound{ID: id}
	}
	doc.Extra = append(json.RawMessage(nil), extra...)
	doc.UpdatedAt = s.now()
	s.docs[id] = doc
	return cloneDocument(doc), nil
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Documents map[string]domain.Document `json:"documents"`
}

// ExportState returns a deep copy of all documents keyed by id.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Documents: make(map[string]domain.Document, len(s.docs))}
	for id, doc := range s.docs {
		snap.Documents[id] = cloneDocument(doc)
	}
	return snap
}

// ImportState replaces the store contents with the snapshot.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]domain.Document, len(snap.Documents))
	for id, doc := range snap.Documents {
		s.docs[id] = cloneDocument(doc)
	}
}
