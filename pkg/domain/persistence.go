package domain

import (
	"context"
	"encoding/json"
)

// Document is a generic project-scoped JSON record. The engine treats Extra
// as an opaque blob; writes replace the whole payload (read-modify-write at
// document granularity, never field-level patches).
type Document struct {
	Base
	ProjectID string          `json:"project_id"`
	Type      DocumentType    `json:"type"`
	Extra     json.RawMessage `json:"extra"`
}

// CloneExtra returns a copy of the raw payload bytes.
func (d Document) CloneExtra() json.RawMessage {
	if len(d.Extra) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(d.Extra))
	copy(out, d.Extra)
	return out
}

// DocumentStore is the abstraction over durable document backends. It
// mirrors the async CRUD surface of the remote store the engine syncs with.
type DocumentStore interface {
	// QueryByProjectAndType returns every document of the given type in the
	// project, in deterministic id order. An empty slice is not an error.
	QueryByProjectAndType(ctx context.Context, projectID string, typ DocumentType) ([]Document, error)
	// GetDocument fetches a single document by id.
	GetDocument(ctx context.Context, id string) (Document, error)
	// CreateDocument persists a new document. A missing id is assigned by
	// the store.
	CreateDocument(ctx context.Context, doc Document) (Document, error)
	// UpdateDocument replaces the document's extra payload wholesale.
	UpdateDocument(ctx context.Context, id string, extra json.RawMessage) (Document, error)
}
