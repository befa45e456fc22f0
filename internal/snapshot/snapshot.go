// Package snapshot exports point-in-time JSON artifacts of a project's
// placement state to blob storage, for audit trails and offline analysis.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"placementcore/internal/blob"
	"placementcore/internal/docsync"
	"placementcore/pkg/domain"
)

// ArtifactVersion identifies the snapshot payload layout.
const ArtifactVersion = 1

// ContentType of exported artifacts.
const ContentType = "application/json"

// SegmentSnapshot is the exported form of one segment. Placements are
// emitted in deterministic wire form, ordered by cohort id.
type SegmentSnapshot struct {
	Label     string                  `json:"label"`
	Labels    domain.AxisLabels       `json:"axis_labels"`
	ActiveIDs []string                `json:"active_ids"`
	Entries   []domain.PlacementEntry `json:"placements"`
}

// Artifact is the versioned snapshot payload written to blob storage.
type Artifact struct {
	Version    int                     `json:"version"`
	ProjectID  string                  `json:"project_id"`
	ExportedAt time.Time               `json:"exported_at"`
	Cohorts    []domain.Cohort         `json:"cohorts"`
	Segments   []SegmentSnapshot       `json:"segments"`
	Winners    *domain.WinnerSelection `json:"winners,omitempty"`
}

// Exporter reads project state through the sync adapter and writes
// immutable artifacts to a blob store.
type Exporter struct {
	sync  *docsync.Adapter
	blobs blob.Store
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger overrides the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Exporter) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDSource overrides the artifact id source. Intended for tests.
func WithIDSource(newID func() string) Option {
	return func(e *Exporter) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// NewExporter constructs an exporter over the given adapter and blob store.
func NewExporter(adapter *docsync.Adapter, blobs blob.Store, opts ...Option) *Exporter {
	e := &Exporter{
		sync:  adapter,
		blobs: blobs,
		log:   slog.Default(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Key returns the blob key for a project snapshot artifact id.
func Key(projectID, artifactID string) string {
	return fmt.Sprintf("snapshots/%s/%s.json", projectID, artifactID)
}

// Export captures the project's current cohorts, segments, and winner
// selection into a new immutable artifact and returns its blob info.
func (e *Exporter) Export(ctx context.Context, projectID string) (blob.Info, error) {
	if projectID == "" {
		return blob.Info{}, fmt.Errorf("project id is required")
	}
	ws, err := e.sync.LoadAll(ctx, projectID)
	if err != nil {
		return blob.Info{}, fmt.Errorf("load project %s: %w", projectID, err)
	}
	winners, err := e.sync.LoadWinners(ctx, projectID)
	if err != nil {
		return blob.Info{}, fmt.Errorf("load winners: %w", err)
	}

	art := Artifact{
		Version:    ArtifactVersion,
		ProjectID:  projectID,
		ExportedAt: e.now(),
		Cohorts:    ws.Cohorts,
	}
	for _, seg := range ws.Segments {
		wire := domain.SegmentExtraFrom(seg)
		art.Segments = append(art.Segments, SegmentSnapshot{
			Label:     seg.Label,
			Labels:    seg.Labels,
			ActiveIDs: seg.ActiveIDs(),
			Entries:   wire.Placements,
		})
	}
	if winners != (domain.WinnerSelection{}) {
		art.Winners = &winners
	}

	raw, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode artifact: %w", err)
	}

	key := Key(projectID, e.newID())
	info, err := e.blobs.Put(ctx, key, bytes.NewReader(raw), blob.PutOptions{
		ContentType: ContentType,
		Metadata: map[string]string{
			"project_id":  projectID,
			"exported_at": art.ExportedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store artifact %s: %w", key, err)
	}
	e.log.Info("snapshot exported", "project", projectID, "key", key, "bytes", info.Size)
	return info, nil
}

// List returns the stored artifacts for a project, ordered by key.
func (e *Exporter) List(ctx context.Context, projectID string) ([]blob.Info, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	return e.blobs.List(ctx, fmt.Sprintf("snapshots/%s/", projectID))
}

// Fetch reads an artifact back by blob key.
func (e *Exporter) Fetch(ctx context.Context, key string) (Artifact, error) {
	_, rc, err := e.blobs.Get(ctx, key)
	if err != nil {
		return Artifact{}, fmt.Errorf("fetch artifact %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return Artifact{}, fmt.Errorf("read artifact %s: %w", key, err)
	}
	var art Artifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return Artifact{}, fmt.Errorf("decode artifact %s: %w", key, err)
	}
	return art, nil
}
