package docsync

import (
	"context"
	"fmt"

	"placementcore/pkg/domain"
	"placementcore/pkg/planar"
)

// Workspace is the full project state returned by LoadAll.
type Workspace struct {
	Cohorts  []domain.Cohort
	Segments []domain.Segment
}

// Selection is the authoritative placement/selection set of one segment, as
// returned by the resync primitive LoadSegmentSelection.
type Selection struct {
	ActiveIDs  []string
	Placements map[string]planar.Point
	// Migrated reports that the active-id list was derived from legacy
	// placement data during this load.
	Migrated bool
}

// LoadAll fetches every cohort and segment document for the project. It
// returns ErrNotFound when the project has no documents at all, signalling
// that a fresh generation flow is required.
func (a *Adapter) LoadAll(ctx context.Context, projectID string) (Workspace, error) {
	if projectID == "" {
		return Workspace{}, fmt.Errorf("project id is required")
	}
	cohortDocs, err := a.store.QueryByProjectAndType(ctx, projectID, domain.DocumentCohort)
	if err != nil {
		return Workspace{}, fmt.Errorf("query cohorts: %w", err)
	}
	mapDocs, err := a.store.QueryByProjectAndType(ctx, projectID, domain.DocumentPerceptualMap)
	if err != nil {
		return Workspace{}, fmt.Errorf("query perceptual maps: %w", err)
	}
	if len(cohortDocs) == 0 && len(mapDocs) == 0 {
		return Workspace{}, domain.ErrNotFound{Type: domain.DocumentCohort}
	}

	ws := Workspace{}
	for _, doc := range cohortDocs {
		extra := domain.DecodeCohortExtra(doc.Extra)
		ws.Cohorts = append(ws.Cohorts, domain.Cohort{
			Base:         doc.Base,
			Title:        extra.Title,
			Description:  extra.Description,
			WhyItMatters: extra.WhyItMatters,
			State:        extra.State,
		})
	}

	byLabel := make(map[string]domain.Segment, len(mapDocs))
	for _, doc := range mapDocs {
		extra := domain.DecodeSegmentExtra(doc.Extra)
		byLabel[extra.Label] = extra.Segment()
	}
	for _, label := range domain.DefaultSegmentLabels {
		seg, ok := byLabel[label]
		if !ok {
			seg = domain.NewSegment(label)
		}
		ws.Segments = append(ws.Segments, seg)
	}
	return ws, nil
}

// LoadSegmentSelection fetches the authoritative active-id list and
// placements for the labelled segment, running the legacy migration when the
// stored payload predates explicit selection lists.
//
// The migration is an explicit two-phase operation: read, detect legacy,
// derive the list, persist the derived payload best-effort, then return the
// derived state to the caller. A failed write-back never blocks the read.
func (a *Adapter) LoadSegmentSelection(ctx context.Context, projectID, label string) (Selection, error) {
	if projectID == "" {
		return Selection{}, fmt.Errorf("project id is required")
	}
	doc, extra, err := a.segmentDocument(ctx, projectID, label)
	if err != nil {
		return Selection{}, err
	}

	sel := Selection{Placements: make(map[string]planar.Point)}
	for _, p := range extra.Placements {
		sel.Placements[p.CohortID] = planar.Point{X: planar.ClampUnit(p.X), Y: planar.ClampUnit(p.Y)}
	}

	if extra.HasSelection() {
		sel.ActiveIDs = append(sel.ActiveIDs, extra.SelectedCohortIDs...)
	} else {
		sel.ActiveIDs = deriveActiveIDs(extra)
		sel.Migrated = true
	}

	synthesized := a.synthesizeMissingPlacements(&sel)

	if sel.Migrated || synthesized {
		a.persistDerived(ctx, doc, extra, sel)
	}
	return sel, nil
}

// deriveActiveIDs reconstructs the active set from legacy placement data,
// preserving first-appearance order.
func deriveActiveIDs(extra domain.SegmentExtra) []string {
	seen := make(map[string]bool, len(extra.Placements))
	var ids []string
	for _, p := range extra.Placements {
		if seen[p.CohortID] {
			continue
		}
		seen[p.CohortID] = true
		ids = append(ids, p.CohortID)
	}
	return ids
}

// synthesizeMissingPlacements assigns a random padded position to every
// active id lacking one, honoring the invariant that settled active ids
// always have placements. Reports whether anything was synthesized.
func (a *Adapter) synthesizeMissingPlacements(sel *Selection) bool {
	synthesized := false
	for _, id := range sel.ActiveIDs {
		if _, ok := sel.Placements[id]; ok {
			continue
		}
		disp := a.randomPaddedDisplay()
		sel.Placements[id] = planar.ToDomain(disp.X, disp.Y)
		synthesized = true
	}
	return synthesized
}

// persistDerived writes the migrated/synthesized state back so future loads
// skip migration. Best-effort: failures are logged and swallowed.
func (a *Adapter) persistDerived(ctx context.Context, doc domain.Document, extra domain.SegmentExtra, sel Selection) {
	seg := extra.Segment()
	seg.Active = make(map[string]bool, len(sel.ActiveIDs))
	for _, id := range sel.ActiveIDs {
		seg.Active[id] = true
	}
	for id, p := range sel.Placements {
		seg.Placements[id] = p
	}
	raw, err := domain.EncodeExtra(domain.SegmentExtraFrom(seg))
	if err != nil {
		a.log.Warn("encode derived segment payload", "doc", doc.ID, "err", err)
		return
	}
	if err := a.writeExtra(ctx, doc.ID, raw); err != nil {
		a.log.Warn("persisting derived selection failed, continuing with local state",
			"doc", doc.ID, "err", err)
	}
}
