package docsync

import (
	"context"
	"fmt"

	"placementcore/pkg/domain"
	"placementcore/pkg/planar"
)

// SetCohortActive toggles a cohort's membership in the segment's active set.
// The call is idempotent: activating an already-active id or deactivating an
// already-inactive id succeeds without a write. Activation without an
// existing placement assigns a random padded position before the active list
// is updated. Deactivation retains the placement so a later re-activation
// restores the last known position.
func (a *Adapter) SetCohortActive(ctx context.Context, projectID, label, cohortID string, active bool) error {
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}
	unlock := a.lockKey(label, cohortID)
	defer unlock()

	doc, extra, err := a.segmentDocument(ctx, projectID, label)
	if err != nil {
		return err
	}
	seg := extra.Segment()
	if seg.IsActive(cohortID) == active {
		return nil
	}
	if active {
		if _, ok := seg.Placements[cohortID]; !ok {
			disp := a.randomPaddedDisplay()
			seg.Placements[cohortID] = planar.ToDomain(disp.X, disp.Y)
		}
		seg.Active[cohortID] = true
	} else {
		delete(seg.Active, cohortID)
	}
	return a.writeSegment(ctx, doc.ID, seg)
}

// SetPlacement upserts a single domain-space placement. Placing a pin
// implies selecting it: an inactive cohort is added to the active list.
func (a *Adapter) SetPlacement(ctx context.Context, projectID, label, cohortID string, x, y float64) error {
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}
	unlock := a.lockKey(label, cohortID)
	defer unlock()

	doc, extra, err := a.segmentDocument(ctx, projectID, label)
	if err != nil {
		return err
	}
	seg := extra.Segment()
	seg.Placements[cohortID] = planar.Point{X: planar.ClampUnit(x), Y: planar.ClampUnit(y)}
	seg.Active[cohortID] = true
	return a.writeSegment(ctx, doc.ID, seg)
}

// SetAxisLabels replaces both ends of one axis of the labelled segment.
func (a *Adapter) SetAxisLabels(ctx context.Context, projectID, label string, axis domain.Axis, labels [2]string) error {
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}
	unlock := a.lockKey(label, "axis:"+string(axis))
	defer unlock()

	doc, extra, err := a.segmentDocument(ctx, projectID, label)
	if err != nil {
		return err
	}
	seg := extra.Segment()
	switch axis {
	case domain.AxisX:
		seg.Labels.X = labels
	case domain.AxisY:
		seg.Labels.Y = labels
	default:
		return fmt.Errorf("unknown axis %q", axis)
	}
	return a.writeSegment(ctx, doc.ID, seg)
}

// DeleteCohort marks the cohort document archived. Segment placements
// referencing it are left alone; stale entries are tolerated and filtered by
// active-id membership at render time.
func (a *Adapter) DeleteCohort(ctx context.Context, projectID, cohortID string) error {
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}
	doc, err := a.store.GetDocument(ctx, cohortID)
	if err != nil {
		return fmt.Errorf("load cohort %s: %w", cohortID, err)
	}
	extra := domain.DecodeCohortExtra(doc.Extra)
	extra.State = domain.CohortArchived
	raw, err := domain.EncodeExtra(extra)
	if err != nil {
		return fmt.Errorf("encode cohort %s: %w", cohortID, err)
	}
	return a.writeExtra(ctx, doc.ID, raw)
}

func (a *Adapter) writeSegment(ctx context.Context, docID string, seg domain.Segment) error {
	raw, err := domain.EncodeExtra(domain.SegmentExtraFrom(seg))
	if err != nil {
		return fmt.Errorf("encode segment: %w", err)
	}
	return a.writeExtra(ctx, docID, raw)
}
