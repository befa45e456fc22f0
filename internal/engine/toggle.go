package engine

import (
	"context"
	"fmt"

	"placementcore/pkg/domain"
	"placementcore/pkg/planar"
)

// ToggleCohort flips a cohort's membership in the indexed segment's active
// set, optimistically in local state and then through the sync adapter.
//
// Activation reuses the cohort's retained placement when one exists;
// otherwise the engine picks a random padded position and persists it with
// the activation so local and stored positions agree. Deactivation removes
// the id from the active set but keeps the placement, so toggling back on
// restores the last known position. A failed write rolls local state back
// to the pre-toggle snapshot.
func (e *Engine) ToggleCohort(ctx context.Context, i int, cohortID string) (err error) {
	start := e.now()
	defer func() { e.observe(ctx, "toggle_cohort", start, err) }()

	e.mu.Lock()
	if i < 0 || i >= len(e.segments) {
		e.mu.Unlock()
		return fmt.Errorf("segment index %d out of range", i)
	}
	seg := &e.segments[i]
	label := seg.Label
	wasActive := seg.IsActive(cohortID)
	placement, hadPlacement := seg.Placements[cohortID]

	activating := !wasActive
	assigned := false
	if activating {
		if !hadPlacement {
			disp := e.randomPaddedDisplay()
			placement = planar.ToDomain(disp.X, disp.Y)
			seg.Placements[cohortID] = placement
			assigned = true
		}
		seg.Active[cohortID] = true
	} else {
		delete(seg.Active, cohortID)
	}
	e.mu.Unlock()

	if activating && assigned {
		// Persist the engine-chosen position together with the activation
		// so a concurrent reader never sees a different synthesized spot.
		err = e.sync.SetPlacement(ctx, e.projectID, label, cohortID, placement.X, placement.Y)
	} else {
		err = e.sync.SetCohortActive(ctx, e.projectID, label, cohortID, activating)
	}
	if err != nil {
		e.mu.Lock()
		seg := &e.segments[i]
		if wasActive {
			seg.Active[cohortID] = true
		} else {
			delete(seg.Active, cohortID)
		}
		if assigned {
			delete(seg.Placements, cohortID)
		}
		e.mu.Unlock()
		e.notify.Error("Could not update the selection. Please try again.")
		return fmt.Errorf("toggle cohort %s: %w", cohortID, err)
	}
	return nil
}

// SetAxisLabel replaces both ends of one axis on the indexed segment,
// optimistically with rollback on a failed write.
func (e *Engine) SetAxisLabel(ctx context.Context, i int, axis domain.Axis, labels [2]string) (err error) {
	start := e.now()
	defer func() { e.observe(ctx, "set_axis_labels", start, err) }()

	e.mu.Lock()
	if i < 0 || i >= len(e.segments) {
		e.mu.Unlock()
		return fmt.Errorf("segment index %d out of range", i)
	}
	seg := &e.segments[i]
	label := seg.Label
	prev := seg.Labels
	switch axis {
	case domain.AxisX:
		seg.Labels.X = labels
	case domain.AxisY:
		seg.Labels.Y = labels
	default:
		e.mu.Unlock()
		return fmt.Errorf("unknown axis %q", axis)
	}
	e.mu.Unlock()

	if err = e.sync.SetAxisLabels(ctx, e.projectID, label, axis, labels); err != nil {
		e.mu.Lock()
		e.segments[i].Labels = prev
		e.mu.Unlock()
		e.notify.Error("Could not save the axis labels. Please try again.")
		return fmt.Errorf("set axis labels: %w", err)
	}
	return nil
}
