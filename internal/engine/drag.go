package engine

import (
	"context"
	"fmt"

	"placementcore/pkg/planar"
)

// dragSession is the in-flight state of one drag interaction. The engine
// tracks at most one session; a second pointer-down while dragging is
// rejected.
type dragSession struct {
	segment  int
	cohortID string

	// pointer position at grab time, in pixels.
	startPointer planar.Point
	// pin position at grab time, in display space.
	startDisplay planar.Point

	// pre-drag snapshot used for rollback when the commit write fails.
	hadPlacement bool
	origin       planar.Point
	wasActive    bool
}

type dragState struct {
	active  bool
	session dragSession
}

// Dragging reports whether a drag session is in flight.
func (e *Engine) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag.active
}

// PointerDown begins dragging the cohort's pin on the indexed segment. The
// pin must already have a position; cohorts enter the canvas through
// activation, not through drag. Pointer coordinates are in pixels.
func (e *Engine) PointerDown(i int, cohortID string, pointerX, pointerY float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag.active {
		return fmt.Errorf("drag already in progress for cohort %s", e.drag.session.cohortID)
	}
	if i < 0 || i >= len(e.segments) {
		return fmt.Errorf("segment index %d out of range", i)
	}
	seg := &e.segments[i]
	pos, ok := seg.Placements[cohortID]
	if !ok {
		return fmt.Errorf("cohort %s has no position on segment %s", cohortID, seg.Label)
	}
	e.drag = dragState{
		active: true,
		session: dragSession{
			segment:      i,
			cohortID:     cohortID,
			startPointer: planar.Point{X: pointerX, Y: pointerY},
			startDisplay: planar.ToDisplay(pos.X, pos.Y),
			hadPlacement: true,
			origin:       pos,
			wasActive:    seg.IsActive(cohortID),
		},
	}
	return nil
}

// PointerMove updates the live pin position from the pointer delta. The
// delta is normalized by the canvas size in pixels so engine state stays
// resolution independent. Moves outside an active session are ignored.
// No persistence happens here; moves are local until the pointer lifts.
func (e *Engine) PointerMove(pointerX, pointerY, canvasW, canvasH float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.drag.active || canvasW <= 0 || canvasH <= 0 {
		return
	}
	s := &e.drag.session
	disp := planar.Point{
		X: planar.Clamp01(s.startDisplay.X + (pointerX-s.startPointer.X)/canvasW),
		Y: planar.Clamp01(s.startDisplay.Y + (pointerY-s.startPointer.Y)/canvasH),
	}
	e.segments[s.segment].Placements[s.cohortID] = planar.ToDomain(disp.X, disp.Y)
}

// PointerUp commits the drag: the settled position persists through the
// sync adapter and, because placing implies selecting, the cohort joins the
// active set. A failed write rolls the pin back to its pre-drag position
// and membership. Pointer-up without a session is a no-op.
func (e *Engine) PointerUp(ctx context.Context) error {
	return e.commitDrag(ctx)
}

// PointerCancel ends the drag exactly like PointerUp: there is no
// distinguishable cancelled-mid-drag state, a cancel commits at the current
// position.
func (e *Engine) PointerCancel(ctx context.Context) error {
	return e.commitDrag(ctx)
}

func (e *Engine) commitDrag(ctx context.Context) (err error) {
	start := e.now()

	e.mu.Lock()
	if !e.drag.active {
		e.mu.Unlock()
		return nil
	}
	s := e.drag.session
	e.drag = dragState{}
	seg := &e.segments[s.segment]
	pos := seg.Placements[s.cohortID]
	seg.Active[s.cohortID] = true
	label := seg.Label
	e.mu.Unlock()

	defer func() { e.observe(ctx, "set_placement", start, err) }()

	if err = e.sync.SetPlacement(ctx, e.projectID, label, s.cohortID, pos.X, pos.Y); err != nil {
		e.rollbackDrag(s)
		e.notify.Error("Could not save the new position. The pin was moved back.")
		return fmt.Errorf("commit placement: %w", err)
	}
	return nil
}

func (e *Engine) rollbackDrag(s dragSession) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restoreSnapshot(s)
}

// restoreSnapshot must be called with e.mu held.
func (e *Engine) restoreSnapshot(s dragSession) {
	seg := &e.segments[s.segment]
	if s.hadPlacement {
		seg.Placements[s.cohortID] = s.origin
	} else {
		delete(seg.Placements, s.cohortID)
	}
	if s.wasActive {
		seg.Active[s.cohortID] = true
	} else {
		delete(seg.Active, s.cohortID)
	}
}
