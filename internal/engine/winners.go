package engine

import (
	"context"
	"fmt"

	"placementcore/pkg/domain"
)

// Winners returns a copy of the in-progress winner selection.
func (e *Engine) Winners() domain.WinnerSelection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winners.Clone()
}

// WinnerCandidates lists the cohorts eligible for the given slot: every
// non-archived cohort not already holding one of the other slots. The
// slot's current occupant stays in its own candidate list so the picker can
// re-render it as selected.
func (e *Engine) WinnerCandidates(slot domain.WinnerSlot) ([]domain.Cohort, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	taken := e.winners.OccupiedExcept(slot)
	var out []domain.Cohort
	for _, c := range e.cohorts {
		if c.Archived() || taken[c.ID] {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// SetWinnerSlot assigns a cohort to a slot in the local selection. An id
// already holding another slot is rejected; nothing persists until
// SaveWinners.
func (e *Engine) SetWinnerSlot(slot domain.WinnerSlot, cohortID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winners.Set(slot, &cohortID)
}

// ClearWinnerSlot empties a slot in the local selection.
func (e *Engine) ClearWinnerSlot(slot domain.WinnerSlot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winners.Set(slot, nil)
}

// CanSaveWinners reports whether all three slots are filled.
func (e *Engine) CanSaveWinners() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winners.Complete()
}

// SaveWinners persists the complete selection as one atomic write and
// notifies the outcome.
func (e *Engine) SaveWinners(ctx context.Context) (err error) {
	start := e.now()
	defer func() { e.observe(ctx, "save_winners", start, err) }()

	e.mu.Lock()
	sel := e.winners.Clone()
	e.mu.Unlock()

	if err = e.sync.SaveWinners(ctx, e.projectID, sel); err != nil {
		e.notify.Error("Could not save the winner selection. Please try again.")
		return fmt.Errorf("save winners: %w", err)
	}
	e.notify.Success("Winner selection saved.")
	return nil
}
