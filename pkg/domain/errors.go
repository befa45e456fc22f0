package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested document does not exist. For the
// project-level load this signals that a fresh generation flow is required,
// not a user-facing failure.
type ErrNotFound struct {
	Type DocumentType
	ID   string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("no %s documents found", e.Type)
	}
	return fmt.Sprintf("%s %s not found", e.Type, e.ID)
}

// IsNotFound reports whether err is (or wraps) an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// ErrSlotConflict is returned when a winner slot assignment would place a
// cohort id into two slots at once.
type ErrSlotConflict struct {
	Slot     WinnerSlot
	CohortID string
}

func (e ErrSlotConflict) Error() string {
	return fmt.Sprintf("cohort %s already occupies %s slot", e.CohortID, e.Slot)
}

// ErrUnknownSlot is returned for winner slot names outside the canonical set.
type ErrUnknownSlot struct {
	Slot WinnerSlot
}

func (e ErrUnknownSlot) Error() string {
	return fmt.Sprintf("unknown winner slot %q", e.Slot)
}

// TransientError marks a persistence failure as retryable. Write paths wrap
// backend errors they consider transient; the sync adapter's retry loop only
// re-attempts errors carrying this marker.
type TransientError struct {
	Err error
}

func (e TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }

// Unwrap exposes the underlying cause.
func (e TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te TransientError
	return errors.As(err, &te)
}
