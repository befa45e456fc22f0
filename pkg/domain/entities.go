// Package domain defines the core persistent entities, document payloads, and
// collaborator contracts used by placementcore.
package domain

import (
	"sort"
	"time"

	"placementcore/pkg/planar"
)

// DocumentType identifies the kind of record stored in the document store.
type DocumentType string

// Supported document type identifiers used in persistence buckets.
const (
	// DocumentCohort identifies a cohort record.
	DocumentCohort DocumentType = "cohort"
	// DocumentPerceptualMap identifies a perceptual-map segment record.
	DocumentPerceptualMap DocumentType = "perceptual_map"
	// DocumentWinnerSelection identifies the winner-selection record.
	DocumentWinnerSelection DocumentType = "winner_selection"
)

// CohortState represents the canonical cohort lifecycle states. The lifecycle
// is owned by the external item-management system; the engine only reads it.
type CohortState string

// Canonical cohort lifecycle states.
const (
	CohortDraft    CohortState = "draft"
	CohortSelected CohortState = "selected"
	CohortArchived CohortState = "archived"
)

// Axis selects one of the two labelled axes of a segment.
type Axis string

// Axis identifiers used by SetAxisLabels.
const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// SegmentCount is the fixed number of independent perceptual maps.
const SegmentCount = 3

// DefaultSegmentLabels name the three fixed segment slots.
var DefaultSegmentLabels = [SegmentCount]string{"alpha", "beta", "gamma"}

// Base contains common fields for all document records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cohort represents a user-facing labelled item that can be placed on a
// segment. The engine reads ID and Title and reacts to archival; the textual
// content is produced elsewhere.
type Cohort struct {
	Base
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	WhyItMatters string      `json:"why_it_matters"`
	State        CohortState `json:"state"`
}

// Archived reports whether the cohort has been removed upstream.
func (c Cohort) Archived() bool { return c.State == CohortArchived }

// AxisLabels holds the two labelled ends of each axis. Index 0 is the
// "start"/"top" end. The labels carry no numeric semantics.
type AxisLabels struct {
	X [2]string `json:"x"`
	Y [2]string `json:"y"`
}

// Segment is the runtime state of one perceptual map: its axis labels, the
// authoritative set of active cohort ids, and the domain-space placements.
// Placements may reference ids that are no longer active; stale entries are
// tolerated and simply not surfaced.
type Segment struct {
	Label      string                  `json:"label"`
	Labels     AxisLabels              `json:"axis_labels"`
	Active     map[string]bool         `json:"active"`
	Placements map[string]planar.Point `json:"placements"`
}

// NewSegment constructs an empty segment with the given label.
func NewSegment(label string) Segment {
	return Segment{
		Label:      label,
		Active:     make(map[string]bool),
		Placements: make(map[string]planar.Point),
	}
}

// ActiveIDs returns the active cohort ids in deterministic order.
func (s Segment) ActiveIDs() []string {
	ids := make([]string, 0, len(s.Active))
	for id, on := range s.Active {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// IsActive reports membership of the cohort in the segment's active set.
func (s Segment) IsActive(cohortID string) bool { return s.Active[cohortID] }

// Clone returns a deep copy so callers cannot mutate shared state.
func (s Segment) Clone() Segment {
	out := Segment{Label: s.Label, Labels: s.Labels}
	out.Active = make(map[string]bool, len(s.Active))
	for k, v := range s.Active {
		out.Active[k] = v
	}
	out.Placements = make(map[string]planar.Point, len(s.Placements))
	for k, v := range s.Placements {
		out.Placements[k] = v
	}
	return out
}

// WinnerSlot names one of the three mutually exclusive ranking slots.
type WinnerSlot string

// Canonical winner slots in rank order.
const (
	SlotPrimary   WinnerSlot = "primary"
	SlotSecondary WinnerSlot = "secondary"
	SlotTertiary  WinnerSlot = "tertiary"
)

// WinnerSlots lists the slots in rank order.
var WinnerSlots = [3]WinnerSlot{SlotPrimary, SlotSecondary, SlotTertiary}

// WinnerSelection binds each ranking slot to a cohort id, or nil when unset.
// No id may occupy more than one slot.
type WinnerSelection struct {
	Primary   *string `json:"primary"`
	Secondary *string `json:"secondary"`
	Tertiary  *string `json:"tertiary"`
}

// Get returns the occupant of the slot, or nil.
func (w WinnerSelection) Get(slot WinnerSlot) *string {
	switch slot {
	case SlotPrimary:
		return w.Primary
	case SlotSecondary:
		return w.Secondary
	case SlotTertiary:
		return w.Tertiary
	}
	return nil
}

// Set assigns the slot to the given id. A nil id clears the slot without
// validation. Assigning an id already held by another slot fails.
func (w *WinnerSelection) Set(slot WinnerSlot, id *string) error {
	if id != nil {
		for _, other := range WinnerSlots {
			if other == slot {
				continue
			}
			if cur := w.Get(other); cur != nil && *cur == *id {
				return ErrSlotConflict{Slot: other, CohortID: *id}
			}
		}
	}
	switch slot {
	case SlotPrimary:
		w.Primary = id
	case SlotSecondary:
		w.Secondary = id
	case SlotTertiary:
		w.Tertiary = id
	default:
		return ErrUnknownSlot{Slot: slot}
	}
	return nil
}

// Clone returns a selection with its own copies of the slot ids.
func (w WinnerSelection) Clone() WinnerSelection {
	cp := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := *s
		return &v
	}
	return WinnerSelection{
		Primary:   cp(w.Primary),
		Secondary: cp(w.Secondary),
		Tertiary:  cp(w.Tertiary),
	}
}

// Complete reports whether all three slots are occupied.
func (w WinnerSelection) Complete() bool {
	return w.Primary != nil && w.Secondary != nil && w.Tertiary != nil
}

// OccupiedExcept returns the ids held by slots other than the given one.
func (w WinnerSelection) OccupiedExcept(slot WinnerSlot) map[string]bool {
	out := make(map[string]bool, 2)
	for _, other := range WinnerSlots {
		if other == slot {
			continue
		}
		if cur := w.Get(other); cur != nil {
			out[*cur] = true
		}
	}
	return out
}
