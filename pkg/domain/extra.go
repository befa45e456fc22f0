package domain

import (
	"encoding/json"
	"sort"

	"placementcore/pkg/planar"
)

// SchemaVersionSelection marks segment payloads that carry an explicit
// selected-cohort-id list. Version 0 (or an absent field) identifies legacy
// payloads whose active set must be derived from placements on load.
const SchemaVersionSelection = 1

// PlacementEntry is the wire form of a single pin placement. Coordinates are
// domain space, clamped to [-1,1] before persistence.
type PlacementEntry struct {
	CohortID string  `json:"cohortId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// SegmentExtra is the opaque payload carried by a perceptual-map document.
// X1/Y1 are the "first" end of each axis, X2/Y2 the "second"; which end is
// "better" is a caller-defined label, not a numeric property.
type SegmentExtra struct {
	SchemaVersion     int              `json:"schema_version,omitempty"`
	Label             string           `json:"label"`
	X1                string           `json:"x1"`
	X2                string           `json:"x2"`
	Y1                string           `json:"y1"`
	Y2                string           `json:"y2"`
	Placements        []PlacementEntry `json:"placements"`
	SelectedCohortIDs []string         `json:"selected_cohort_ids,omitempty"`
}

// HasSelection reports whether the payload carries an explicit active-id
// list. A present-but-empty list counts; only an absent field is legacy.
func (e SegmentExtra) HasSelection() bool {
	return e.SchemaVersion >= SchemaVersionSelection || e.SelectedCohortIDs != nil
}

// Segment converts the wire payload into runtime segment state.
func (e SegmentExtra) Segment() Segment {
	seg := NewSegment(e.Label)
	seg.Labels = AxisLabels{X: [2]string{e.X1, e.X2}, Y: [2]string{e.Y1, e.Y2}}
	for _, p := range e.Placements {
		seg.Placements[p.CohortID] = planar.Point{X: planar.ClampUnit(p.X), Y: planar.ClampUnit(p.Y)}
	}
	for _, id := range e.SelectedCohortIDs {
		seg.Active[id] = true
	}
	return seg
}

// SegmentExtraFrom builds the current-schema wire payload for a segment.
// Placements are emitted in deterministic cohort-id order.
func SegmentExtraFrom(seg Segment) SegmentExtra {
	e := SegmentExtra{
		SchemaVersion:     SchemaVersionSelection,
		Label:             seg.Label,
		X1:                seg.Labels.X[0],
		X2:                seg.Labels.X[1],
		Y1:                seg.Labels.Y[0],
		Y2:                seg.Labels.Y[1],
		SelectedCohortIDs: seg.ActiveIDs(),
	}
	ids := make([]string, 0, len(seg.Placements))
	for id := range seg.Placements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := seg.Placements[id]
		e.Placements = append(e.Placements, PlacementEntry{CohortID: id, X: p.X, Y: p.Y})
	}
	return e
}

// WinnerExtra is the opaque payload of the winner-selection document.
type WinnerExtra struct {
	Primary   *string `json:"primary"`
	Secondary *string `json:"secondary"`
	Tertiary  *string `json:"tertiary"`
}

// Selection converts the wire payload into a WinnerSelection.
func (e WinnerExtra) Selection() WinnerSelection {
	return WinnerSelection{Primary: e.Primary, Secondary: e.Secondary, Tertiary: e.Tertiary}
}

// WinnerExtraFrom builds the wire payload for a winner selection.
func WinnerExtraFrom(sel WinnerSelection) WinnerExtra {
	return WinnerExtra{Primary: sel.Primary, Secondary: sel.Secondary, Tertiary: sel.Tertiary}
}

// CohortExtra is the opaque payload of a cohort document.
type CohortExtra struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	WhyItMatters string      `json:"whyItMatters"`
	State        CohortState `json:"state"`
}

// DecodeSegmentExtra decodes a perceptual-map payload. Malformed or missing
// bytes recover to the zero-value payload rather than failing; the caller
// proceeds against empty defaults.
func DecodeSegmentExtra(raw json.RawMessage) SegmentExtra {
	var e SegmentExtra
	if len(raw) == 0 {
		return e
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return SegmentExtra{}
	}
	return e
}

// DecodeWinnerExtra decodes a winner-selection payload with the same
// malformed-recovery semantics as DecodeSegmentExtra.
func DecodeWinnerExtra(raw json.RawMessage) WinnerExtra {
	var e WinnerExtra
	if len(raw) == 0 {
		return e
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return WinnerExtra{}
	}
	return e
}

// DecodeCohortExtra decodes a cohort payload with malformed-recovery
// semantics.
func DecodeCohortExtra(raw json.RawMessage) CohortExtra {
	var e CohortExtra
	if len(raw) == 0 {
		return e
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return CohortExtra{}
	}
	return e
}

// EncodeExtra marshals a payload value into raw document bytes.
func EncodeExtra(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}
