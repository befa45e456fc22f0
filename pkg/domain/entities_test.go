package domain

import (
	"errors"
	"testing"

	"placementcore/pkg/planar"
)

func strptr(s string) *string { return &s }

func TestWinnerSelectionSetRejectsDuplicates(t *testing.T) {
	var sel WinnerSelection
	if err := sel.Set(SlotPrimary, strptr("x")); err != nil {
		t.Fatalf("set primary: %v", err)
	}
	err := sel.Set(SlotSecondary, strptr("x"))
	if err == nil {
		t.Fatal("expected conflict assigning x to a second slot")
	}
	var conflict ErrSlotConflict
	if !errors.As(err, &conflict) || conflict.Slot != SlotPrimary {
		t.Fatalf("expected conflict against primary, got %v", err)
	}
	// re-assigning the same slot to its current occupant is a no-op reselect
	if err := sel.Set(SlotPrimary, strptr("x")); err != nil {
		t.Fatalf("no-op reselect should succeed: %v", err)
	}
}

func TestWinnerSelectionClearAndComplete(t *testing.T) {
	var sel WinnerSelection
	for i, slot := range WinnerSlots {
		if sel.Complete() {
			t.Fatalf("selection complete after %d slots", i)
		}
		if err := sel.Set(slot, strptr(string(slot)+"-id")); err != nil {
			t.Fatalf("set %s: %v", slot, err)
		}
	}
	if !sel.Complete() {
		t.Fatal("expected complete selection")
	}
	if err := sel.Set(SlotSecondary, nil); err != nil {
		t.Fatalf("clearing slot: %v", err)
	}
	if sel.Complete() {
		t.Fatal("selection should be incomplete after clear")
	}
}

func TestWinnerSelectionOccupiedExcept(t *testing.T) {
	sel := WinnerSelection{Primary: strptr("a"), Secondary: strptr("b")}
	used := sel.OccupiedExcept(SlotSecondary)
	if !used["a"] || used["b"] {
		t.Fatalf("expected {a} excluded set, got %v", used)
	}
}

func TestSegmentCloneIsolation(t *testing.T) {
	seg := NewSegment("alpha")
	seg.Active["a"] = true
	seg.Placements["a"] = planar.Point{X: 0.2, Y: 0.4}

	clone := seg.Clone()
	clone.Active["b"] = true
	clone.Placements["a"] = planar.Point{X: -1, Y: -1}

	if seg.Active["b"] {
		t.Fatal("clone mutation leaked into active set")
	}
	if seg.Placements["a"] != (planar.Point{X: 0.2, Y: 0.4}) {
		t.Fatal("clone mutation leaked into placements")
	}
}

func TestSegmentActiveIDsSortedAndFiltered(t *testing.T) {
	seg := NewSegment("alpha")
	seg.Active["c"] = true
	seg.Active["a"] = true
	seg.Active["b"] = false
	ids := seg.ActiveIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("unexpected active ids %v", ids)
	}
}
