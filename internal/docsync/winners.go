package docsync

import (
	"context"
	"fmt"

	"placementcore/pkg/domain"
)

// LoadWinners fetches the project's winner selection. A project without a
// winner document yields the zero selection, not an error.
func (a *Adapter) LoadWinners(ctx context.Context, projectID string) (domain.WinnerSelection, error) {
	if projectID == "" {
		return domain.WinnerSelection{}, fmt.Errorf("project id is required")
	}
	docs, err := a.store.QueryByProjectAndType(ctx, projectID, domain.DocumentWinnerSelection)
	if err != nil {
		return domain.WinnerSelection{}, fmt.Errorf("query winner selection: %w", err)
	}
	if len(docs) == 0 {
		return domain.WinnerSelection{}, nil
	}
	return domain.DecodeWinnerExtra(docs[0].Extra).Selection(), nil
}

// SaveWinners persists the full selection as a single atomic document
// write. The selection must be complete and free of duplicate ids; there is
// no partial commit.
func (a *Adapter) SaveWinners(ctx context.Context, projectID string, sel domain.WinnerSelection) error {
	if projectID == "" {
		return fmt.Errorf("project id is required")
	}
	if !sel.Complete() {
		return fmt.Errorf("winner selection incomplete: all three slots are required")
	}
	seen := make(map[string]domain.WinnerSlot, 3)
	for _, slot := range domain.WinnerSlots {
		id := *sel.Get(slot)
		if prev, dup := seen[id]; dup {
			return domain.ErrSlotConflict{Slot: prev, CohortID: id}
		}
		seen[id] = slot
	}

	raw, err := domain.EncodeExtra(domain.WinnerExtraFrom(sel))
	if err != nil {
		return fmt.Errorf("encode winner selection: %w", err)
	}

	docs, err := a.store.QueryByProjectAndType(ctx, projectID, domain.DocumentWinnerSelection)
	if err != nil {
		return fmt.Errorf("query winner selection: %w", err)
	}
	if len(docs) == 0 {
		_, err := a.store.CreateDocument(ctx, domain.Document{
			ProjectID: projectID,
			Type:      domain.DocumentWinnerSelection,
			Extra:     raw,
		})
		if err != nil {
			return fmt.Errorf("create winner selection: %w", err)
		}
		return nil
	}
	return a.writeExtra(ctx, docs[0].ID, raw)
}
