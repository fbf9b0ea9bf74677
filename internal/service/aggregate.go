package service

import (
	"context"

	"gorm.io/gorm"

	"lendtrack/internal/repo"
)

// Recalculator rewrites an item's total/available counters from its units'
// live state. It always runs on the caller's transaction handle so the
// counters are never observably stale within a committed transaction.
type Recalculator struct {
	catalog catalogStore
}

func NewRecalculator(catalog *repo.CatalogRepo) *Recalculator {
	return &Recalculator{catalog: gormCatalogStore{catalog}}
}

func (a *Recalculator) ByUnitIDs(ctx context.Context, tx *gorm.DB, unitIDs []uint) error {
	cat := a.catalog.WithTx(tx)
	itemIDs, err := cat.ItemIDsOfUnits(ctx, uniqueIDs(unitIDs))
	if err != nil {
		return err
	}
	return a.ByItemIDs(ctx, tx, itemIDs)
}

func (a *Recalculator) ByItemIDs(ctx context.Context, tx *gorm.DB, itemIDs []uint) error {
	cat := a.catalog.WithTx(tx)
	for _, itemID := range uniqueIDs(itemIDs) {
		total, available, err := cat.CountUnits(ctx, itemID)
		if err != nil {
			return err
		}
		if err := cat.SetItemCounters(ctx, itemID, int(total), int(available)); err != nil {
			return err
		}
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
