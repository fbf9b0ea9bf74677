package repo

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lendtrack/internal/domain"
)

type CatalogRepo struct{ db *gorm.DB }

func NewCatalogRepo(db *gorm.DB) *CatalogRepo { return &CatalogRepo{db: db} }

func (r *CatalogRepo) WithTx(tx *gorm.DB) *CatalogRepo { return &CatalogRepo{db: tx} }

// Items

func (r *CatalogRepo) FindItem(ctx context.Context, id uint, activeOnly bool) (*domain.Item, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var it domain.Item
	err := q.First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &it, err
}

// ListItems filters by numeric id or name substring.
func (r *CatalogRepo) ListItems(ctx context.Context, search string, activeOnly bool) ([]domain.Item, error) {
	q := r.db.WithContext(ctx).Model(&domain.Item{}).Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if s := strings.TrimSpace(search); s != "" {
		if id, err := strconv.Atoi(s); err == nil {
			q = q.Where("id = ?", id)
		} else {
			q = q.Where("name LIKE ?", "%"+s+"%")
		}
	}
	var items []domain.Item
	err := q.Find(&items).Error
	return items, err
}

func (r *CatalogRepo) CreateItem(ctx context.Context, it *domain.Item) error {
	return r.db.WithContext(ctx).Create(it).Error
}

func (r *CatalogRepo) UpdateItem(ctx context.Context, id uint, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Item{}).Where("id = ?", id).Updates(fields).Error
}

func (r *CatalogRepo) SetItemCounters(ctx context.Context, id uint, total, available int) error {
	return r.db.WithContext(ctx).Model(&domain.Item{}).Where("id = ?", id).
		Updates(map[string]any{"total": total, "available": available}).Error
}

// Units

func (r *CatalogRepo) FindUnit(ctx context.Context, id uint, activeOnly bool) (*domain.PatrimonyUnit, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var u domain.PatrimonyUnit
	err := q.First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &u, err
}

func (r *CatalogRepo) UnitsByItem(ctx context.Context, itemID uint, activeOnly bool) ([]domain.PatrimonyUnit, error) {
	q := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var units []domain.PatrimonyUnit
	err := q.Find(&units).Error
	return units, err
}

func (r *CatalogRepo) UnitsByItems(ctx context.Context, itemIDs []uint) ([]domain.PatrimonyUnit, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var units []domain.PatrimonyUnit
	err := r.db.WithContext(ctx).Where("item_id IN ?", itemIDs).Order("id").Find(&units).Error
	return units, err
}

// UnitsByIDs loads the given units; with forUpdate it takes row locks so the
// caller's transaction serializes against concurrent flag flips.
func (r *CatalogRepo) UnitsByIDs(ctx context.Context, ids []uint, forUpdate bool) ([]domain.PatrimonyUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).Where("id IN ?", ids)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var units []domain.PatrimonyUnit
	err := q.Find(&units).Error
	return units, err
}

func (r *CatalogRepo) SerialTaken(ctx context.Context, serial string, excludeID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&domain.PatrimonyUnit{}).Where("serial = ?", serial)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *CatalogRepo) CreateUnit(ctx context.Context, u *domain.PatrimonyUnit) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *CatalogRepo) UpdateUnit(ctx context.Context, id uint, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.PatrimonyUnit{}).Where("id = ?", id).Updates(fields).Error
}

func (r *CatalogRepo) SetUnitsActive(ctx context.Context, itemID uint, active bool) error {
	return r.db.WithContext(ctx).Model(&domain.PatrimonyUnit{}).Where("item_id = ?", itemID).
		Update("active", active).Error
}

func (r *CatalogRepo) SetUnitsOnLoan(ctx context.Context, ids []uint, onLoan bool) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.PatrimonyUnit{}).Where("id IN ?", ids).
		Update("on_loan", onLoan).Error
}

func (r *CatalogRepo) CountUnitsOnLoan(ctx context.Context, itemID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.PatrimonyUnit{}).
		Where("item_id = ? AND on_loan = ?", itemID, true).
		Count(&n).Error
	return n, err
}

// ItemIDsOfUnits resolves units to their distinct owning item ids.
func (r *CatalogRepo) ItemIDsOfUnits(ctx context.Context, unitIDs []uint) ([]uint, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	var itemIDs []uint
	err := r.db.WithContext(ctx).Model(&domain.PatrimonyUnit{}).
		Distinct("item_id").
		Where("id IN ?", unitIDs).
		Pluck("item_id", &itemIDs).Error
	return itemIDs, err
}

// CountUnits returns the aggregate pair for one item: active units, and
// active units not on loan.
func (r *CatalogRepo) CountUnits(ctx context.Context, itemID uint) (total, available int64, err error) {
	m := r.db.WithContext(ctx).Model(&domain.PatrimonyUnit{})
	if err = m.Session(&gorm.Session{}).
		Where("item_id = ? AND active = ?", itemID, true).
		Count(&total).Error; err != nil {
		return
	}
	err = m.Session(&gorm.Session{}).
		Where("item_id = ? AND active = ? AND on_loan = ?", itemID, true, false).
		Count(&available).Error
	return
}
