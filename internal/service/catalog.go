package service

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lendtrack/internal/domain"
	"lendtrack/internal/repo"
)

// CatalogService owns item and patrimony-unit master data. The lending
// engine is the only writer of the on-loan flag; this service guards the
// remaining unit state (serial, active) and the item counters.
type CatalogService struct {
	db      *gorm.DB
	catalog *repo.CatalogRepo
	loans   *repo.LoanRepo
	recalc  *Recalculator
	policy  *Policy
	log     *zap.Logger
}

func NewCatalogService(db *gorm.DB, catalog *repo.CatalogRepo, loans *repo.LoanRepo,
	recalc *Recalculator, policy *Policy, log *zap.Logger) *CatalogService {
	return &CatalogService{db: db, catalog: catalog, loans: loans, recalc: recalc, policy: policy, log: log}
}

type UpdateItemInput struct {
	Name        *string
	Description *string
	Active      *bool
}

type UpdateUnitInput struct {
	Serial *string
	Active *bool
}

// List returns items visible to the caller, each enriched with its unit list
// and counters recomputed live from those units.
func (s *CatalogService) List(ctx context.Context, caller *Caller, search string) ([]domain.ItemView, error) {
	items, err := s.catalog.ListItems(ctx, search, !caller.Admin)
	if err != nil {
		return nil, domain.Internal("list items", err)
	}
	itemIDs := make([]uint, 0, len(items))
	for _, it := range items {
		itemIDs = append(itemIDs, it.ID)
	}
	units, err := s.catalog.UnitsByItems(ctx, itemIDs)
	if err != nil {
		return nil, domain.Internal("list units", err)
	}

	byItem := make(map[uint][]domain.PatrimonyUnit, len(items))
	for _, u := range units {
		if !caller.Admin && !u.Active {
			continue
		}
		byItem[u.ItemID] = append(byItem[u.ItemID], u)
	}

	views := make([]domain.ItemView, 0, len(items))
	for _, it := range items {
		v := domain.ItemView{Item: it, Units: byItem[it.ID]}
		v.Total, v.Available = countAggregates(byItem[it.ID])
		views = append(views, v)
	}
	return views, nil
}

func (s *CatalogService) Get(ctx context.Context, caller *Caller, id uint) (*domain.ItemView, error) {
	it, err := s.catalog.FindItem(ctx, id, !caller.Admin)
	if err != nil {
		return nil, domain.Internal("find item", err)
	}
	if it == nil {
		return nil, domain.NotFound("item not found")
	}
	units, err := s.catalog.UnitsByItem(ctx, id, !caller.Admin)
	if err != nil {
		return nil, domain.Internal("list units", err)
	}
	v := domain.ItemView{Item: *it, Units: units}
	v.Total, v.Available = countAggregates(units)
	return &v, nil
}

func (s *CatalogService) GetUnit(ctx context.Context, caller *Caller, id uint) (*domain.PatrimonyUnit, error) {
	u, err := s.catalog.FindUnit(ctx, id, !caller.Admin)
	if err != nil {
		return nil, domain.Internal("find unit", err)
	}
	if u == nil {
		return nil, domain.NotFound("unit not found")
	}
	return u, nil
}

func (s *CatalogService) Units(ctx context.Context, caller *Caller, itemID uint) ([]domain.PatrimonyUnit, error) {
	units, err := s.catalog.UnitsByItem(ctx, itemID, !caller.Admin)
	if err != nil {
		return nil, domain.Internal("list units", err)
	}
	return units, nil
}

// CreateItem inserts an item with zeroed counters and echoes back the active
// item list.
func (s *CatalogService) CreateItem(ctx context.Context, name, description string) ([]domain.Item, error) {
	if name == "" {
		return nil, domain.InvalidArgument("item name is required")
	}
	it := domain.Item{Name: name, Description: description, Active: true}
	if err := s.catalog.CreateItem(ctx, &it); err != nil {
		return nil, domain.Internal("insert item", err)
	}
	items, err := s.catalog.ListItems(ctx, "", true)
	if err != nil {
		return nil, domain.Internal("list items", err)
	}
	return items, nil
}

// CreateUnit inserts a unit under an item. Serial tags are unique across the
// whole system, not per item.
func (s *CatalogService) CreateUnit(ctx context.Context, itemID uint, serial string) ([]domain.PatrimonyUnit, error) {
	if serial == "" {
		return nil, domain.InvalidArgument("serial tag is required")
	}
	it, err := s.catalog.FindItem(ctx, itemID, false)
	if err != nil {
		return nil, domain.Internal("find item", err)
	}
	if it == nil {
		return nil, domain.NotFound("item not found")
	}
	taken, err := s.catalog.SerialTaken(ctx, serial, 0)
	if err != nil {
		return nil, domain.Internal("check serial", err)
	}
	if taken {
		return nil, domain.Conflict("serial tag already registered")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u := domain.PatrimonyUnit{ItemID: itemID, Serial: serial, Active: true}
		if err := s.catalog.WithTx(tx).CreateUnit(ctx, &u); err != nil {
			return domain.Internal("insert unit", err)
		}
		return s.recalc.ByItemIDs(ctx, tx, []uint{itemID})
	})
	if err != nil {
		s.log.Error("create unit failed", zap.Uint("itemId", itemID), zap.Error(err))
		return nil, err
	}
	return s.catalog.UnitsByItem(ctx, itemID, true)
}

// UpdateItem edits item fields. Only an admin may toggle the active flag;
// deactivation is refused while any unit is out, and an explicit toggle
// cascades onto the item's units.
func (s *CatalogService) UpdateItem(ctx context.Context, caller *Caller, id uint, in UpdateItemInput) ([]domain.Item, error) {
	if in.Active != nil {
		if err := s.policy.RequireAdmin(caller); err != nil {
			return nil, err
		}
	}
	it, err := s.catalog.FindItem(ctx, id, !caller.Admin)
	if err != nil {
		return nil, domain.Internal("find item", err)
	}
	if it == nil {
		return nil, domain.NotFound("item not found")
	}
	if in.Active != nil && !*in.Active {
		n, err := s.catalog.CountUnitsOnLoan(ctx, id)
		if err != nil {
			return nil, domain.Internal("count units on loan", err)
		}
		if n > 0 {
			return nil, domain.Conflict("item cannot be deactivated while it has units on loan")
		}
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if len(fields) == 0 {
		return nil, domain.InvalidArgument("no fields to update")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog := s.catalog.WithTx(tx)
		if err := catalog.UpdateItem(ctx, id, fields); err != nil {
			return domain.Internal("update item", err)
		}
		if in.Active != nil {
			if err := catalog.SetUnitsActive(ctx, id, *in.Active); err != nil {
				return domain.Internal("cascade unit status", err)
			}
			return s.recalc.ByItemIDs(ctx, tx, []uint{id})
		}
		return nil
	})
	if err != nil {
		s.log.Error("update item failed", zap.Uint("itemId", id), zap.Error(err))
		return nil, err
	}
	items, err := s.catalog.ListItems(ctx, "", true)
	if err != nil {
		return nil, domain.Internal("list items", err)
	}
	return items, nil
}

// UpdateUnit edits a unit's serial or active flag. A unit on loan cannot be
// edited at all; serial renames cascade into loan-line snapshots.
func (s *CatalogService) UpdateUnit(ctx context.Context, caller *Caller, id uint, in UpdateUnitInput) ([]domain.PatrimonyUnit, error) {
	if in.Active != nil {
		if err := s.policy.RequireAdmin(caller); err != nil {
			return nil, err
		}
	}
	u, err := s.catalog.FindUnit(ctx, id, !caller.Admin)
	if err != nil {
		return nil, domain.Internal("find unit", err)
	}
	if u == nil {
		return nil, domain.NotFound("unit not found")
	}
	if u.OnLoan {
		return nil, domain.Conflict("unit is on loan and cannot be edited")
	}
	if in.Serial != nil {
		taken, err := s.catalog.SerialTaken(ctx, *in.Serial, id)
		if err != nil {
			return nil, domain.Internal("check serial", err)
		}
		if taken {
			return nil, domain.Conflict("serial tag already registered")
		}
	}

	fields := map[string]any{}
	if in.Serial != nil {
		fields["serial"] = *in.Serial
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if len(fields) == 0 {
		return nil, domain.InvalidArgument("no fields to update")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog := s.catalog.WithTx(tx)
		if err := catalog.UpdateUnit(ctx, id, fields); err != nil {
			return domain.Internal("update unit", err)
		}
		if in.Serial != nil {
			if err := s.loans.WithTx(tx).UpdateLineSerials(ctx, id, *in.Serial); err != nil {
				return domain.Internal("cascade serial to loan lines", err)
			}
		}
		if in.Active != nil {
			return s.recalc.ByItemIDs(ctx, tx, []uint{u.ItemID})
		}
		return nil
	})
	if err != nil {
		s.log.Error("update unit failed", zap.Uint("unitId", id), zap.Error(err))
		return nil, err
	}
	return s.catalog.UnitsByItem(ctx, u.ItemID, true)
}

func countAggregates(units []domain.PatrimonyUnit) (total, available int) {
	for _, u := range units {
		if !u.Active {
			continue
		}
		total++
		if !u.OnLoan {
			available++
		}
	}
	return
}
