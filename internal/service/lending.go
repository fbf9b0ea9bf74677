package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lendtrack/internal/domain"
	"lendtrack/internal/repo"
)

// LendingService is the state machine governing loan creation, augmentation,
// swap-edit and return. Every mutating operation runs as one transaction:
// unit availability is re-checked under row locks inside that transaction, so
// of two concurrent borrows of a unit the first committer wins and the second
// fails with Conflict.
type LendingService struct {
	db      *gorm.DB
	loans   loanStore
	catalog catalogStore
	people  personFinder
	recalc  *Recalculator
	policy  *Policy
	log     *zap.Logger
	runTx   txRunner
}

func NewLendingService(db *gorm.DB, loans *repo.LoanRepo, catalog *repo.CatalogRepo,
	people *repo.PersonRepo, recalc *Recalculator, policy *Policy, log *zap.Logger) *LendingService {
	return &LendingService{
		db:      db,
		loans:   gormLoanStore{loans},
		catalog: gormCatalogStore{catalog},
		people:  people,
		recalc:  recalc,
		policy:  policy,
		log:     log,
		runTx: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return db.WithContext(ctx).Transaction(fn)
		},
	}
}

type CreateLoanInput struct {
	LoanDate time.Time
	PersonID uint
	UnitIDs  []uint
	Reason   string
}

type SwapInput struct {
	OldUnitIDs []uint
	NewUnitIDs []uint
	PersonID   *uint
	Active     *bool
}

type ReturnInput struct {
	ReturnDate time.Time
	UnitIDs    []uint
}

// List returns loans visible to the caller, each with its full line set.
func (s *LendingService) List(ctx context.Context, caller *Caller, f repo.LoanFilter) ([]domain.LoanView, error) {
	loans, err := s.loans.ListLoans(ctx, f, !caller.Admin)
	if err != nil {
		return nil, domain.Internal("list loans", err)
	}
	views := make([]domain.LoanView, 0, len(loans))
	for _, l := range loans {
		v, err := s.loanView(ctx, s.db, l, !caller.Admin)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, nil
}

func (s *LendingService) Get(ctx context.Context, caller *Caller, id uint) (*domain.LoanView, error) {
	loan, err := s.loans.FindLoan(ctx, id, !caller.Admin, false)
	if err != nil {
		return nil, domain.Internal("find loan", err)
	}
	if loan == nil {
		return nil, domain.NotFound("loan not found")
	}
	return s.loanView(ctx, s.db, *loan, !caller.Admin)
}

// Create checks every precondition in order before any write, then performs
// the loan insert, line inserts, flag flips and aggregate recompute as one
// transaction.
func (s *LendingService) Create(ctx context.Context, caller *Caller, in CreateLoanInput) (*domain.LoanView, error) {
	if len(in.UnitIDs) == 0 {
		return nil, domain.InvalidArgument("at least one unit is required")
	}
	if hasDuplicates(in.UnitIDs) {
		return nil, domain.InvalidArgument("duplicate unit ids in request")
	}

	person, err := s.people.FindByID(ctx, in.PersonID)
	if err != nil {
		return nil, domain.Internal("find person", err)
	}
	if person == nil {
		return nil, domain.NotFound("person does not exist")
	}
	if !person.Active {
		return nil, domain.Conflict("person is inactive")
	}

	var loanID uint
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		units, err := s.lockAvailableUnits(ctx, tx, in.UnitIDs)
		if err != nil {
			return err
		}

		loan := domain.Loan{
			LoanDate:    in.LoanDate,
			Status:      domain.LoanPending,
			PersonID:    in.PersonID,
			RequesterID: caller.ID,
			Reason:      in.Reason,
			Active:      true,
		}
		loans := s.loans.WithTx(tx)
		if err := loans.CreateLoan(ctx, &loan); err != nil {
			return domain.Internal("insert loan", err)
		}
		loanID = loan.ID

		lines := make([]domain.LoanLine, 0, len(units))
		for _, u := range units {
			lines = append(lines, domain.LoanLine{
				LoanID:      loan.ID,
				ItemID:      u.ItemID,
				UnitID:      u.ID,
				Serial:      u.Serial,
				Status:      domain.LoanPending,
				PersonID:    in.PersonID,
				RequesterID: caller.ID,
				LoanDate:    in.LoanDate,
			})
		}
		if err := loans.CreateLines(ctx, lines); err != nil {
			return domain.Internal("insert loan lines", err)
		}
		if err := s.catalog.WithTx(tx).SetUnitsOnLoan(ctx, in.UnitIDs, true); err != nil {
			return domain.Internal("flag units on loan", err)
		}
		return s.recalc.ByUnitIDs(ctx, tx, in.UnitIDs)
	})
	if err != nil {
		s.logFailure("createLoan", err, zap.Uint("personId", in.PersonID), zap.Uints("unitIds", in.UnitIDs))
		return nil, err
	}

	loansCreated.Inc()
	unitsLoaned.Add(float64(len(in.UnitIDs)))
	return s.viewByID(ctx, loanID)
}

// AddUnits attaches more units to a still-pending loan, copying the loan's
// borrower and date context onto the new lines.
func (s *LendingService) AddUnits(ctx context.Context, caller *Caller, loanID uint, unitIDs []uint) (*domain.LoanView, error) {
	if len(unitIDs) == 0 {
		return nil, domain.InvalidArgument("at least one unit is required")
	}
	if hasDuplicates(unitIDs) {
		return nil, domain.InvalidArgument("duplicate unit ids in request")
	}

	loan, err := s.loans.FindLoan(ctx, loanID, false, false)
	if err != nil {
		return nil, domain.Internal("find loan", err)
	}
	if loan == nil {
		return nil, domain.NotFound("loan not found")
	}
	if loan.Status != domain.LoanPending {
		lendingConflicts.Inc()
		return nil, domain.Conflict("cannot add units to a loan that is already returned")
	}
	if err := s.policy.RequireLoanEditor(ctx, caller, loanID); err != nil {
		return nil, err
	}

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		units, err := s.lockAvailableUnits(ctx, tx, unitIDs)
		if err != nil {
			return err
		}
		lines := make([]domain.LoanLine, 0, len(units))
		for _, u := range units {
			lines = append(lines, domain.LoanLine{
				LoanID:      loan.ID,
				ItemID:      u.ItemID,
				UnitID:      u.ID,
				Serial:      u.Serial,
				Status:      domain.LoanPending,
				PersonID:    loan.PersonID,
				RequesterID: loan.RequesterID,
				LoanDate:    loan.LoanDate,
			})
		}
		if err := s.loans.WithTx(tx).CreateLines(ctx, lines); err != nil {
			return domain.Internal("insert loan lines", err)
		}
		if err := s.catalog.WithTx(tx).SetUnitsOnLoan(ctx, unitIDs, true); err != nil {
			return domain.Internal("flag units on loan", err)
		}
		return s.recalc.ByUnitIDs(ctx, tx, unitIDs)
	})
	if err != nil {
		s.logFailure("addUnits", err, zap.Uint("loanId", loanID), zap.Uints("unitIds", unitIDs))
		return nil, err
	}

	unitsLoaned.Add(float64(len(unitIDs)))
	return s.viewByID(ctx, loanID)
}

// Swap replaces units on a loan one-for-one. The release of old units, the
// validation and attachment of new ones and both aggregate recomputes form a
// single all-or-nothing transaction; a partial swap is never observable.
func (s *LendingService) Swap(ctx context.Context, caller *Caller, loanID uint, in SwapInput) (*domain.LoanView, error) {
	if len(in.OldUnitIDs) == 0 {
		return nil, domain.InvalidArgument("no old units given")
	}
	if len(in.NewUnitIDs) == 0 {
		return nil, domain.InvalidArgument("no replacement units given")
	}
	if len(in.NewUnitIDs) != len(in.OldUnitIDs) {
		return nil, domain.InvalidArgument("replacement unit count differs from old unit count")
	}
	if hasDuplicates(in.OldUnitIDs) || hasDuplicates(in.NewUnitIDs) {
		return nil, domain.InvalidArgument("duplicate unit ids in request")
	}

	loan, err := s.loans.FindLoan(ctx, loanID, !caller.Admin, false)
	if err != nil {
		return nil, domain.Internal("find loan", err)
	}
	if loan == nil {
		return nil, domain.NotFound("loan not found")
	}
	if err := s.policy.RequireLoanEditor(ctx, caller, loanID); err != nil {
		return nil, err
	}
	if in.Active != nil {
		if err := s.policy.RequireAdmin(caller); err != nil {
			return nil, err
		}
		pending, err := s.loans.HasPendingLines(ctx, loanID)
		if err != nil {
			return nil, domain.Internal("check pending lines", err)
		}
		if pending {
			lendingConflicts.Inc()
			return nil, domain.Conflict("loan still has pending lines")
		}
	}

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		loans := s.loans.WithTx(tx)
		catalog := s.catalog.WithTx(tx)

		if _, err := loans.FindLoan(ctx, loanID, false, true); err != nil {
			return domain.Internal("lock loan", err)
		}

		lineUnitIDs, err := loans.LineUnitIDs(ctx, loanID)
		if err != nil {
			return domain.Internal("load loan lines", err)
		}
		onLoan := make(map[uint]struct{}, len(lineUnitIDs))
		for _, id := range lineUnitIDs {
			onLoan[id] = struct{}{}
		}
		for _, id := range in.OldUnitIDs {
			if _, ok := onLoan[id]; !ok {
				return domain.InvalidArgument(fmt.Sprintf("unit %d does not belong to this loan", id))
			}
		}

		// Release the old units and settle their items before touching the
		// replacements.
		if err := catalog.SetUnitsOnLoan(ctx, in.OldUnitIDs, false); err != nil {
			return domain.Internal("release old units", err)
		}
		if err := s.recalc.ByUnitIDs(ctx, tx, in.OldUnitIDs); err != nil {
			return err
		}
		if err := loans.DeleteLines(ctx, loanID, in.OldUnitIDs); err != nil {
			return domain.Internal("delete old loan lines", err)
		}

		units, err := s.lockAvailableUnitsTx(ctx, catalog, in.NewUnitIDs)
		if err != nil {
			return err
		}

		personID := loan.PersonID
		if in.PersonID != nil {
			personID = *in.PersonID
		}
		lines := make([]domain.LoanLine, 0, len(units))
		for _, u := range units {
			lines = append(lines, domain.LoanLine{
				LoanID:      loan.ID,
				ItemID:      u.ItemID,
				UnitID:      u.ID,
				Serial:      u.Serial,
				Status:      domain.LoanPending,
				PersonID:    personID,
				RequesterID: loan.RequesterID,
				LoanDate:    loan.LoanDate,
			})
		}
		if err := loans.CreateLines(ctx, lines); err != nil {
			return domain.Internal("insert replacement lines", err)
		}
		if err := catalog.SetUnitsOnLoan(ctx, in.NewUnitIDs, true); err != nil {
			return domain.Internal("flag replacement units", err)
		}
		if err := s.recalc.ByUnitIDs(ctx, tx, in.NewUnitIDs); err != nil {
			return err
		}

		header := map[string]any{}
		if in.PersonID != nil {
			header["person_id"] = *in.PersonID
		}
		if in.Active != nil {
			header["active"] = *in.Active
		}
		if len(header) > 0 {
			if err := loans.UpdateLoan(ctx, loanID, header); err != nil {
				return domain.Internal("update loan header", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logFailure("editLoan", err, zap.Uint("loanId", loanID),
			zap.Uints("oldUnitIds", in.OldUnitIDs), zap.Uints("newUnitIds", in.NewUnitIDs))
		return nil, err
	}

	return s.viewByID(ctx, loanID)
}

// Return processes a partial or full return. When no pending line remains the
// loan header is closed in the same transaction.
func (s *LendingService) Return(ctx context.Context, caller *Caller, loanID uint, in ReturnInput) (*domain.LoanView, error) {
	if len(in.UnitIDs) == 0 {
		return nil, domain.InvalidArgument("at least one unit is required")
	}

	loan, err := s.loans.FindLoan(ctx, loanID, false, false)
	if err != nil {
		return nil, domain.Internal("find loan", err)
	}
	if loan == nil {
		return nil, domain.NotFound("loan not found")
	}
	if err := s.policy.RequireLoanEditor(ctx, caller, loanID); err != nil {
		return nil, err
	}

	units, err := s.catalog.UnitsByIDs(ctx, in.UnitIDs, false)
	if err != nil {
		return nil, domain.Internal("find units", err)
	}
	if missing := missingIDs(in.UnitIDs, units); missing != 0 {
		return nil, domain.NotFound(fmt.Sprintf("unit %d does not exist", missing))
	}

	// Calendar-date comparison: a same-day return is legal regardless of hour.
	if beforeCalendarDay(in.ReturnDate, loan.LoanDate) {
		lendingConflicts.Inc()
		return nil, domain.Conflict("return date cannot be earlier than the loan date")
	}

	err = s.runTx(ctx, func(tx *gorm.DB) error {
		loans := s.loans.WithTx(tx)
		catalog := s.catalog.WithTx(tx)

		if _, err := loans.FindLoan(ctx, loanID, false, true); err != nil {
			return domain.Internal("lock loan", err)
		}
		if _, err := catalog.UnitsByIDs(ctx, in.UnitIDs, true); err != nil {
			return domain.Internal("lock units", err)
		}

		for _, unitID := range in.UnitIDs {
			n, err := loans.MarkLineReturned(ctx, loanID, unitID, in.ReturnDate, caller.ID)
			if err != nil {
				return domain.Internal("mark line returned", err)
			}
			// A unit may only be released by the loan actually holding it;
			// otherwise the flip would free a unit another loan has pending.
			if n == 0 {
				return domain.NotFound(fmt.Sprintf("unit %d has no pending line in this loan", unitID))
			}
			if err := catalog.UpdateUnit(ctx, unitID, map[string]any{"on_loan": false}); err != nil {
				return domain.Internal("release unit", err)
			}
		}

		pending, err := loans.HasPendingLines(ctx, loanID)
		if err != nil {
			return domain.Internal("check pending lines", err)
		}
		if !pending {
			if err := loans.UpdateLoan(ctx, loanID, map[string]any{
				"status":      domain.LoanReturned,
				"return_date": in.ReturnDate,
				"receiver_id": caller.ID,
			}); err != nil {
				return domain.Internal("close loan", err)
			}
		}
		return s.recalc.ByUnitIDs(ctx, tx, in.UnitIDs)
	})
	if err != nil {
		s.logFailure("createReturn", err, zap.Uint("loanId", loanID), zap.Uints("unitIds", in.UnitIDs))
		return nil, err
	}

	unitsReturned.Add(float64(len(in.UnitIDs)))
	return s.viewByID(ctx, loanID)
}

// lockAvailableUnits takes FOR UPDATE locks on the requested units and
// verifies, under those locks, that each exists, is active and is not on
// loan. Any failure aborts the whole batch.
func (s *LendingService) lockAvailableUnits(ctx context.Context, tx *gorm.DB, unitIDs []uint) ([]domain.PatrimonyUnit, error) {
	return s.lockAvailableUnitsTx(ctx, s.catalog.WithTx(tx), unitIDs)
}

func (s *LendingService) lockAvailableUnitsTx(ctx context.Context, catalog catalogStore, unitIDs []uint) ([]domain.PatrimonyUnit, error) {
	units, err := catalog.UnitsByIDs(ctx, unitIDs, true)
	if err != nil {
		return nil, domain.Internal("lock units", err)
	}
	if missing := missingIDs(unitIDs, units); missing != 0 {
		return nil, domain.NotFound(fmt.Sprintf("unit %d was not found", missing))
	}
	byID := make(map[uint]domain.PatrimonyUnit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}
	ordered := make([]domain.PatrimonyUnit, 0, len(unitIDs))
	for _, id := range unitIDs {
		u := byID[id]
		if !u.Active {
			lendingConflicts.Inc()
			return nil, domain.Conflict(fmt.Sprintf("unit %d is inactive", id))
		}
		if u.OnLoan {
			lendingConflicts.Inc()
			return nil, domain.Conflict(fmt.Sprintf("unit %d is already on loan", id))
		}
		ordered = append(ordered, u)
	}
	return ordered, nil
}

func (s *LendingService) viewByID(ctx context.Context, loanID uint) (*domain.LoanView, error) {
	loan, err := s.loans.FindLoan(ctx, loanID, false, false)
	if err != nil || loan == nil {
		return nil, domain.Internal("reload loan", err)
	}
	return s.loanView(ctx, s.db, *loan, false)
}

// loanView joins the loan's lines with each unit's live on-loan flag.
func (s *LendingService) loanView(ctx context.Context, db *gorm.DB, loan domain.Loan, activeUnitsOnly bool) (*domain.LoanView, error) {
	loans := s.loans.WithTx(db)
	catalog := s.catalog.WithTx(db)

	lines, err := loans.LinesByLoan(ctx, loan.ID, activeUnitsOnly)
	if err != nil {
		return nil, domain.Internal("load loan lines", err)
	}
	unitIDs := make([]uint, 0, len(lines))
	for _, l := range lines {
		unitIDs = append(unitIDs, l.UnitID)
	}
	units, err := catalog.UnitsByIDs(ctx, unitIDs, false)
	if err != nil {
		return nil, domain.Internal("load units", err)
	}
	onLoan := make(map[uint]bool, len(units))
	for _, u := range units {
		onLoan[u.ID] = u.OnLoan
	}

	view := domain.LoanView{Loan: loan, Lines: make([]domain.LineView, 0, len(lines))}
	for _, l := range lines {
		view.Lines = append(view.Lines, domain.LineView{LoanLine: l, UnitOnLoan: onLoan[l.UnitID]})
	}
	return &view, nil
}

func (s *LendingService) logFailure(op string, err error, fields ...zap.Field) {
	if de, ok := err.(*domain.Error); ok && de.Kind != domain.KindInternal {
		return
	}
	s.log.Error("lending operation failed", append([]zap.Field{
		zap.String("op", op), zap.Error(err),
	}, fields...)...)
}

func hasDuplicates(ids []uint) bool {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}

// missingIDs returns the first requested id absent from the loaded units,
// or zero when all were found.
func missingIDs(want []uint, got []domain.PatrimonyUnit) uint {
	found := make(map[uint]struct{}, len(got))
	for _, u := range got {
		found[u.ID] = struct{}{}
	}
	for _, id := range want {
		if _, ok := found[id]; !ok {
			return id
		}
	}
	return 0
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func beforeCalendarDay(a, b time.Time) bool {
	return dateOnly(a).Before(dateOnly(b))
}
