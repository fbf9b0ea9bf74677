package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lendtrack/internal/domain"
	"lendtrack/internal/repo"
)

// fakeWorld is an in-memory stand-in for the database behind the lending
// stores. runTx snapshots all state before the transaction body and restores
// it when the body fails, mirroring a rollback.
type fakeWorld struct {
	items  map[uint]domain.Item
	units  map[uint]domain.PatrimonyUnit
	loans  map[uint]domain.Loan
	lines  map[uint]domain.LoanLine
	people map[uint]domain.Person
	nextID uint
}

func (w *fakeWorld) id() uint { w.nextID++; return w.nextID }

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (w *fakeWorld) runTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	items, units := cloneMap(w.items), cloneMap(w.units)
	loans, lines := cloneMap(w.loans), cloneMap(w.lines)
	if err := fn(nil); err != nil {
		w.items, w.units, w.loans, w.lines = items, units, loans, lines
		return err
	}
	return nil
}

func (w *fakeWorld) FindByID(_ context.Context, id uint) (*domain.Person, error) {
	if p, ok := w.people[id]; ok {
		return &p, nil
	}
	return nil, nil
}

type fakeLoans struct{ w *fakeWorld }

func (f fakeLoans) WithTx(*gorm.DB) loanStore { return f }

func (f fakeLoans) FindLoan(_ context.Context, id uint, activeOnly, _ bool) (*domain.Loan, error) {
	l, ok := f.w.loans[id]
	if !ok || (activeOnly && !l.Active) {
		return nil, nil
	}
	return &l, nil
}

func (f fakeLoans) ListLoans(_ context.Context, flt repo.LoanFilter, activeOnly bool) ([]domain.Loan, error) {
	var out []domain.Loan
	for _, l := range f.w.loans {
		if activeOnly && !l.Active {
			continue
		}
		if flt.PersonID != 0 && l.PersonID != flt.PersonID {
			continue
		}
		if flt.RequesterID != 0 && l.RequesterID != flt.RequesterID {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeLoans) CreateLoan(_ context.Context, l *domain.Loan) error {
	l.ID = f.w.id()
	f.w.loans[l.ID] = *l
	return nil
}

func (f fakeLoans) UpdateLoan(_ context.Context, id uint, fields map[string]any) error {
	l := f.w.loans[id]
	for k, v := range fields {
		switch k {
		case "status":
			l.Status = v.(domain.LoanStatus)
		case "return_date":
			t := v.(time.Time)
			l.ReturnDate = &t
		case "receiver_id":
			r := v.(uint)
			l.ReceiverID = &r
		case "person_id":
			l.PersonID = v.(uint)
		case "active":
			l.Active = v.(bool)
		}
	}
	f.w.loans[id] = l
	return nil
}

func (f fakeLoans) CreateLines(_ context.Context, lines []domain.LoanLine) error {
	for _, ln := range lines {
		ln.ID = f.w.id()
		f.w.lines[ln.ID] = ln
	}
	return nil
}

func (f fakeLoans) LinesByLoan(_ context.Context, loanID uint, activeUnitsOnly bool) ([]domain.LoanLine, error) {
	var out []domain.LoanLine
	for _, ln := range f.w.lines {
		if ln.LoanID != loanID {
			continue
		}
		if activeUnitsOnly {
			if u, ok := f.w.units[ln.UnitID]; !ok || !u.Active {
				continue
			}
		}
		out = append(out, ln)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeLoans) LineUnitIDs(_ context.Context, loanID uint) ([]uint, error) {
	var ids []uint
	for _, ln := range f.w.lines {
		if ln.LoanID == loanID {
			ids = append(ids, ln.UnitID)
		}
	}
	return ids, nil
}

func (f fakeLoans) HasPendingLines(_ context.Context, loanID uint) (bool, error) {
	for _, ln := range f.w.lines {
		if ln.LoanID == loanID && ln.Status == domain.LoanPending {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeLoans) RequestedBy(_ context.Context, loanID, operatorID uint) (bool, error) {
	for _, ln := range f.w.lines {
		if ln.LoanID == loanID && ln.RequesterID == operatorID {
			return true, nil
		}
	}
	l, ok := f.w.loans[loanID]
	return ok && l.RequesterID == operatorID, nil
}

func (f fakeLoans) MarkLineReturned(_ context.Context, loanID, unitID uint, returnDate time.Time, receiverID uint) (int64, error) {
	var n int64
	for id, ln := range f.w.lines {
		if ln.LoanID == loanID && ln.UnitID == unitID && ln.Status == domain.LoanPending {
			rd, rc := returnDate, receiverID
			ln.Status = domain.LoanReturned
			ln.ReturnDate = &rd
			ln.ReceiverID = &rc
			f.w.lines[id] = ln
			n++
		}
	}
	return n, nil
}

func (f fakeLoans) DeleteLines(_ context.Context, loanID uint, unitIDs []uint) error {
	drop := make(map[uint]struct{}, len(unitIDs))
	for _, id := range unitIDs {
		drop[id] = struct{}{}
	}
	for id, ln := range f.w.lines {
		if ln.LoanID == loanID {
			if _, ok := drop[ln.UnitID]; ok {
				delete(f.w.lines, id)
			}
		}
	}
	return nil
}

type fakeCatalog struct{ w *fakeWorld }

func (f fakeCatalog) WithTx(*gorm.DB) catalogStore { return f }

func (f fakeCatalog) UnitsByIDs(_ context.Context, ids []uint, _ bool) ([]domain.PatrimonyUnit, error) {
	var out []domain.PatrimonyUnit
	for _, id := range ids {
		if u, ok := f.w.units[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f fakeCatalog) SetUnitsOnLoan(_ context.Context, ids []uint, onLoan bool) error {
	for _, id := range ids {
		u := f.w.units[id]
		u.OnLoan = onLoan
		f.w.units[id] = u
	}
	return nil
}

func (f fakeCatalog) UpdateUnit(_ context.Context, id uint, fields map[string]any) error {
	u := f.w.units[id]
	if v, ok := fields["on_loan"]; ok {
		u.OnLoan = v.(bool)
	}
	if v, ok := fields["serial"]; ok {
		u.Serial = v.(string)
	}
	if v, ok := fields["active"]; ok {
		u.Active = v.(bool)
	}
	f.w.units[id] = u
	return nil
}

func (f fakeCatalog) ItemIDsOfUnits(_ context.Context, unitIDs []uint) ([]uint, error) {
	seen := map[uint]struct{}{}
	var out []uint
	for _, id := range unitIDs {
		if u, ok := f.w.units[id]; ok {
			if _, dup := seen[u.ItemID]; !dup {
				seen[u.ItemID] = struct{}{}
				out = append(out, u.ItemID)
			}
		}
	}
	return out, nil
}

func (f fakeCatalog) CountUnits(_ context.Context, itemID uint) (total, available int64, err error) {
	for _, u := range f.w.units {
		if u.ItemID != itemID || !u.Active {
			continue
		}
		total++
		if !u.OnLoan {
			available++
		}
	}
	return
}

func (f fakeCatalog) SetItemCounters(_ context.Context, id uint, total, available int) error {
	it := f.w.items[id]
	it.Total = total
	it.Available = available
	f.w.items[id] = it
	return nil
}

func newLendingWorld() (*LendingService, *fakeWorld) {
	w := &fakeWorld{
		items:  map[uint]domain.Item{},
		units:  map[uint]domain.PatrimonyUnit{},
		loans:  map[uint]domain.Loan{},
		lines:  map[uint]domain.LoanLine{},
		people: map[uint]domain.Person{},
	}
	svc := &LendingService{
		loans:   fakeLoans{w},
		catalog: fakeCatalog{w},
		people:  w,
		recalc:  &Recalculator{catalog: fakeCatalog{w}},
		policy:  &Policy{loans: fakeLoans{w}},
		log:     zap.NewNop(),
		runTx:   w.runTx,
	}
	return svc, w
}

func (w *fakeWorld) seedItem(name string, unitCount int) (uint, []uint) {
	itemID := w.id()
	var unitIDs []uint
	for i := 0; i < unitCount; i++ {
		uid := w.id()
		w.units[uid] = domain.PatrimonyUnit{
			ID: uid, ItemID: itemID,
			Serial: fmt.Sprintf("%s-%d", name, i+1),
			Active: true,
		}
		unitIDs = append(unitIDs, uid)
	}
	w.items[itemID] = domain.Item{
		ID: itemID, Name: name, Active: true,
		Total: unitCount, Available: unitCount,
	}
	return itemID, unitIDs
}

func (w *fakeWorld) seedPerson(name string) uint {
	id := w.id()
	w.people[id] = domain.Person{ID: id, Name: name, Document: fmt.Sprintf("doc-%d", id), Active: true}
	return id
}

// checkCounters asserts that every item's stored counters equal the live
// aggregate over its units.
func checkCounters(t *testing.T, w *fakeWorld) {
	t.Helper()
	for id, it := range w.items {
		var total, available int
		for _, u := range w.units {
			if u.ItemID != id || !u.Active {
				continue
			}
			total++
			if !u.OnLoan {
				available++
			}
		}
		if it.Total != total || it.Available != available {
			t.Fatalf("item %d counters drifted: stored %d/%d, live %d/%d",
				id, it.Total, it.Available, total, available)
		}
	}
}

func wantKind(t *testing.T, err error, kind domain.Kind) {
	t.Helper()
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind != kind {
		t.Fatalf("expected error kind %v, got %v", kind, err)
	}
}

var adminCaller = &Caller{ID: 99, Email: "ana@example.com", Admin: true, Active: true}

func TestCreateLoanChecksOutUnits(t *testing.T) {
	svc, w := newLendingWorld()
	_, units := w.seedItem("notebook", 3)
	personID := w.seedPerson("Carlos")
	day := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

	view, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units[:2], Reason: "field work",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.Status != domain.LoanPending || len(view.Lines) != 2 {
		t.Fatalf("unexpected view: status=%s lines=%d", view.Status, len(view.Lines))
	}
	for _, ln := range view.Lines {
		if ln.Status != domain.LoanPending || !ln.UnitOnLoan {
			t.Fatalf("line not pending/on-loan: %+v", ln)
		}
	}
	for _, id := range units[:2] {
		if !w.units[id].OnLoan {
			t.Fatalf("unit %d not flagged on loan", id)
		}
	}
	if w.units[units[2]].OnLoan {
		t.Fatalf("untouched unit %d flagged", units[2])
	}
	checkCounters(t, w)
}

func TestCreateLoanUnitAlreadyOnLoan(t *testing.T) {
	svc, w := newLendingWorld()
	_, units := w.seedItem("projector", 2)
	personID := w.seedPerson("Carlos")
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units[:1],
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units[:1],
	})
	wantKind(t, err, domain.KindConflict)

	if len(w.loans) != 1 {
		t.Fatalf("losing borrow left a loan behind: %d loans", len(w.loans))
	}
	var pending int
	for _, ln := range w.lines {
		if ln.UnitID == units[0] && ln.Status == domain.LoanPending {
			pending++
		}
	}
	if pending != 1 {
		t.Fatalf("unit has %d pending lines, want exactly 1", pending)
	}
	checkCounters(t, w)
}

func TestReturnClosesLoanAndRestoresAvailability(t *testing.T) {
	svc, w := newLendingWorld()
	_, units := w.seedItem("notebook", 2)
	personID := w.seedPerson("Carlos")
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	view, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Return(context.Background(), adminCaller, view.ID, ReturnInput{
		ReturnDate: day.Add(48 * time.Hour), UnitIDs: units,
	})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if got.Status != domain.LoanReturned || got.ReturnDate == nil || got.ReceiverID == nil {
		t.Fatalf("loan not closed: %+v", got.Loan)
	}
	if *got.ReceiverID != adminCaller.ID {
		t.Fatalf("receiver: got %d want %d", *got.ReceiverID, adminCaller.ID)
	}
	for _, id := range units {
		if w.units[id].OnLoan {
			t.Fatalf("unit %d still on loan after full return", id)
		}
	}
	it := w.items[w.units[units[0]].ItemID]
	if it.Available != it.Total {
		t.Fatalf("availability not restored: %d/%d", it.Available, it.Total)
	}
	checkCounters(t, w)
}

func TestPartialReturnKeepsLoanPending(t *testing.T) {
	svc, w := newLendingWorld()
	_, units := w.seedItem("radio", 2)
	personID := w.seedPerson("Carlos")
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	view, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Return(context.Background(), adminCaller, view.ID, ReturnInput{
		ReturnDate: day, UnitIDs: units[:1],
	})
	if err != nil {
		t.Fatalf("partial return: %v", err)
	}
	if got.Status != domain.LoanPending || got.ReturnDate != nil {
		t.Fatalf("loan closed by partial return: %+v", got.Loan)
	}
	if w.units[units[0]].OnLoan || !w.units[units[1]].OnLoan {
		t.Fatal("unit flags wrong after partial return")
	}
	checkCounters(t, w)
}

func TestSwapReplacesUnits(t *testing.T) {
	svc, w := newLendingWorld()
	_, units := w.seedItem("notebook", 3)
	personID := w.seedPerson("Carlos")
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	view, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units[:1],
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Swap(context.Background(), adminCaller, view.ID, SwapInput{
		OldUnitIDs: units[:1], NewUnitIDs: units[2:3],
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if len(got.Lines) != 1 || got.Lines[0].UnitID != units[2] {
		t.Fatalf("lines after swap: %+v", got.Lines)
	}
	if w.units[units[0]].OnLoan || !w.units[units[2]].OnLoan {
		t.Fatal("unit flags wrong after swap")
	}
	checkCounters(t, w)
}

func TestSwapFailureRollsBackEverything(t *testing.T) {
	svc, w := newLendingWorld()
	_, units := w.seedItem("notebook", 2)
	personID := w.seedPerson("Carlos")
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	first, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units[:1],
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units[1:2],
	}); err != nil {
		t.Fatalf("second create: %v", err)
	}

	// The replacement is held by the other loan; the engine has already
	// released the old unit inside the transaction by the time it finds out.
	_, err = svc.Swap(context.Background(), adminCaller, first.ID, SwapInput{
		OldUnitIDs: units[:1], NewUnitIDs: units[1:2],
	})
	wantKind(t, err, domain.KindConflict)

	if !w.units[units[0]].OnLoan {
		t.Fatal("old unit lost its on-loan flag after failed swap")
	}
	lines, _ := fakeLoans{w}.LinesByLoan(context.Background(), first.ID, false)
	if len(lines) != 1 || lines[0].UnitID != units[0] || lines[0].Status != domain.LoanPending {
		t.Fatalf("loan lines not restored after failed swap: %+v", lines)
	}
	checkCounters(t, w)
}

func TestReturnUnitHeldByAnotherLoan(t *testing.T) {
	svc, w := newLendingWorld()
	_, units := w.seedItem("notebook", 2)
	personID := w.seedPerson("Carlos")
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	first, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units[:1],
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units[1:2],
	}); err != nil {
		t.Fatalf("second create: %v", err)
	}

	// Returning through the wrong loan must not release the unit.
	_, err = svc.Return(context.Background(), adminCaller, first.ID, ReturnInput{
		ReturnDate: day, UnitIDs: units[1:2],
	})
	wantKind(t, err, domain.KindNotFound)

	if !w.units[units[1]].OnLoan {
		t.Fatal("unit released by a loan that never held it")
	}
	var pending int
	for _, ln := range w.lines {
		if ln.UnitID == units[1] && ln.Status == domain.LoanPending {
			pending++
		}
	}
	if pending != 1 {
		t.Fatalf("unit has %d pending lines, want exactly 1", pending)
	}
	checkCounters(t, w)
}

func TestSwapRejectsDuplicateOldUnits(t *testing.T) {
	svc, w := newLendingWorld()
	_, units := w.seedItem("notebook", 4)
	personID := w.seedPerson("Carlos")
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	view, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units[:2],
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Swap(context.Background(), adminCaller, view.ID, SwapInput{
		OldUnitIDs: []uint{units[0], units[0]},
		NewUnitIDs: units[2:4],
	})
	wantKind(t, err, domain.KindInvalidArgument)

	lines, _ := fakeLoans{w}.LinesByLoan(context.Background(), view.ID, false)
	if len(lines) != 2 {
		t.Fatalf("duplicate old ids changed the line set: %d lines", len(lines))
	}
	checkCounters(t, w)
}

func TestAddUnitsExtendsPendingLoan(t *testing.T) {
	svc, w := newLendingWorld()
	_, units := w.seedItem("notebook", 3)
	personID := w.seedPerson("Carlos")
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)

	view, err := svc.Create(context.Background(), adminCaller, CreateLoanInput{
		LoanDate: day, PersonID: personID, UnitIDs: units[:1],
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.AddUnits(context.Background(), adminCaller, view.ID, units[1:2])
	if err != nil {
		t.Fatalf("add units: %v", err)
	}
	if len(got.Lines) != 2 {
		t.Fatalf("lines after add: %d", len(got.Lines))
	}
	for _, ln := range got.Lines {
		if ln.PersonID != personID || !ln.LoanDate.Equal(day) {
			t.Fatalf("added line did not copy loan context: %+v", ln.LoanLine)
		}
	}
	checkCounters(t, w)
}
