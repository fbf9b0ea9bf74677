package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lendtrack/internal/domain"
)

type LoanRepo struct{ db *gorm.DB }

func NewLoanRepo(db *gorm.DB) *LoanRepo { return &LoanRepo{db: db} }

func (r *LoanRepo) WithTx(tx *gorm.DB) *LoanRepo { return &LoanRepo{db: tx} }

func (r *LoanRepo) FindLoan(ctx context.Context, id uint, activeOnly, forUpdate bool) (*domain.Loan, error) {
	q := r.db.WithContext(ctx).Where("id = ?", id)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var l domain.Loan
	err := q.First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &l, err
}

// LoanFilter narrows ListLoans. Serial matches loan-line snapshots by
// substring, the way the counter searches by patrimony tag.
type LoanFilter struct {
	PersonID    uint
	RequesterID uint
	Serial      string
}

func (r *LoanRepo) ListLoans(ctx context.Context, f LoanFilter, activeOnly bool) ([]domain.Loan, error) {
	q := r.db.WithContext(ctx).Model(&domain.Loan{}).Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if f.PersonID != 0 {
		q = q.Where("person_id = ?", f.PersonID)
	}
	if f.RequesterID != 0 {
		q = q.Where("requester_id = ?", f.RequesterID)
	}
	if f.Serial != "" {
		q = q.Where("id IN (?)", r.db.Model(&domain.LoanLine{}).
			Select("loan_id").
			Where("serial LIKE ?", "%"+f.Serial+"%"))
	}
	var loans []domain.Loan
	err := q.Find(&loans).Error
	return loans, err
}

func (r *LoanRepo) CreateLoan(ctx context.Context, l *domain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepo) UpdateLoan(ctx context.Context, id uint, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Loan{}).Where("id = ?", id).Updates(fields).Error
}

// Lines

func (r *LoanRepo) CreateLines(ctx context.Context, lines []domain.LoanLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *LoanRepo) LinesByLoan(ctx context.Context, loanID uint, activeUnitsOnly bool) ([]domain.LoanLine, error) {
	q := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Order("id")
	if activeUnitsOnly {
		q = q.Where("unit_id IN (?)", r.db.Model(&domain.PatrimonyUnit{}).
			Select("id").Where("active = ?", true))
	}
	var lines []domain.LoanLine
	err := q.Find(&lines).Error
	return lines, err
}

// LineUnitIDs returns the unit ids of this loan's lines, pending or returned.
func (r *LoanRepo) LineUnitIDs(ctx context.Context, loanID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&domain.LoanLine{}).
		Where("loan_id = ?", loanID).
		Pluck("unit_id", &ids).Error
	return ids, err
}

func (r *LoanRepo) HasPendingLines(ctx context.Context, loanID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.LoanLine{}).
		Where("loan_id = ? AND status = ?", loanID, domain.LoanPending).
		Count(&n).Error
	return n > 0, err
}

func (r *LoanRepo) RequestedBy(ctx context.Context, loanID, operatorID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.LoanLine{}).
		Where("loan_id = ? AND requester_id = ?", loanID, operatorID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	// A freshly swapped loan may have lines from a different requester; fall
	// back to the header.
	err = r.db.WithContext(ctx).Model(&domain.Loan{}).
		Where("id = ? AND requester_id = ?", loanID, operatorID).
		Count(&n).Error
	return n > 0, err
}

// MarkLineReturned closes the pending line for one unit and reports how many
// rows matched, so the caller can tell an actual return from a unit that was
// never pending on this loan.
func (r *LoanRepo) MarkLineReturned(ctx context.Context, loanID, unitID uint, returnDate time.Time, receiverID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.LoanLine{}).
		Where("loan_id = ? AND unit_id = ? AND status = ?", loanID, unitID, domain.LoanPending).
		Updates(map[string]any{
			"status":      domain.LoanReturned,
			"return_date": returnDate,
			"receiver_id": receiverID,
		})
	return res.RowsAffected, res.Error
}

func (r *LoanRepo) DeleteLines(ctx context.Context, loanID uint, unitIDs []uint) error {
	if len(unitIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("loan_id = ? AND unit_id IN ?", loanID, unitIDs).
		Delete(&domain.LoanLine{}).Error
}

// UpdateLineSerials keeps line snapshots in step when a unit's tag is renamed.
func (r *LoanRepo) UpdateLineSerials(ctx context.Context, unitID uint, serial string) error {
	return r.db.WithContext(ctx).Model(&domain.LoanLine{}).
		Where("unit_id = ?", unitID).
		Update("serial", serial).Error
}

func (r *LoanRepo) PendingLineForUnit(ctx context.Context, unitID uint) (*domain.LoanLine, error) {
	var line domain.LoanLine
	err := r.db.WithContext(ctx).
		Where("unit_id = ? AND status = ?", unitID, domain.LoanPending).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &line, err
}
