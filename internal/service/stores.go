package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lendtrack/internal/domain"
	"lendtrack/internal/repo"
)

// loanStore and catalogStore are the persistence seams of the lending engine.
// The gorm repos are the production implementations; tests drive the engine
// through in-memory fakes behind the same interfaces.
type loanStore interface {
	WithTx(tx *gorm.DB) loanStore
	FindLoan(ctx context.Context, id uint, activeOnly, forUpdate bool) (*domain.Loan, error)
	ListLoans(ctx context.Context, f repo.LoanFilter, activeOnly bool) ([]domain.Loan, error)
	CreateLoan(ctx context.Context, l *domain.Loan) error
	UpdateLoan(ctx context.Context, id uint, fields map[string]any) error
	CreateLines(ctx context.Context, lines []domain.LoanLine) error
	LinesByLoan(ctx context.Context, loanID uint, activeUnitsOnly bool) ([]domain.LoanLine, error)
	LineUnitIDs(ctx context.Context, loanID uint) ([]uint, error)
	HasPendingLines(ctx context.Context, loanID uint) (bool, error)
	MarkLineReturned(ctx context.Context, loanID, unitID uint, returnDate time.Time, receiverID uint) (int64, error)
	DeleteLines(ctx context.Context, loanID uint, unitIDs []uint) error
}

type catalogStore interface {
	WithTx(tx *gorm.DB) catalogStore
	UnitsByIDs(ctx context.Context, ids []uint, forUpdate bool) ([]domain.PatrimonyUnit, error)
	SetUnitsOnLoan(ctx context.Context, ids []uint, onLoan bool) error
	UpdateUnit(ctx context.Context, id uint, fields map[string]any) error
	ItemIDsOfUnits(ctx context.Context, unitIDs []uint) ([]uint, error)
	CountUnits(ctx context.Context, itemID uint) (total, available int64, err error)
	SetItemCounters(ctx context.Context, id uint, total, available int) error
}

type personFinder interface {
	FindByID(ctx context.Context, id uint) (*domain.Person, error)
}

type loanOwnership interface {
	RequestedBy(ctx context.Context, loanID, operatorID uint) (bool, error)
}

// txRunner opens the transaction a mutating lending operation runs in.
type txRunner func(ctx context.Context, fn func(tx *gorm.DB) error) error

type gormLoanStore struct{ *repo.LoanRepo }

func (s gormLoanStore) WithTx(tx *gorm.DB) loanStore {
	return gormLoanStore{s.LoanRepo.WithTx(tx)}
}

type gormCatalogStore struct{ *repo.CatalogRepo }

func (s gormCatalogStore) WithTx(tx *gorm.DB) catalogStore {
	return gormCatalogStore{s.CatalogRepo.WithTx(tx)}
}
