package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"lendtrack/internal/domain"
)

type OperatorRepo struct{ db *gorm.DB }

func NewOperatorRepo(db *gorm.DB) *OperatorRepo { return &OperatorRepo{db: db} }

// WithTx joins a caller-supplied transaction.
func (r *OperatorRepo) WithTx(tx *gorm.DB) *OperatorRepo { return &OperatorRepo{db: tx} }

func (r *OperatorRepo) FindByID(ctx context.Context, id uint) (*domain.Operator, error) {
	var op domain.Operator
	err := r.db.WithContext(ctx).First(&op, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &op, err
}

func (r *OperatorRepo) FindByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	var op domain.Operator
	err := r.db.WithContext(ctx).First(&op, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &op, err
}

func (r *OperatorRepo) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&domain.Operator{}).Where("email = ?", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *OperatorRepo) List(ctx context.Context, search string, activeOnly bool) ([]domain.Operator, error) {
	q := r.db.WithContext(ctx).Model(&domain.Operator{}).Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + s + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", like, like)
	}
	var ops []domain.Operator
	err := q.Find(&ops).Error
	return ops, err
}

func (r *OperatorRepo) ListActive(ctx context.Context) ([]domain.Operator, error) {
	return r.List(ctx, "", true)
}

func (r *OperatorRepo) Create(ctx context.Context, op *domain.Operator) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *OperatorRepo) Updates(ctx context.Context, id uint, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Operator{}).Where("id = ?", id).Updates(fields).Error
}

func (r *OperatorRepo) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).Model(&domain.Operator{}).Where("id = ?", id).
		Update("password_hash", hash).Error
}

// Password tokens

func (r *OperatorRepo) CreateToken(ctx context.Context, t *domain.PasswordToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *OperatorRepo) FindToken(ctx context.Context, token string) (*domain.PasswordToken, error) {
	var t domain.PasswordToken
	err := r.db.WithContext(ctx).First(&t, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &t, err
}

func (r *OperatorRepo) InvalidateTokens(ctx context.Context, operatorID uint) error {
	return r.db.WithContext(ctx).Model(&domain.PasswordToken{}).
		Where("operator_id = ?", operatorID).
		Update("used", true).Error
}
