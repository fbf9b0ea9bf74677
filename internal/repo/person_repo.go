package repo

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"lendtrack/internal/domain"
)

type PersonRepo struct{ db *gorm.DB }

func NewPersonRepo(db *gorm.DB) *PersonRepo { return &PersonRepo{db: db} }

func (r *PersonRepo) WithTx(tx *gorm.DB) *PersonRepo { return &PersonRepo{db: tx} }

func (r *PersonRepo) FindByID(ctx context.Context, id uint) (*domain.Person, error) {
	var p domain.Person
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &p, err
}

func (r *PersonRepo) DocumentTaken(ctx context.Context, document string, excludeID uint) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&domain.Person{}).Where("document = ?", document)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

var nonDigits = regexp.MustCompile(`\D`)

// List searches by document digits (11-digit input), numeric id, or name
// substring, matching how operators look people up at the counter.
func (r *PersonRepo) List(ctx context.Context, search string, activeOnly bool) ([]domain.Person, error) {
	q := r.db.WithContext(ctx).Model(&domain.Person{}).Order("id")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if s := strings.TrimSpace(search); s != "" {
		digits := nonDigits.ReplaceAllString(s, "")
		switch {
		case len(digits) == 11:
			q = q.Where("REPLACE(REPLACE(REPLACE(document, '.', ''), '-', ''), ' ', '') LIKE ?", "%"+digits+"%")
		case digits == s:
			if id, err := strconv.Atoi(s); err == nil {
				q = q.Where("id = ?", id)
			}
		default:
			q = q.Where("name LIKE ?", "%"+s+"%")
		}
	}
	var people []domain.Person
	err := q.Find(&people).Error
	return people, err
}

func (r *PersonRepo) ListActive(ctx context.Context) ([]domain.Person, error) {
	return r.List(ctx, "", true)
}

func (r *PersonRepo) Create(ctx context.Context, p *domain.Person) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PersonRepo) Updates(ctx context.Context, id uint, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Person{}).Where("id = ?", id).Updates(fields).Error
}
