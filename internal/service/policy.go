package service

import (
	"context"
	"time"

	"lendtrack/internal/core/cache"
	"lendtrack/internal/domain"
	"lendtrack/internal/repo"
)

// Caller is the resolved identity behind a request. Every lending operation
// resolves its caller through the policy gate before touching business state.
type Caller struct {
	ID     uint   `json:"id"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
	Active bool   `json:"active"`
}

const operatorCacheTTL = 30 * time.Second

func operatorCacheKey(email string) string { return "operator:email:" + email }

// Policy is the access gate wrapping the lending engine: admins see and edit
// everything, regular operators only loans they originated.
type Policy struct {
	operators *repo.OperatorRepo
	loans     loanOwnership
	cache     *cache.Cache
}

func NewPolicy(operators *repo.OperatorRepo, loans *repo.LoanRepo, c *cache.Cache) *Policy {
	return &Policy{operators: operators, loans: loans, cache: c}
}

// Resolve maps a session email to an operator. Lookups are cached briefly;
// OperatorService invalidates the key on any operator mutation.
func (p *Policy) Resolve(ctx context.Context, email string) (*Caller, error) {
	load := func(ctx context.Context) (*Caller, error) {
		op, err := p.operators.FindByEmail(ctx, email)
		if err != nil {
			return nil, domain.Internal("resolve caller", err)
		}
		if op == nil || !op.Active {
			return nil, domain.Unauthorized("operator not found")
		}
		return &Caller{ID: op.ID, Email: op.Email, Admin: op.Admin, Active: op.Active}, nil
	}
	if p.cache == nil {
		return load(ctx)
	}
	c, err := cache.GetOrLoadJSON[Caller](p.cache, ctx, operatorCacheKey(email), operatorCacheTTL, load)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.Unauthorized("operator not found")
	}
	return c, nil
}

func (p *Policy) InvalidateOperator(ctx context.Context, email string) {
	if p.cache != nil {
		p.cache.Invalidate(ctx, operatorCacheKey(email))
	}
}

// RequireLoanEditor allows admins, and regular operators only on loans they
// originally requested.
func (p *Policy) RequireLoanEditor(ctx context.Context, caller *Caller, loanID uint) error {
	if caller.Admin {
		return nil
	}
	ok, err := p.loans.RequestedBy(ctx, loanID, caller.ID)
	if err != nil {
		return domain.Internal("check loan ownership", err)
	}
	if !ok {
		return domain.Forbidden("you do not have permission to edit this loan")
	}
	return nil
}

// RequireAdmin guards admin-only fields and operations.
func (p *Policy) RequireAdmin(caller *Caller) error {
	if !caller.Admin {
		return domain.Forbidden("admin role required")
	}
	return nil
}
