package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lendtrack/internal/core/auth"
	"lendtrack/internal/domain"
	"lendtrack/internal/repo"
	"lendtrack/pkg/utils"
)

// Notifier delivers out-of-band messages. Failures are logged by the
// implementation and never surfaced to the request that triggered them.
type Notifier interface {
	SendPasswordResetLink(email, token string)
}

type OperatorService struct {
	db        *gorm.DB
	operators *repo.OperatorRepo
	policy    *Policy
	jwter     *auth.JWTer
	notifier  Notifier
	log       *zap.Logger
}

func NewOperatorService(db *gorm.DB, operators *repo.OperatorRepo, policy *Policy,
	jwter *auth.JWTer, notifier Notifier, log *zap.Logger) *OperatorService {
	return &OperatorService{db: db, operators: operators, policy: policy, jwter: jwter, notifier: notifier, log: log}
}

type CreateOperatorInput struct {
	Name     string
	Phone    string
	Email    string
	Password string
	Admin    bool
}

type UpdateOperatorInput struct {
	Name   *string
	Phone  *string
	Email  *string
	Admin  *bool
	Active *bool
}

type LoginResult struct {
	Token    string           `json:"token"`
	Operator *domain.Operator `json:"operator"`
}

func (s *OperatorService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	op, err := s.operators.FindByEmail(ctx, email)
	if err != nil {
		return nil, domain.Internal("find operator", err)
	}
	if op == nil || !op.Active || !utils.CheckPassword(password, op.PasswordHash) {
		return nil, domain.Unauthorized("invalid credentials")
	}
	token, err := s.jwter.Issue(op.Email, op.Admin)
	if err != nil {
		return nil, domain.Internal("issue token", err)
	}
	return &LoginResult{Token: token, Operator: op}, nil
}

// Profile returns the calling operator's own record.
func (s *OperatorService) Profile(ctx context.Context, caller *Caller) (*domain.Operator, error) {
	op, err := s.operators.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, domain.Internal("find operator", err)
	}
	if op == nil {
		return nil, domain.NotFound("operator not found")
	}
	return op, nil
}

func (s *OperatorService) List(ctx context.Context, caller *Caller, search string) ([]domain.Operator, error) {
	ops, err := s.operators.List(ctx, search, !caller.Admin)
	if err != nil {
		return nil, domain.Internal("list operators", err)
	}
	return ops, nil
}

// Create registers a new operator. Only admins may create accounts.
func (s *OperatorService) Create(ctx context.Context, caller *Caller, in CreateOperatorInput) ([]domain.Operator, error) {
	if err := s.policy.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if in.Email == "" || in.Password == "" {
		return nil, domain.InvalidArgument("email and password are required")
	}
	taken, err := s.operators.EmailTaken(ctx, in.Email, 0)
	if err != nil {
		return nil, domain.Internal("check email", err)
	}
	if taken {
		return nil, domain.Conflict("email already registered")
	}
	op := domain.Operator{
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		PasswordHash: utils.HashPassword(in.Password),
		Admin:        in.Admin,
		Active:       true,
	}
	if err := s.operators.Create(ctx, &op); err != nil {
		return nil, domain.Internal("insert operator", err)
	}
	return s.operators.ListActive(ctx)
}

// Update edits an operator. Non-admins may only edit themselves and may not
// touch the admin or active flags.
func (s *OperatorService) Update(ctx context.Context, caller *Caller, id uint, in UpdateOperatorInput) ([]domain.Operator, error) {
	target, err := s.operators.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Internal("find operator", err)
	}
	if target == nil {
		return nil, domain.NotFound("operator not found")
	}
	if !caller.Admin {
		if caller.ID != target.ID {
			return nil, domain.Forbidden("you may only edit your own account")
		}
		if in.Admin != nil || in.Active != nil {
			return nil, domain.Forbidden("admin role required to change admin or active flags")
		}
	}
	if in.Email != nil && *in.Email != target.Email {
		taken, err := s.operators.EmailTaken(ctx, *in.Email, id)
		if err != nil {
			return nil, domain.Internal("check email", err)
		}
		if taken {
			return nil, domain.Conflict("email already registered")
		}
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Phone != nil {
		fields["phone"] = *in.Phone
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.Admin != nil {
		fields["admin"] = *in.Admin
	}
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if len(fields) == 0 {
		return nil, domain.InvalidArgument("no fields to update")
	}
	if err := s.operators.Updates(ctx, id, fields); err != nil {
		return nil, domain.Internal("update operator", err)
	}

	s.policy.InvalidateOperator(ctx, target.Email)
	if in.Email != nil {
		s.policy.InvalidateOperator(ctx, *in.Email)
	}
	return s.operators.ListActive(ctx)
}

// RecoverPassword never reveals whether the email exists: token creation and
// link delivery happen after the caller already got its neutral answer.
func (s *OperatorService) RecoverPassword(ctx context.Context, email string) {
	go func() {
		ctx := context.Background()
		op, err := s.operators.FindByEmail(ctx, email)
		if err != nil {
			s.log.Error("recover password lookup", zap.Error(err))
			return
		}
		if op == nil {
			return
		}
		t := domain.PasswordToken{OperatorID: op.ID, Token: uuid.NewString()}
		if err := s.operators.CreateToken(ctx, &t); err != nil {
			s.log.Error("create password token", zap.Error(err), zap.Uint("operatorId", op.ID))
			return
		}
		s.notifier.SendPasswordResetLink(op.Email, t.Token)
	}()
}

func (s *OperatorService) ChangePassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return domain.InvalidArgument("token and password are required")
	}
	t, err := s.operators.FindToken(ctx, token)
	if err != nil {
		return domain.Internal("find token", err)
	}
	if t == nil || t.Used {
		return domain.InvalidArgument("invalid or expired token")
	}
	if err := s.operators.UpdatePassword(ctx, t.OperatorID, utils.HashPassword(password)); err != nil {
		return domain.Internal("update password", err)
	}
	if err := s.operators.InvalidateTokens(ctx, t.OperatorID); err != nil {
		return domain.Internal("invalidate tokens", err)
	}
	return nil
}
