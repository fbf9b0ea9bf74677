package service

import (
	"context"

	"lendtrack/internal/domain"
	"lendtrack/internal/repo"
)

// PersonService manages borrower records. People are deactivated, never
// deleted; the lending engine only reads them.
type PersonService struct {
	people *repo.PersonRepo
	policy *Policy
}

func NewPersonService(people *repo.PersonRepo, policy *Policy) *PersonService {
	return &PersonService{people: people, policy: policy}
}

type PersonInput struct {
	Name       string
	Phone1     string
	Phone2     string
	PostalCode string
	Street     string
	District   string
	Complement string
	Number     string
	Document   string
	RG         string
}

type UpdatePersonInput struct {
	Name       *string
	Phone1     *string
	Phone2     *string
	PostalCode *string
	Street     *string
	District   *string
	Complement *string
	Number     *string
	Document   *string
	RG         *string
	Active     *bool
}

func (s *PersonService) List(ctx context.Context, caller *Caller, search string) ([]domain.Person, error) {
	people, err := s.people.List(ctx, search, !caller.Admin)
	if err != nil {
		return nil, domain.Internal("list people", err)
	}
	return people, nil
}

func (s *PersonService) Get(ctx context.Context, caller *Caller, id uint) (*domain.Person, error) {
	p, err := s.people.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Internal("find person", err)
	}
	if p == nil || (!caller.Admin && !p.Active) {
		return nil, domain.NotFound("person not found")
	}
	return p, nil
}

func (s *PersonService) Create(ctx context.Context, in PersonInput) ([]domain.Person, error) {
	if in.Name == "" || in.Document == "" {
		return nil, domain.InvalidArgument("name and document are required")
	}
	taken, err := s.people.DocumentTaken(ctx, in.Document, 0)
	if err != nil {
		return nil, domain.Internal("check document", err)
	}
	if taken {
		return nil, domain.Conflict("person is already registered")
	}
	p := domain.Person{
		Name: in.Name, Phone1: in.Phone1, Phone2: in.Phone2,
		PostalCode: in.PostalCode, Street: in.Street, District: in.District,
		Complement: in.Complement, Number: in.Number,
		Document: in.Document, RG: in.RG, Active: true,
	}
	if err := s.people.Create(ctx, &p); err != nil {
		return nil, domain.Internal("insert person", err)
	}
	return s.people.ListActive(ctx)
}

func (s *PersonService) Update(ctx context.Context, caller *Caller, id uint, in UpdatePersonInput) ([]domain.Person, error) {
	if in.Active != nil {
		if err := s.policy.RequireAdmin(caller); err != nil {
			return nil, err
		}
	}
	p, err := s.people.FindByID(ctx, id)
	if err != nil {
		return nil, domain.Internal("find person", err)
	}
	if p == nil || (!caller.Admin && !p.Active) {
		return nil, domain.NotFound("person not found")
	}
	if in.Document != nil && *in.Document != p.Document {
		taken, err := s.people.DocumentTaken(ctx, *in.Document, id)
		if err != nil {
			return nil, domain.Internal("check document", err)
		}
		if taken {
			return nil, domain.Conflict("document already registered")
		}
	}

	fields := map[string]any{}
	setStr := func(col string, v *string) {
		if v != nil {
			fields[col] = *v
		}
	}
	setStr("name", in.Name)
	setStr("phone1", in.Phone1)
	setStr("phone2", in.Phone2)
	setStr("postal_code", in.PostalCode)
	setStr("street", in.Street)
	setStr("district", in.District)
	setStr("complement", in.Complement)
	setStr("number", in.Number)
	setStr("document", in.Document)
	setStr("rg", in.RG)
	if in.Active != nil {
		fields["active"] = *in.Active
	}
	if len(fields) == 0 {
		return nil, domain.InvalidArgument("no fields to update")
	}
	if err := s.people.Updates(ctx, id, fields); err != nil {
		return nil, domain.Internal("update person", err)
	}
	return s.people.ListActive(ctx)
}
