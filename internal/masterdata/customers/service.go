package customers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/platform/cache"
	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/shared"
)

type Service struct {
	repo  Repository
	audit shared.AuditPort
	cache cache.Invalidator
}

func NewService(repo Repository, audit shared.AuditPort) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit}
}

// WithCache bumps the payments cache after writes, since payment rows carry
// the customer name.
func (s *Service) WithCache(c cache.Invalidator) {
	s.cache = c
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CustomerRequest) (Customer, error) {
	c := req.toCustomer()
	if c.FirstName == "" {
		return Customer{}, shared.Validationf("first_name is required")
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Customer{}, err
	}
	s.record(ctx, "customer.create", created.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req CustomerRequest) (Customer, error) {
	c := req.toCustomer()
	if c.FirstName == "" {
		return Customer{}, shared.Validationf("first_name is required")
	}
	updated, err := s.repo.Update(ctx, id, c)
	if err != nil {
		return Customer{}, err
	}
	s.record(ctx, "customer.update", id)
	s.invalidate(ctx)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	s.record(ctx, "customer.delete", id)
	s.invalidate(ctx)
	return nil
}

// record is best effort; an audit failure never fails the write.
func (s *Service) record(ctx context.Context, action string, id uuid.UUID) {
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "customer", EntityID: id.String()})
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	db.OnCommit(ctx, func() {
		_ = s.cache.Bump(context.WithoutCancel(ctx))
	})
}
