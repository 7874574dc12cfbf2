package staff

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Staff, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Staff, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req StaffRequest) (Staff, error) {
	st, err := build(req)
	if err != nil {
		return Staff{}, err
	}
	return s.repo.Create(ctx, st)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req StaffRequest) (Staff, error) {
	st, err := build(req)
	if err != nil {
		return Staff{}, err
	}
	return s.repo.Update(ctx, id, st)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (Staff, error) {
	return s.repo.SetActive(ctx, id, false)
}

func build(req StaffRequest) (Staff, error) {
	role := Role(strings.ToLower(strings.TrimSpace(string(req.Role))))
	if !role.Valid() {
		return Staff{}, shared.Validationf("unknown staff role %q", req.Role)
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return Staff{
		StaffCode: strings.TrimSpace(req.StaffCode),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:     req.Phone,
		Position:  req.Position,
		Role:      role,
		StoreID:   req.StoreID,
		IsActive:  active,
	}, nil
}
