package stores

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

func (s *Service) List(ctx context.Context, page shared.Page) ([]Store, error) {
	return s.repo.List(ctx, page)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Store, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req StoreRequest) (Store, error) {
	store := req.toStore()
	if err := validate(store); err != nil {
		return Store{}, err
	}
	return s.repo.Create(ctx, store)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req StoreRequest) (Store, error) {
	store := req.toStore()
	if err := validate(store); err != nil {
		return Store{}, err
	}
	return s.repo.Update(ctx, id, store)
}

// Delete removes the store. Financial rows referencing it keep the store
// alive through foreign keys, which surfaces as a validation error.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func validate(store Store) error {
	if strings.TrimSpace(store.Name) == "" {
		return shared.Validationf("%s", errNameRequired)
	}
	return nil
}
