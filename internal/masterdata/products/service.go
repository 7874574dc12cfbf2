package products

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/shared"
)

type Service struct {
	repo  Repository
	audit shared.AuditPort
}

func NewService(repo Repository, audit shared.AuditPort) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req ProductRequest) (Product, error) {
	p, err := build(req)
	if err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req ProductRequest) (Product, error) {
	p, err := build(req)
	if err != nil {
		return Product{}, err
	}
	return s.repo.Update(ctx, id, p)
}

// Deactivate hides the product from sale. Products are never hard-deleted
// because invoice and sale lines reference them.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (Product, error) {
	p, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return Product{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: "product.deactivate", Entity: "product", EntityID: id.String()})
	return p, nil
}

func build(req ProductRequest) (Product, error) {
	p := Product{
		SKU:          strings.ToUpper(strings.TrimSpace(req.SKU)),
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Category:     strings.TrimSpace(req.Category),
		Brand:        strings.TrimSpace(req.Brand),
		Price:        shared.Round2(req.Price),
		CostPrice:    shared.Round2(req.CostPrice),
		SupplierName: strings.TrimSpace(req.SupplierName),
		ReorderLevel: req.ReorderLevel,
	}
	if p.SKU == "" || p.Name == "" {
		return Product{}, shared.Validationf("sku and name are required")
	}
	if p.Price.IsNegative() || p.CostPrice.IsNegative() {
		return Product{}, ErrNegativePrice
	}
	return p, nil
}
