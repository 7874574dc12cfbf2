package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/accounting"
	"github.com/opticlinic/opticlinic/internal/billing"
	"github.com/opticlinic/opticlinic/internal/platform/cache"
	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id uuid.UUID) (Sale, error)
	ListSales(ctx context.Context, filter Filter) ([]Sale, error)
}

// Ledger posts the revenue of a sale.
type Ledger interface {
	Post(ctx context.Context, req accounting.PostingRequest) (accounting.Posting, error)
}

// Service provides business logic for POS sales.
type Service struct {
	repo           RepositoryPort
	ledger         Ledger
	audit          shared.AuditPort
	cache          cache.Invalidator
	defaultTaxRate decimal.Decimal
	now            func() time.Time
}

// NewService constructs a sales service.
func NewService(repo RepositoryPort, ledger Ledger, audit shared.AuditPort) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, ledger: ledger, audit: audit, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithCache bumps the payment listing cache after each committed sale.
func (s *Service) WithCache(c cache.Invalidator) {
	s.cache = c
}

func (s *Service) WithDefaultTaxRate(rate decimal.Decimal) {
	s.defaultTaxRate = rate
}

// Create records a paid counter sale. Each line decrements store stock and a
// single short line rejects the whole sale.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Sale, error) {
	if req.StoreID == uuid.Nil {
		return Sale{}, shared.Validationf("store_id is required")
	}
	if len(req.Items) == 0 {
		return Sale{}, billing.ErrNoItems
	}
	taxRate := s.defaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = billing.PaymentMethodCash
	}

	var created Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inputs := make([]billing.ItemInput, 0, len(req.Items))
		for _, line := range req.Items {
			if line.Quantity <= 0 {
				return shared.Validationf("quantity must be positive")
			}
			product, err := tx.GetProduct(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !product.IsActive {
				return ErrInactiveProduct
			}
			price := product.Price
			if line.UnitPrice != nil {
				price = *line.UnitPrice
			}
			if err := tx.DecrementStock(ctx, req.StoreID, product.ID, line.Quantity); err != nil {
				return fmt.Errorf("%s: %w", product.Name, err)
			}
			id := product.ID
			inputs = append(inputs, billing.ItemInput{ProductID: &id, ProductName: product.Name, Quantity: line.Quantity, UnitPrice: price})
		}

		lines, err := billing.BuildLines(inputs)
		if err != nil {
			return err
		}
		totals, err := billing.ComputeTotals(lines, taxRate, decimal.Zero)
		if err != nil {
			return err
		}
		sale := Sale{
			SaleNumber:    billing.NewNumber(salePrefix, s.now().UTC()),
			StoreID:       req.StoreID,
			CustomerID:    req.CustomerID,
			StaffID:       req.StaffID,
			Subtotal:      totals.Subtotal,
			TaxRate:       totals.TaxRate,
			TaxAmount:     totals.TaxAmount,
			Total:         totals.Total,
			PaymentMethod: method,
			PaymentStatus: PaymentStatusPaid,
			Notes:         req.Notes,
			Items:         make([]Item, 0, len(lines)),
		}
		for _, l := range lines {
			sale.Items = append(sale.Items, Item{ProductID: *l.ProductID, ProductName: l.ProductName, Quantity: l.Quantity, UnitPrice: l.UnitPrice, Total: l.Total})
		}

		created, err = tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		return s.post(ctx, created)
	})
	if err != nil {
		return Sale{}, fmt.Errorf("create sale: %w", err)
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   "sale.create",
		Entity:   "sale",
		EntityID: created.ID.String(),
		Meta:     map[string]any{"total": created.Total.String(), "items": len(created.Items)},
	})
	if s.cache != nil {
		db.OnCommit(ctx, func() {
			_ = s.cache.Bump(context.WithoutCancel(ctx))
		})
	}
	return created, nil
}

func (s *Service) post(ctx context.Context, sale Sale) error {
	if s.ledger == nil || !sale.Total.IsPositive() {
		return nil
	}
	_, err := s.ledger.Post(ctx, accounting.PostingRequest{
		TransactionType: accounting.TransactionIncome,
		SourceType:      accounting.SourceSale,
		Amount:          sale.Total,
		ReferenceID:     sale.ID,
		Description:     "Sale " + sale.SaleNumber,
		Date:            s.now(),
	})
	if err != nil {
		return fmt.Errorf("post income/sale: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Sale, error) {
	return s.repo.ListSales(ctx, filter)
}
