package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/billing"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListStock(ctx context.Context, filter StockFilter) ([]StockLevel, error)
}

// Expenditures records the money side of a restock.
type Expenditures interface {
	CreateExpenditure(ctx context.Context, in billing.ExpenditureInvoice) (billing.Invoice, error)
}

// Service coordinates store stock and the reorder pipeline.
type Service struct {
	repo    RepositoryPort
	billing Expenditures
	audit   shared.AuditPort
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, expenditures Expenditures, audit shared.AuditPort) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, billing: expenditures, audit: audit, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// ReorderResult is the outcome of a single-product reorder.
type ReorderResult struct {
	Invoice billing.Invoice `json:"invoice"`
	Balance Balance         `json:"balance"`
}

// BulkReorderResult is the outcome of a bulk reorder.
type BulkReorderResult struct {
	Invoice  billing.Invoice `json:"invoice"`
	Balances []Balance       `json:"balances"`
}

// Reorder restocks one product: the cost price and supplier are refreshed,
// store stock grows by exactly the ordered quantity and one paid reorder
// invoice is written, all in one transaction.
func (s *Service) Reorder(ctx context.Context, req ReorderRequest) (ReorderResult, error) {
	if req.StoreID == uuid.Nil || req.ProductID == uuid.Nil {
		return ReorderResult{}, shared.Validationf("store_id and product_id are required")
	}
	if err := checkLine(req.Quantity, req.UnitCost); err != nil {
		return ReorderResult{}, err
	}

	var result ReorderResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, balance, err := s.restock(ctx, tx, req.StoreID, req.ProductID, req.Quantity, req.UnitCost, req.Supplier)
		if err != nil {
			return err
		}
		result.Balance = balance

		result.Invoice, err = s.billing.CreateExpenditure(ctx, billing.ExpenditureInvoice{
			Source:        billing.SourceReorder,
			StoreID:       req.StoreID,
			Supplier:      supplierOf(req.Supplier, product),
			Category:      "inventory",
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
			Items:         []billing.ItemInput{lineFor(product, req.Quantity, req.UnitCost)},
		})
		return err
	})
	if err != nil {
		return ReorderResult{}, fmt.Errorf("reorder: %w", err)
	}
	s.record(ctx, "inventory:reorder", result.Invoice.ID, map[string]any{
		"product_id": req.ProductID.String(),
		"store_id":   req.StoreID.String(),
		"quantity":   req.Quantity,
	})
	return result, nil
}

// BulkReorder restocks several products for one store under a single
// compound invoice with one line per product.
func (s *Service) BulkReorder(ctx context.Context, req BulkReorderRequest) (BulkReorderResult, error) {
	if req.StoreID == uuid.Nil {
		return BulkReorderResult{}, shared.Validationf("store_id is required")
	}
	if len(req.Items) == 0 {
		return BulkReorderResult{}, shared.Validationf("at least one item is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return BulkReorderResult{}, shared.Validationf("product_id is required")
		}
		if _, dup := seen[item.ProductID]; dup {
			return BulkReorderResult{}, ErrDuplicateProduct
		}
		seen[item.ProductID] = struct{}{}
		if err := checkLine(item.Quantity, item.UnitCost); err != nil {
			return BulkReorderResult{}, err
		}
	}

	var result BulkReorderResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		lines := make([]billing.ItemInput, 0, len(req.Items))
		result.Balances = make([]Balance, 0, len(req.Items))
		for _, item := range req.Items {
			product, balance, err := s.restock(ctx, tx, req.StoreID, item.ProductID, item.Quantity, item.UnitCost, req.Supplier)
			if err != nil {
				return err
			}
			result.Balances = append(result.Balances, balance)
			lines = append(lines, lineFor(product, item.Quantity, item.UnitCost))
		}

		var err error
		result.Invoice, err = s.billing.CreateExpenditure(ctx, billing.ExpenditureInvoice{
			Source:        billing.SourceBulkReorder,
			StoreID:       req.StoreID,
			Supplier:      strings.TrimSpace(req.Supplier),
			Category:      "inventory",
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
			Items:         lines,
		})
		return err
	})
	if err != nil {
		return BulkReorderResult{}, fmt.Errorf("bulk reorder: %w", err)
	}
	s.record(ctx, "inventory:bulk_reorder", result.Invoice.ID, map[string]any{
		"store_id": req.StoreID.String(),
		"products": len(req.Items),
	})
	return result, nil
}

func (s *Service) restock(ctx context.Context, tx TxRepository, storeID, productID uuid.UUID, qty int, cost decimal.Decimal, supplier string) (ProductRef, Balance, error) {
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return ProductRef{}, Balance{}, err
	}
	if !product.IsActive {
		return ProductRef{}, Balance{}, ErrInactiveProduct
	}
	cost = shared.Round2(cost)
	supplier = strings.TrimSpace(supplier)
	if err := tx.UpdateProductCost(ctx, productID, cost, supplier); err != nil {
		return ProductRef{}, Balance{}, err
	}
	product.CostPrice = cost
	if supplier != "" {
		product.SupplierName = supplier
	}

	balance, err := s.loadBalance(ctx, tx, storeID, productID)
	if err != nil {
		return ProductRef{}, Balance{}, err
	}
	now := s.now().UTC()
	balance.Quantity += qty
	balance.LastRestockedAt = &now
	balance, err = tx.UpsertBalance(ctx, balance)
	if err != nil {
		return ProductRef{}, Balance{}, err
	}
	return product, balance, nil
}

// Adjust applies a signed correction to one store balance. The quantity may
// never go below zero.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (Balance, error) {
	if req.StoreID == uuid.Nil || req.ProductID == uuid.Nil {
		return Balance{}, shared.Validationf("store_id and product_id are required")
	}
	if req.Delta == 0 && req.MinStock == nil {
		return Balance{}, shared.Validationf("delta or min_stock is required")
	}
	if req.MinStock != nil && *req.MinStock < 0 {
		return Balance{}, shared.Validationf("min_stock must be >= 0")
	}

	var out Balance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetProductForUpdate(ctx, req.ProductID); err != nil {
			return err
		}
		balance, err := s.loadBalance(ctx, tx, req.StoreID, req.ProductID)
		if err != nil {
			return err
		}
		if balance.Quantity+req.Delta < 0 {
			return ErrNegativeStock
		}
		balance.Quantity += req.Delta
		if req.MinStock != nil {
			balance.MinStock = *req.MinStock
		}
		out, err = tx.UpsertBalance(ctx, balance)
		return err
	})
	if err != nil {
		return Balance{}, err
	}
	s.record(ctx, "inventory:adjust", req.ProductID, map[string]any{
		"store_id": req.StoreID.String(),
		"delta":    req.Delta,
		"reason":   req.Reason,
	})
	return out, nil
}

func (s *Service) loadBalance(ctx context.Context, tx TxRepository, storeID, productID uuid.UUID) (Balance, error) {
	balance, err := tx.GetBalanceForUpdate(ctx, storeID, productID)
	if errors.Is(err, ErrBalanceNotFound) {
		return Balance{StoreID: storeID, ProductID: productID}, nil
	}
	return balance, err
}

// ListStock lists store balances.
func (s *Service) ListStock(ctx context.Context, filter StockFilter) ([]StockLevel, error) {
	return s.repo.ListStock(ctx, filter)
}

// Suggestions lists low-stock rows with a quantity that brings each back to
// twice its threshold.
func (s *Service) Suggestions(ctx context.Context, storeID *uuid.UUID, page shared.Page) ([]Suggestion, error) {
	levels, err := s.repo.ListStock(ctx, StockFilter{StoreID: storeID, LowOnly: true, Page: page})
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, 0, len(levels))
	for _, l := range levels {
		if !l.Low() {
			continue
		}
		qty := 2*l.Threshold() - l.Quantity
		if qty < 1 {
			qty = 1
		}
		out = append(out, Suggestion{StockLevel: l, SuggestedQuantity: qty})
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, action string, id uuid.UUID, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "store_inventory",
		EntityID: id.String(),
		Meta:     meta,
		At:       s.now(),
	})
}

func checkLine(qty int, cost decimal.Decimal) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if cost.IsNegative() {
		return ErrInvalidUnitCost
	}
	return nil
}

func lineFor(p ProductRef, qty int, cost decimal.Decimal) billing.ItemInput {
	id := p.ID
	return billing.ItemInput{
		ProductID:   &id,
		ProductName: p.Name,
		Description: "Restock " + p.SKU,
		Quantity:    qty,
		UnitPrice:   shared.Round2(cost),
	}
}

func supplierOf(requested string, p ProductRef) string {
	if s := strings.TrimSpace(requested); s != "" {
		return s
	}
	return p.SupplierName
}
