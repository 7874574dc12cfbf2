package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/shared"
)

// Balance is the on-hand quantity of one product in one store.
type Balance struct {
	StoreID         uuid.UUID  `json:"store_id"`
	ProductID       uuid.UUID  `json:"product_id"`
	Quantity        int        `json:"quantity"`
	MinStock        int        `json:"min_stock"`
	LastRestockedAt *time.Time `json:"last_restocked_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ProductRef is the slice of a product the reorder pipeline reads and writes.
type ProductRef struct {
	ID           uuid.UUID
	SKU          string
	Name         string
	CostPrice    decimal.Decimal
	SupplierName string
	IsActive     bool
}

// StockLevel is a balance joined with its product for listing.
type StockLevel struct {
	Balance
	SKU          string          `json:"sku"`
	ProductName  string          `json:"product_name"`
	Price        decimal.Decimal `json:"price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SupplierName string          `json:"supplier_name"`
	ReorderLevel int             `json:"reorder_level"`
}

// Threshold is the larger of the store minimum and the product reorder level.
func (l StockLevel) Threshold() int {
	if l.MinStock > l.ReorderLevel {
		return l.MinStock
	}
	return l.ReorderLevel
}

// Low reports whether the row needs restocking.
func (l StockLevel) Low() bool {
	return l.Quantity <= l.Threshold()
}

// Suggestion is a low-stock row with a proposed order quantity.
type Suggestion struct {
	StockLevel
	SuggestedQuantity int `json:"suggested_quantity"`
}

// StockFilter narrows stock listings.
type StockFilter struct {
	StoreID *uuid.UUID
	LowOnly bool
	Page    shared.Page
}

// ReorderRequest is the POST /api/products/reorder body.
type ReorderRequest struct {
	ProductID     uuid.UUID       `json:"product_id" validate:"required"`
	StoreID       uuid.UUID       `json:"store_id" validate:"required"`
	Quantity      int             `json:"quantity" validate:"gt=0"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Supplier      string          `json:"supplier"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
}

// BulkItem is one product line of a bulk reorder.
type BulkItem struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// BulkReorderRequest is the POST /api/products/bulk-reorder body.
type BulkReorderRequest struct {
	StoreID       uuid.UUID  `json:"store_id" validate:"required"`
	Supplier      string     `json:"supplier"`
	PaymentMethod string     `json:"payment_method"`
	Notes         string     `json:"notes"`
	Items         []BulkItem `json:"items" validate:"required,min=1,dive"`
}

// AdjustRequest is the POST /api/inventory/adjust body. Delta may be negative.
type AdjustRequest struct {
	StoreID   uuid.UUID `json:"store_id" validate:"required"`
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Delta     int       `json:"delta"`
	MinStock  *int      `json:"min_stock" validate:"omitempty,gte=0"`
	Reason    string    `json:"reason"`
}

var (
	// ErrBalanceNotFound indicates the store has never stocked the product.
	ErrBalanceNotFound = errors.New("inventory: balance not found")
	// ErrProductNotFound wraps shared.ErrNotFound.
	ErrProductNotFound = fmt.Errorf("product %w", shared.ErrNotFound)
	// ErrInactiveProduct rejects reorders of deactivated products.
	ErrInactiveProduct = fmt.Errorf("%w: product is inactive", shared.ErrValidation)
	// ErrNegativeStock is returned when a movement would leave quantity below zero.
	ErrNegativeStock = fmt.Errorf("%w: insufficient stock", shared.ErrConflict)
	// ErrInvalidQuantity indicates a zero or negative reorder quantity.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = fmt.Errorf("%w: unit cost must be >= 0", shared.ErrValidation)
	// ErrDuplicateProduct rejects a bulk reorder listing a product twice.
	ErrDuplicateProduct = fmt.Errorf("%w: product listed twice", shared.ErrValidation)
)
