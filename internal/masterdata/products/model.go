package products

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/shared"
)

var (
	ErrNotFound      = fmt.Errorf("product %w", shared.ErrNotFound)
	ErrNegativePrice = fmt.Errorf("%w: price and cost_price must not be negative", shared.ErrValidation)
)

// Product is a catalogue item: frames, lenses, contact lenses, accessories.
type Product struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Brand        string          `json:"brand"`
	Price        decimal.Decimal `json:"price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SupplierName string          `json:"supplier_name"`
	ReorderLevel int             `json:"reorder_level"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ListFilter struct {
	Search     string
	Category   string
	ActiveOnly bool
	Page       shared.Page
}

type ProductRequest struct {
	SKU          string          `json:"sku" validate:"required,max=64"`
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description"`
	Category     string          `json:"category" validate:"max=64"`
	Brand        string          `json:"brand" validate:"max=100"`
	Price        decimal.Decimal `json:"price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SupplierName string          `json:"supplier_name"`
	ReorderLevel int             `json:"reorder_level" validate:"gte=0"`
}
