package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/shared"
)

// PaymentStatusPaid is the only status a POS sale is written with.
const PaymentStatusPaid = "paid"

const salePrefix = "SALE"

var (
	ErrSaleNotFound      = fmt.Errorf("sale %w", shared.ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("product %w", shared.ErrNotFound)
	ErrInactiveProduct   = fmt.Errorf("%w: product is inactive", shared.ErrValidation)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", shared.ErrConflict)
)

// Sale is a counter sale settled at creation.
type Sale struct {
	ID            uuid.UUID       `json:"id"`
	SaleNumber    string          `json:"sale_number"`
	StoreID       uuid.UUID       `json:"store_id"`
	CustomerID    *uuid.UUID      `json:"customer_id"`
	StaffID       *uuid.UUID      `json:"staff_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []Item          `json:"items"`
}

type Item struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Product is the catalogue data a sale line needs.
type Product struct {
	ID       uuid.UUID
	Name     string
	Price    decimal.Decimal
	IsActive bool
}

// ItemRequest is one requested line. UnitPrice defaults to the catalogue price.
type ItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// CreateRequest is the POST /api/sales body.
type CreateRequest struct {
	StoreID       uuid.UUID        `json:"store_id" validate:"required"`
	CustomerID    *uuid.UUID       `json:"customer_id"`
	StaffID       *uuid.UUID       `json:"staff_id"`
	Items         []ItemRequest    `json:"items" validate:"required,min=1,dive"`
	TaxRate       *decimal.Decimal `json:"tax_rate"`
	PaymentMethod string           `json:"payment_method"`
	Notes         string           `json:"notes"`
}

type Filter struct {
	StoreID    *uuid.UUID
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       shared.Page
}
