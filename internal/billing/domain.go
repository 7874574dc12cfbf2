package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/accounting"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// InvoiceStatus is the lifecycle state of a regular invoice.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusSent      InvoiceStatus = "sent"
	StatusPaid      InvoiceStatus = "paid"
	StatusOverdue   InvoiceStatus = "overdue"
	StatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Source records which workflow wrote the invoice row.
type Source string

const (
	SourceRegular     Source = "regular"
	SourceReorder     Source = "reorder"
	SourceBulkReorder Source = "bulk_reorder"
	SourceExpenditure Source = "expenditure"
)

// Expenditure reports whether rows of this source are always outgoing money.
func (s Source) Expenditure() bool {
	return s == SourceReorder || s == SourceBulkReorder || s == SourceExpenditure
}

// Direction classifies money flow. Rows imported from the old schema may
// have no direction until the legacy backfill runs.
type Direction string

const (
	DirectionIncome      Direction = "income"
	DirectionExpenditure Direction = "expenditure"
)

// PaymentMethodCash settles an invoice at creation.
const PaymentMethodCash = "cash"

var (
	ErrInvoiceNotFound        = fmt.Errorf("invoice %w", shared.ErrNotFound)
	ErrMedicalInvoiceNotFound = fmt.Errorf("medical invoice %w", shared.ErrNotFound)
	ErrNoItems                = fmt.Errorf("%w: at least one item is required", shared.ErrValidation)
	ErrNegativeTotal          = fmt.Errorf("%w: discount exceeds invoice value", shared.ErrValidation)
	ErrLineTotalMismatch      = fmt.Errorf("%w: line total does not match quantity x unit_price - discount", shared.ErrValidation)
	ErrInvalidStatus          = fmt.Errorf("%w: unknown invoice status", shared.ErrValidation)
	ErrAlreadySettled         = fmt.Errorf("%w: invoice is already paid", shared.ErrConflict)
	ErrCancelled              = fmt.Errorf("%w: invoice is cancelled", shared.ErrConflict)
	errStoreRequired          = errors.New("store_id is required")
)

// LineItem is an immutable invoice line.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"product_id"`
	ProductName string          `json:"product_name"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

type Invoice struct {
	ID               uuid.UUID       `json:"id"`
	InvoiceNumber    string          `json:"invoice_number"`
	CustomerID       *uuid.UUID      `json:"customer_id"`
	PatientID        *uuid.UUID      `json:"patient_id"`
	StoreID          uuid.UUID       `json:"store_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Source           Source          `json:"source"`
	Direction        *Direction      `json:"direction"`
	Category         string          `json:"category"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	Total            decimal.Decimal `json:"total"`
	Status           InvoiceStatus   `json:"status"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentDate      *time.Time      `json:"payment_date"`
	DueDate          *time.Time      `json:"due_date"`
	Notes            string          `json:"notes"`
	CreatedBy        *uuid.UUID      `json:"created_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Items            []LineItem      `json:"items"`
}

// IsExpenditure reports whether the invoice records money paid out.
func (i Invoice) IsExpenditure() bool {
	return i.Direction != nil && *i.Direction == DirectionExpenditure
}

// PostingSource maps the invoice to the ledger (transaction, source) pair.
func (i Invoice) PostingSource() (accounting.TransactionType, accounting.SourceType) {
	if !i.IsExpenditure() {
		return accounting.TransactionIncome, accounting.SourceInvoice
	}
	switch i.Source {
	case SourceReorder:
		return accounting.TransactionExpense, accounting.SourceReorder
	case SourceBulkReorder:
		return accounting.TransactionExpense, accounting.SourceBulkReorder
	case SourceExpenditure:
		return accounting.TransactionExpense, accounting.SourceExpenditure
	default:
		return accounting.TransactionExpense, accounting.SourceInvoice
	}
}

// ItemInput is one requested line. Total is optional; when present it must
// agree with the computed value.
type ItemInput struct {
	ProductID   *uuid.UUID       `json:"product_id"`
	ProductName string           `json:"product_name" validate:"required"`
	Description string           `json:"description"`
	Quantity    int              `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Discount    decimal.Decimal  `json:"discount"`
	Total       *decimal.Decimal `json:"total"`
}

// CreateInvoiceRequest is the POST /api/invoices body. customer_id may hold
// either a customer or a patient id; it is resolved server side.
type CreateInvoiceRequest struct {
	CustomerID     *uuid.UUID       `json:"customer_id"`
	PatientID      *uuid.UUID       `json:"patient_id"`
	StoreID        uuid.UUID        `json:"store_id" validate:"required"`
	Items          []ItemInput      `json:"items" validate:"required,min=1,dive"`
	TaxRate        *decimal.Decimal `json:"tax_rate"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	PaymentMethod  string           `json:"payment_method"`
	DueDate        *time.Time       `json:"due_date"`
	Notes          string           `json:"notes"`
}

// ExpenditureInvoice describes outgoing money written by the reorder
// pipeline or the expenditures endpoint.
type ExpenditureInvoice struct {
	Source        Source
	StoreID       uuid.UUID
	Supplier      string
	Category      string
	Items         []ItemInput
	PaymentMethod string
	Notes         string
}

// ExpenditureRequest is the POST /api/expenditures body.
type ExpenditureRequest struct {
	StoreID       uuid.UUID       `json:"store_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category" validate:"required"`
	Description   string          `json:"description" validate:"required"`
	Supplier      string          `json:"supplier"`
	PaymentMethod string          `json:"payment_method"`
}

type InvoiceFilter struct {
	StoreID   *uuid.UUID
	Status    InvoiceStatus
	Direction Direction
	Page      shared.Page
}

// MedicalPaymentStatus is the payment state of a medical invoice.
type MedicalPaymentStatus string

const (
	MedicalPending   MedicalPaymentStatus = "pending"
	MedicalPaid      MedicalPaymentStatus = "paid"
	MedicalPartial   MedicalPaymentStatus = "partial"
	MedicalCancelled MedicalPaymentStatus = "cancelled"
)

func (s MedicalPaymentStatus) Valid() bool {
	switch s {
	case MedicalPending, MedicalPaid, MedicalPartial, MedicalCancelled:
		return true
	}
	return false
}

type MedicalInvoice struct {
	ID             uuid.UUID            `json:"id"`
	InvoiceNumber  string               `json:"invoice_number"`
	PatientID      uuid.UUID            `json:"patient_id"`
	StoreID        uuid.UUID            `json:"store_id"`
	AppointmentID  *uuid.UUID           `json:"appointment_id"`
	PrescriptionID *uuid.UUID           `json:"prescription_id"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	TaxRate        decimal.Decimal      `json:"tax_rate"`
	TaxAmount      decimal.Decimal      `json:"tax_amount"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	Total          decimal.Decimal      `json:"total"`
	PaymentStatus  MedicalPaymentStatus `json:"payment_status"`
	PaymentMethod  string               `json:"payment_method"`
	PaymentDate    *time.Time           `json:"payment_date"`
	Notes          string               `json:"notes"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// PostingSource is income/appointment for appointment invoices and
// income/medical_invoice otherwise.
func (m MedicalInvoice) PostingSource() accounting.SourceType {
	if m.AppointmentID != nil {
		return accounting.SourceAppointment
	}
	return accounting.SourceMedicalInvoice
}

type MedicalInvoiceRequest struct {
	InvoiceNumber  string               `json:"invoice_number"`
	PatientID      uuid.UUID            `json:"patient_id" validate:"required"`
	StoreID        uuid.UUID            `json:"store_id" validate:"required"`
	AppointmentID  *uuid.UUID           `json:"appointment_id"`
	PrescriptionID *uuid.UUID           `json:"prescription_id"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	TaxRate        decimal.Decimal      `json:"tax_rate"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	PaymentStatus  MedicalPaymentStatus `json:"payment_status"`
	PaymentMethod  string               `json:"payment_method"`
	Notes          string               `json:"notes"`
}

type MedicalInvoiceFilter struct {
	StoreID       *uuid.UUID
	PatientID     *uuid.UUID
	PaymentStatus MedicalPaymentStatus
	Page          shared.Page
}
