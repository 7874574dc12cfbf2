package payments

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the money direction of a payment record.
type Type string

const (
	TypeIncome      Type = "income"
	TypeExpenditure Type = "expenditure"
)

// Source classifies which document a payment record was projected from.
type Source string

const (
	SourceRegularInvoice Source = "regular_invoice"
	SourceMedicalInvoice Source = "medical_invoice"
	SourceQuickSale      Source = "quick_sale"
	SourceExpenditure    Source = "expenditure"
)

// Payment id prefixes.
const (
	PrefixInvoice     = "inv"
	PrefixMedical     = "pay"
	PrefixSale        = "sale"
	PrefixAppointment = "apt"
)

const (
	GuestCustomer   = "Guest Customer"
	UnknownCustomer = "Unknown Customer"
)

// Record is one row of the unified payment ledger. It is computed on read
// and never stored.
type Record struct {
	ID              string          `json:"id"`
	SourceID        uuid.UUID       `json:"source_id"`
	ReferenceNumber string          `json:"reference_number"`
	Counterparty    string          `json:"counterparty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentDate     time.Time       `json:"payment_date"`
	Status          string          `json:"status"`
	StoreID         uuid.UUID       `json:"store_id"`
	Source          Source          `json:"source"`
	Type            Type            `json:"type"`
}

// Filter narrows the aggregated listing.
type Filter struct {
	StoreID *uuid.UUID
	Type    Type
	Source  Source
}

func (f Filter) key() string {
	store := "-"
	if f.StoreID != nil {
		store = f.StoreID.String()
	}
	parts := []string{store, string(f.Type), string(f.Source)}
	for i, p := range parts {
		if p == "" {
			parts[i] = "-"
		}
	}
	return strings.Join(parts, ",")
}

func (f Filter) match(r Record) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	return true
}

// InvoiceRow is an invoice joined with its possible counterparties.
// CustomerName and PatientName are nil when the reference is unset or the
// referenced row no longer exists.
type InvoiceRow struct {
	ID               uuid.UUID
	InvoiceNumber    string
	StoreID          uuid.UUID
	CustomerID       *uuid.UUID
	CustomerName     *string
	PatientID        *uuid.UUID
	PatientName      *string
	CounterpartyName string
	Direction        *string
	Total            decimal.Decimal
	Status           string
	PaymentMethod    string
	PaymentDate      *time.Time
}

type MedicalRow struct {
	ID            uuid.UUID
	InvoiceNumber string
	StoreID       uuid.UUID
	PatientID     uuid.UUID
	PatientName   *string
	Total         decimal.Decimal
	PaymentStatus string
	PaymentMethod string
	PaymentDate   *time.Time
}

type SaleRow struct {
	ID            uuid.UUID
	SaleNumber    string
	StoreID       uuid.UUID
	CustomerID    *uuid.UUID
	CustomerName  *string
	Total         decimal.Decimal
	PaymentStatus string
	PaymentMethod string
	CreatedAt     *time.Time
}

// ProcessRequest is the optional POST /api/payments/{id}/process body.
type ProcessRequest struct {
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
}

// Result is the processing envelope returned to the client.
type Result struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	PaymentID     string `json:"payment_id,omitempty"`
	Status        string `json:"status,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
}
