package accounting

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/shared"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// TransactionType is the direction of a financial event.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// SourceType names the business document behind a posting.
type SourceType string

const (
	SourceInvoice        SourceType = "invoice"
	SourceSale           SourceType = "sale"
	SourceAppointment    SourceType = "appointment"
	SourceMedicalInvoice SourceType = "medical_invoice"
	SourceReorder        SourceType = "reorder"
	SourceBulkReorder    SourceType = "bulk_reorder"
	SourceExpenditure    SourceType = "expenditure"
)

// Account models a chart of accounts node.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

// AccountMapping resolves a (transaction type, source type) pair to the
// accounts debited and credited.
type AccountMapping struct {
	TransactionType   TransactionType `json:"transaction_type"`
	SourceType        SourceType      `json:"source_type"`
	DebitAccountCode  string          `json:"debit_account_code"`
	CreditAccountCode string          `json:"credit_account_code"`
}

// Entry is one side of a posted transaction.
type Entry struct {
	ID             uuid.UUID       `json:"id"`
	TransactionID  uuid.UUID       `json:"transaction_id"`
	AccountID      uuid.UUID       `json:"account_id"`
	AccountCode    string          `json:"account_code,omitempty"`
	AccountName    string          `json:"account_name,omitempty"`
	Debit          decimal.Decimal `json:"debit_amount"`
	Credit         decimal.Decimal `json:"credit_amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	Description    string          `json:"description"`
	FiscalYear     int             `json:"fiscal_year"`
	FiscalPeriod   int             `json:"fiscal_period"`
	ReferenceType  string          `json:"reference_type"`
	ReferenceID    *uuid.UUID      `json:"reference_id,omitempty"`
	EntryDate      time.Time       `json:"entry_date"`
	CreatedBy      *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PostingRequest describes a financial event to record.
type PostingRequest struct {
	TransactionType TransactionType `json:"transaction_type" validate:"required,oneof=income expense"`
	SourceType      SourceType      `json:"source_type" validate:"required"`
	Amount          decimal.Decimal `json:"amount"`
	ReferenceID     uuid.UUID       `json:"reference_id"`
	Description     string          `json:"description"`
	Date            time.Time       `json:"date"`
}

// Posting is the result of a successful PostingRequest.
type Posting struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Entries       []Entry   `json:"entries"`
}

// PostingLine describes a debit or credit on one account.
type PostingLine struct {
	AccountID uuid.UUID
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// PostingInput groups the lines written under one transaction id.
type PostingInput struct {
	TransactionID uuid.UUID
	Date          time.Time
	Description   string
	ReferenceType string
	ReferenceID   *uuid.UUID
	CreatedBy     *uuid.UUID
	Lines         []PostingLine
}

// EntryFilter narrows ListEntries.
type EntryFilter struct {
	TransactionID *uuid.UUID
	ReferenceID   *uuid.UUID
	AccountCode   string
	Limit         int
	Offset        int
}

// Imbalance reports a transaction whose debits and credits differ.
type Imbalance struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = fmt.Errorf("accounting: journal lines must balance: %w", shared.ErrValidation)
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = fmt.Errorf("accounting: journal requires at least two lines: %w", shared.ErrValidation)
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = fmt.Errorf("accounting: account mapping not found: %w", shared.ErrValidation)
	// ErrAccountNotFound indicates an unknown account code.
	ErrAccountNotFound = fmt.Errorf("accounting: account %w", shared.ErrNotFound)
	// ErrAlreadyPosted indicates the reference was posted before.
	ErrAlreadyPosted = fmt.Errorf("accounting: reference already posted: %w", shared.ErrConflict)
	// ErrInvalidAmount indicates a non-positive posting amount.
	ErrInvalidAmount = fmt.Errorf("accounting: amount must be positive: %w", shared.ErrValidation)
)

// Validate ensures posting input meets minimum criteria.
func (in PostingInput) Validate() error {
	if in.TransactionID == uuid.Nil {
		return errors.New("accounting: transaction id required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	debit, credit := decimal.Zero, decimal.Zero
	for idx, line := range in.Lines {
		if line.AccountID == uuid.Nil {
			return shared.Validationf("accounting: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return shared.Validationf("accounting: line %d negative amount", idx)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return shared.Validationf("accounting: line %d cannot be both debit and credit", idx)
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if !debit.Round(2).Equal(credit.Round(2)) {
		return ErrUnbalanced
	}
	return nil
}
