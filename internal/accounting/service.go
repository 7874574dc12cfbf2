package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/shared"
)

// ledgerNamespace seeds deterministic transaction ids for referenced postings.
var ledgerNamespace = uuid.MustParse("0b8a4c1e-7d2f-4a39-9c55-3f1e6d2b8a70")

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListAccounts(ctx context.Context) ([]Account, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
	AccountTotals(ctx context.Context) ([]AccountBalance, error)
	UnbalancedTransactions(ctx context.Context) ([]Imbalance, error)
}

// Service coordinates double-entry postings.
type Service struct {
	repo  RepositoryPort
	audit shared.AuditPort
	now   func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit shared.AuditPort) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// TransactionIDFor derives the transaction id used for a referenced posting.
func TransactionIDFor(txType TransactionType, source SourceType, ref uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(ledgerNamespace, []byte(fmt.Sprintf("%s:%s:%s", txType, source, ref)))
}

// Post records one debit and one credit line for the mapped accounts. It joins
// the caller's transaction when ctx carries one.
func (s *Service) Post(ctx context.Context, req PostingRequest) (Posting, error) {
	if req.TransactionType != TransactionIncome && req.TransactionType != TransactionExpense {
		return Posting{}, shared.Validationf("accounting: unknown transaction type %q", req.TransactionType)
	}
	if req.SourceType == "" {
		return Posting{}, shared.Validationf("accounting: source type required")
	}
	amount := shared.Round2(req.Amount)
	if !amount.IsPositive() {
		return Posting{}, ErrInvalidAmount
	}
	date := req.Date
	if date.IsZero() {
		date = s.now()
	}
	date = date.UTC()

	txID := uuid.New()
	var refID *uuid.UUID
	if req.ReferenceID != uuid.Nil {
		txID = TransactionIDFor(req.TransactionType, req.SourceType, req.ReferenceID)
		ref := req.ReferenceID
		refID = &ref
	}
	description := req.Description
	if description == "" {
		description = fmt.Sprintf("%s %s", req.TransactionType, req.SourceType)
	}
	actor := shared.ActorID(ctx)

	var posting Posting
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if refID != nil {
			exists, err := tx.TransactionExists(ctx, txID)
			if err != nil {
				return err
			}
			if exists {
				return ErrAlreadyPosted
			}
		}
		mapping, err := tx.GetMapping(ctx, req.TransactionType, req.SourceType)
		if err != nil {
			return err
		}
		debitAcc, err := tx.GetAccountByCode(ctx, mapping.DebitAccountCode)
		if err != nil {
			return err
		}
		creditAcc, err := tx.GetAccountByCode(ctx, mapping.CreditAccountCode)
		if err != nil {
			return err
		}

		input := PostingInput{
			TransactionID: txID,
			Date:          date,
			Description:   description,
			ReferenceType: string(req.SourceType),
			ReferenceID:   refID,
			CreatedBy:     actor,
			Lines: []PostingLine{
				{AccountID: debitAcc.ID, Debit: amount, Credit: decimal.Zero},
				{AccountID: creditAcc.ID, Debit: decimal.Zero, Credit: amount},
			},
		}
		if err := input.Validate(); err != nil {
			return err
		}
		accounts := map[uuid.UUID]Account{debitAcc.ID: debitAcc, creditAcc.ID: creditAcc}
		period := shared.FiscalPeriodOf(date)

		posting = Posting{TransactionID: txID, Entries: make([]Entry, 0, len(input.Lines))}
		for _, line := range input.Lines {
			running, err := tx.ApplyToBalance(ctx, line.AccountID, line.Debit, line.Credit)
			if err != nil {
				return err
			}
			entry, err := tx.InsertEntry(ctx, Entry{
				TransactionID:  txID,
				AccountID:      line.AccountID,
				AccountCode:    accounts[line.AccountID].Code,
				AccountName:    accounts[line.AccountID].Name,
				Debit:          line.Debit,
				Credit:         line.Credit,
				RunningBalance: running,
				Description:    description,
				FiscalYear:     period.Year,
				FiscalPeriod:   period.Period,
				ReferenceType:  input.ReferenceType,
				ReferenceID:    refID,
				EntryDate:      date,
				CreatedBy:      actor,
			})
			if err != nil {
				return err
			}
			posting.Entries = append(posting.Entries, entry)
		}
		return s.audit.Record(ctx, shared.AuditLog{
			Action:   "ledger.post",
			Entity:   "accounting_transaction",
			EntityID: txID.String(),
			Meta: map[string]any{
				"transaction_type": req.TransactionType,
				"source_type":      req.SourceType,
				"amount":           amount.StringFixed(2),
			},
		})
	})
	if err != nil {
		return Posting{}, err
	}
	return posting, nil
}

// ListAccounts returns the chart of accounts.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

// ListEntries returns ledger lines.
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	return s.repo.ListEntries(ctx, filter)
}

// TrialBalance summarises postings per account.
func (s *Service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	totals, err := s.repo.AccountTotals(ctx)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(totals), nil
}

// CheckIntegrity lists transactions whose debits and credits differ.
func (s *Service) CheckIntegrity(ctx context.Context) ([]Imbalance, error) {
	return s.repo.UnbalancedTransactions(ctx)
}
