package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetMapping(ctx context.Context, txType TransactionType, source SourceType) (AccountMapping, error)
	GetAccountByCode(ctx context.Context, code string) (Account, error)
	TransactionExists(ctx context.Context, id uuid.UUID) (bool, error)
	ApplyToBalance(ctx context.Context, accountID uuid.UUID, debit, credit decimal.Decimal) (decimal.Decimal, error)
	InsertEntry(ctx context.Context, entry Entry) (Entry, error)
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		return fn(ctx, r)
	})
}

// GetMapping loads the account pair for a financial event.
func (r *Repository) GetMapping(ctx context.Context, txType TransactionType, source SourceType) (AccountMapping, error) {
	var m AccountMapping
	var tt, st string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT transaction_type, source_type, debit_account_code, credit_account_code
		FROM account_mappings WHERE transaction_type = $1 AND source_type = $2`, string(txType), string(source)).
		Scan(&tt, &st, &m.DebitAccountCode, &m.CreditAccountCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, fmt.Errorf("%w: %s/%s", ErrMappingNotFound, txType, source)
		}
		return AccountMapping{}, err
	}
	m.TransactionType = TransactionType(tt)
	m.SourceType = SourceType(st)
	return m, nil
}

const accountColumns = `id, code, name, type, balance, is_active, created_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var typ string
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &typ, &a.Balance, &a.IsActive, &a.CreatedAt); err != nil {
		return Account{}, err
	}
	a.Type = AccountType(typ)
	return a, nil
}

// GetAccountByCode fetches an active account.
func (r *Repository) GetAccountByCode(ctx context.Context, code string) (Account, error) {
	a, err := scanAccount(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code = $1 AND is_active`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
	}
	return a, err
}

// TransactionExists reports whether entries were written under id.
func (r *Repository) TransactionExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounting_entries WHERE transaction_id = $1)`, id).Scan(&exists)
	return exists, err
}

// ApplyToBalance moves the account balance and returns the new value.
func (r *Repository) ApplyToBalance(ctx context.Context, accountID uuid.UUID, debit, credit decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE accounts SET balance = balance + $2 - $3 WHERE id = $1 RETURNING balance`,
		accountID, debit, credit).Scan(&balance)
	return balance, err
}

// InsertEntry writes one ledger line.
func (r *Repository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO accounting_entries
		(transaction_id, account_id, debit_amount, credit_amount, running_balance, description,
		 fiscal_year, fiscal_period, reference_type, reference_id, entry_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`,
		e.TransactionID, e.AccountID, e.Debit, e.Credit, e.RunningBalance, e.Description,
		e.FiscalYear, e.FiscalPeriod, e.ReferenceType, e.ReferenceID, e.EntryDate, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt)
	return e, err
}

// ListAccounts returns the chart of accounts ordered by code.
func (r *Repository) ListAccounts(ctx context.Context) ([]Account, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListEntries returns ledger lines matching filter, newest first.
func (r *Repository) ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) {
	var conditions []string
	var args []any
	if filter.TransactionID != nil {
		args = append(args, *filter.TransactionID)
		conditions = append(conditions, fmt.Sprintf("e.transaction_id = $%d", len(args)))
	}
	if filter.ReferenceID != nil {
		args = append(args, *filter.ReferenceID)
		conditions = append(conditions, fmt.Sprintf("e.reference_id = $%d", len(args)))
	}
	if filter.AccountCode != "" {
		args = append(args, filter.AccountCode)
		conditions = append(conditions, fmt.Sprintf("a.code = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT e.id, e.transaction_id, e.account_id, a.code, a.name, e.debit_amount, e.credit_amount,
			e.running_balance, e.description, e.fiscal_year, e.fiscal_period, e.reference_type, e.reference_id,
			e.entry_date, e.created_by, e.created_at
		FROM accounting_entries e
		JOIN accounts a ON a.id = e.account_id
		%s
		ORDER BY e.entry_date DESC, e.transaction_id, e.debit_amount DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.AccountCode, &e.AccountName, &e.Debit, &e.Credit,
			&e.RunningBalance, &e.Description, &e.FiscalYear, &e.FiscalPeriod, &e.ReferenceType, &e.ReferenceID,
			&e.EntryDate, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AccountTotals aggregates posted debits and credits per account.
func (r *Repository) AccountTotals(ctx context.Context) ([]AccountBalance, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT a.code, a.name, a.type,
			COALESCE(SUM(e.debit_amount), 0), COALESCE(SUM(e.credit_amount), 0)
		FROM accounts a
		LEFT JOIN accounting_entries e ON e.account_id = a.id
		GROUP BY a.code, a.name, a.type
		ORDER BY a.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]AccountBalance, 0)
	for rows.Next() {
		var b AccountBalance
		var typ string
		if err := rows.Scan(&b.Code, &b.Name, &typ, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		b.Type = AccountType(typ)
		out = append(out, b)
	}
	return out, rows.Err()
}

// UnbalancedTransactions lists transaction ids whose lines do not net to zero.
func (r *Repository) UnbalancedTransactions(ctx context.Context) ([]Imbalance, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT transaction_id, SUM(debit_amount), SUM(credit_amount)
		FROM accounting_entries
		GROUP BY transaction_id
		HAVING SUM(debit_amount) <> SUM(credit_amount)
		ORDER BY transaction_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Imbalance, 0)
	for rows.Next() {
		var im Imbalance
		if err := rows.Scan(&im.TransactionID, &im.Debit, &im.Credit); err != nil {
			return nil, err
		}
		out = append(out, im)
	}
	return out, rows.Err()
}
