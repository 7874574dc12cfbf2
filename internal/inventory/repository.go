package inventory

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// Repository persists store inventory in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations that must share one transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID uuid.UUID) (ProductRef, error)
	UpdateProductCost(ctx context.Context, productID uuid.UUID, cost decimal.Decimal, supplier string) error
	GetBalanceForUpdate(ctx context.Context, storeID, productID uuid.UUID) (Balance, error)
	UpsertBalance(ctx context.Context, balance Balance) (Balance, error)
}

// WithTx runs fn in a repeatable-read transaction, joining one already in ctx.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		return fn(ctx, r)
	})
}

func (r *Repository) GetProductForUpdate(ctx context.Context, productID uuid.UUID) (ProductRef, error) {
	var p ProductRef
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT id, sku, name, cost_price, supplier_name, is_active
		FROM products WHERE id = $1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.SKU, &p.Name, &p.CostPrice, &p.SupplierName, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductRef{}, ErrProductNotFound
	}
	return p, err
}

func (r *Repository) UpdateProductCost(ctx context.Context, productID uuid.UUID, cost decimal.Decimal, supplier string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE products
		SET cost_price = $2, supplier_name = COALESCE(NULLIF($3, ''), supplier_name), updated_at = NOW()
		WHERE id = $1`, productID, cost, supplier)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

const balanceColumns = `store_id, product_id, quantity, min_stock, last_restocked_at, updated_at`

func scanBalance(row pgx.Row) (Balance, error) {
	var b Balance
	err := row.Scan(&b.StoreID, &b.ProductID, &b.Quantity, &b.MinStock, &b.LastRestockedAt, &b.UpdatedAt)
	return b, err
}

func (r *Repository) GetBalanceForUpdate(ctx context.Context, storeID, productID uuid.UUID) (Balance, error) {
	b, err := scanBalance(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+balanceColumns+`
		FROM store_inventory WHERE store_id = $1 AND product_id = $2 FOR UPDATE`, storeID, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, ErrBalanceNotFound
	}
	return b, err
}

func (r *Repository) UpsertBalance(ctx context.Context, b Balance) (Balance, error) {
	out, err := scanBalance(db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO store_inventory
		(store_id, product_id, quantity, min_stock, last_restocked_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (store_id, product_id) DO UPDATE
		SET quantity = EXCLUDED.quantity, min_stock = EXCLUDED.min_stock,
			last_restocked_at = EXCLUDED.last_restocked_at, updated_at = NOW()
		RETURNING `+balanceColumns, b.StoreID, b.ProductID, b.Quantity, b.MinStock, b.LastRestockedAt))
	if err != nil {
		return Balance{}, shared.TranslatePgError(err, "store inventory")
	}
	return out, nil
}

// ListStock returns balances joined with product data, most urgent first when
// only low rows are requested.
func (r *Repository) ListStock(ctx context.Context, filter StockFilter) ([]StockLevel, error) {
	var (
		where []string
		args  []any
	)
	if filter.StoreID != nil {
		args = append(args, *filter.StoreID)
		where = append(where, "si.store_id = $"+strconv.Itoa(len(args)))
	}
	order := "p.name, si.store_id"
	if filter.LowOnly {
		where = append(where, "p.is_active", "si.quantity <= GREATEST(si.min_stock, p.reorder_level)")
		order = "(GREATEST(si.min_stock, p.reorder_level) - si.quantity) DESC, p.name"
	}
	sql := `SELECT si.store_id, si.product_id, si.quantity, si.min_stock, si.last_restocked_at, si.updated_at,
		p.sku, p.name, p.price, p.cost_price, p.supplier_name, p.reorder_level
		FROM store_inventory si JOIN products p ON p.id = si.product_id`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	sql += " ORDER BY " + order + " LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]StockLevel, 0)
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.StoreID, &l.ProductID, &l.Quantity, &l.MinStock, &l.LastRestockedAt, &l.UpdatedAt,
			&l.SKU, &l.ProductName, &l.Price, &l.CostPrice, &l.SupplierName, &l.ReorderLevel); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
