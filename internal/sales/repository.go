package sales

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new sales repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository defines the operations a sale performs inside its transaction.
type TxRepository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	DecrementStock(ctx context.Context, storeID, productID uuid.UUID, qty int) error
	InsertSale(ctx context.Context, sale Sale) (Sale, error)
}

// WithTx runs fn inside a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		return fn(ctx, r)
	})
}

func (r *Repository) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT id, name, price, is_active FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

// DecrementStock lowers on-hand quantity only when enough stock remains, so
// concurrent sales can never drive a balance negative.
func (r *Repository) DecrementStock(ctx context.Context, storeID, productID uuid.UUID, qty int) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE store_inventory
		SET quantity = quantity - $3, updated_at = NOW()
		WHERE store_id = $1 AND product_id = $2 AND quantity >= $3`, storeID, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

const saleColumns = `id, sale_number, store_id, customer_id, staff_id, subtotal, tax_rate, tax_amount, total,
	payment_method, payment_status, notes, created_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.SaleNumber, &s.StoreID, &s.CustomerID, &s.StaffID, &s.Subtotal, &s.TaxRate,
		&s.TaxAmount, &s.Total, &s.PaymentMethod, &s.PaymentStatus, &s.Notes, &s.CreatedAt)
	return s, err
}

func (r *Repository) InsertSale(ctx context.Context, s Sale) (Sale, error) {
	conn := db.Conn(ctx, r.pool)
	out, err := scanSale(conn.QueryRow(ctx, `INSERT INTO sales
		(sale_number, store_id, customer_id, staff_id, subtotal, tax_rate, tax_amount, total, payment_method, payment_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+saleColumns,
		s.SaleNumber, s.StoreID, s.CustomerID, s.StaffID, s.Subtotal, s.TaxRate, s.TaxAmount, s.Total,
		s.PaymentMethod, s.PaymentStatus, s.Notes))
	if err != nil {
		return Sale{}, shared.TranslatePgError(err, "sale")
	}
	out.Items = make([]Item, 0, len(s.Items))
	for _, item := range s.Items {
		err := conn.QueryRow(ctx, `INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			out.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Total).Scan(&item.ID)
		if err != nil {
			return Sale{}, shared.TranslatePgError(err, "sale item")
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (r *Repository) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	s, err := scanSale(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrSaleNotFound
	}
	if err != nil {
		return Sale{}, err
	}
	items, err := r.loadItems(ctx, []uuid.UUID{s.ID})
	if err != nil {
		return Sale{}, err
	}
	s.Items = items[s.ID]
	return s, nil
}

func (r *Repository) ListSales(ctx context.Context, filter Filter) ([]Sale, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}
	if filter.StoreID != nil {
		add("store_id = ?", *filter.StoreID)
	}
	if filter.CustomerID != nil {
		add("customer_id = ?", *filter.CustomerID)
	}
	if filter.From != nil {
		add("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		add("created_at < ?", *filter.To)
	}
	sql := `SELECT ` + saleColumns + ` FROM sales`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	sql += " ORDER BY created_at DESC, id LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out := make([]Sale, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, s)
		ids = append(ids, s.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repository) loadItems(ctx context.Context, saleIDs []uuid.UUID) (map[uuid.UUID][]Item, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT sale_id, id, product_id, product_name, quantity, unit_price, total
		FROM sale_items WHERE sale_id = ANY($1) ORDER BY id`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]Item, len(saleIDs))
	for rows.Next() {
		var (
			saleID uuid.UUID
			item   Item
		)
		if err := rows.Scan(&saleID, &item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Total); err != nil {
			return nil, err
		}
		out[saleID] = append(out[saleID], item)
	}
	return out, rows.Err()
}
