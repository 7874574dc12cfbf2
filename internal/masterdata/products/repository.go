package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id uuid.UUID, p Product) (Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (Product, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, sku, name, description, category, brand, price, cost_price, supplier_name, reorder_level, is_active, created_at, updated_at`

func scan(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.Brand,
		&p.Price, &p.CostPrice, &p.SupplierName, &p.ReorderLevel, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(sku ILIKE $%d OR name ILIKE $%d OR brand ILIKE $%d)", len(args), len(args), len(args)))
	}
	query := `SELECT ` + columns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Product, 0)
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	p, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+columns+` FROM products WHERE id = $1`, id))
	return p, shared.TranslatePgError(err, "product")
}

func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO products
		(sku, name, description, category, brand, price, cost_price, supplier_name, reorder_level, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE) RETURNING `+columns,
		p.SKU, p.Name, p.Description, p.Category, p.Brand, p.Price, p.CostPrice, p.SupplierName, p.ReorderLevel))
	return out, shared.TranslatePgError(err, "product")
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, p Product) (Product, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE products
		SET sku = $2, name = $3, description = $4, category = $5, brand = $6, price = $7,
		    cost_price = $8, supplier_name = $9, reorder_level = $10, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns,
		id, p.SKU, p.Name, p.Description, p.Category, p.Brand, p.Price, p.CostPrice, p.SupplierName, p.ReorderLevel))
	return out, shared.TranslatePgError(err, "product")
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (Product, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE products SET is_active = $2, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns, id, active))
	return out, shared.TranslatePgError(err, "product")
}
