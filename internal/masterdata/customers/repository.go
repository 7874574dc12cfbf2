package customers

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
	List(ctx context.Context, filter ListFilter) ([]Customer, error)
	Get(ctx context.Context, id uuid.UUID) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, id uuid.UUID, c Customer) (Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, first_name, last_name, email, phone, address, store_id, notes, created_at, updated_at`

func scan(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address, &c.StoreID, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	var (
		where []string
		args  []any
	)
	if filter.StoreID != nil {
		args = append(args, *filter.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", n, n, n, n))
	}
	query := `SELECT ` + columns + ` FROM customers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	query += fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Customer, 0)
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Customer, error) {
	c, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE id = $1`, id))
	return c, shared.TranslatePgError(err, "customer")
}

func (r *repository) Create(ctx context.Context, c Customer) (Customer, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO customers
		(first_name, last_name, email, phone, address, store_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+columns,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.StoreID, c.Notes))
	return out, shared.TranslatePgError(err, "customer")
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, c Customer) (Customer, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE customers
		SET first_name = $2, last_name = $3, email = $4, phone = $5, address = $6, store_id = $7, notes = $8, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns,
		id, c.FirstName, c.LastName, c.Email, c.Phone, c.Address, c.StoreID, c.Notes))
	return out, shared.TranslatePgError(err, "customer")
}

// Delete hard-deletes the customer; invoices and sales keep their rows with a
// NULL customer reference.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return shared.TranslatePgError(err, "customer")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
