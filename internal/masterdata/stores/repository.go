package stores

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/shared"
)

type Repository interface {
	List(ctx context.Context, page shared.Page) ([]Store, error)
	Get(ctx context.Context, id uuid.UUID) (Store, error)
	Create(ctx context.Context, store Store) (Store, error)
	Update(ctx context.Context, id uuid.UUID, store Store) (Store, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, name, address, phone, email, is_active, created_at, updated_at`

func scan(row pgx.Row) (Store, error) {
	var s Store
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Phone, &s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, page shared.Page) ([]Store, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+columns+` FROM stores ORDER BY name LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Store, 0)
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Store, error) {
	s, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+columns+` FROM stores WHERE id = $1`, id))
	if err != nil {
		return Store{}, shared.TranslatePgError(err, "store")
	}
	return s, nil
}

func (r *repository) Create(ctx context.Context, s Store) (Store, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO stores (name, address, phone, email, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+columns, s.Name, s.Address, s.Phone, s.Email, s.IsActive))
	return out, shared.TranslatePgError(err, "store")
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, s Store) (Store, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE stores
		SET name = $2, address = $3, phone = $4, email = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns, id, s.Name, s.Address, s.Phone, s.Email, s.IsActive))
	return out, shared.TranslatePgError(err, "store")
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return shared.TranslatePgError(err, "store")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
