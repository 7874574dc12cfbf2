package staff

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
	List(ctx context.Context, filter ListFilter) ([]Staff, error)
	Get(ctx context.Context, id uuid.UUID) (Staff, error)
	Create(ctx context.Context, s Staff) (Staff, error)
	Update(ctx context.Context, id uuid.UUID, s Staff) (Staff, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (Staff, error)
	// FirstActiveClinician returns the longest-serving active doctor or
	// optometrist, restricted to storeID when it is non-nil.
	FirstActiveClinician(ctx context.Context, storeID *uuid.UUID) (Staff, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, staff_code, first_name, last_name, email, phone, position, role, store_id, is_active, created_at, updated_at`

func scan(row pgx.Row) (Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.StaffCode, &s.FirstName, &s.LastName, &s.Email, &s.Phone,
		&s.Position, &s.Role, &s.StoreID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Staff, error) {
	var (
		where []string
		args  []any
	)
	if filter.StoreID != nil {
		args = append(args, *filter.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}
	query := `SELECT ` + columns + ` FROM staff`
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
	out := make([]Staff, 0)
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Staff, error) {
	s, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+columns+` FROM staff WHERE id = $1`, id))
	return s, shared.TranslatePgError(err, "staff member")
}

func (r *repository) Create(ctx context.Context, s Staff) (Staff, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO staff
		(staff_code, first_name, last_name, email, phone, position, role, store_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+columns,
		s.StaffCode, s.FirstName, s.LastName, s.Email, s.Phone, s.Position, s.Role, s.StoreID, s.IsActive))
	return out, shared.TranslatePgError(err, "staff member")
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, s Staff) (Staff, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE staff
		SET staff_code = $2, first_name = $3, last_name = $4, email = $5, phone = $6, position = $7,
		    role = $8, store_id = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns,
		id, s.StaffCode, s.FirstName, s.LastName, s.Email, s.Phone, s.Position, s.Role, s.StoreID, s.IsActive))
	return out, shared.TranslatePgError(err, "staff member")
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (Staff, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE staff SET is_active = $2, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns, id, active))
	return out, shared.TranslatePgError(err, "staff member")
}

func (r *repository) FirstActiveClinician(ctx context.Context, storeID *uuid.UUID) (Staff, error) {
	s, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+columns+` FROM staff
		WHERE is_active AND role IN ('doctor', 'optometrist')
		  AND ($1::uuid IS NULL OR store_id = $1)
		ORDER BY created_at, id LIMIT 1`, storeID))
	return s, shared.TranslatePgError(err, "staff member")
}
