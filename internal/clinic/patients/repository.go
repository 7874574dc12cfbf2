package patients

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
	List(ctx context.Context, filter ListFilter) ([]Patient, error)
	Get(ctx context.Context, id uuid.UUID) (Patient, error)
	Create(ctx context.Context, p Patient) (Patient, error)
	Update(ctx context.Context, id uuid.UUID, p Patient) (Patient, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, patient_code, first_name, last_name, email, phone, date_of_birth, gender, address,
	insurance_provider, insurance_number, store_id, created_at, updated_at`

func scan(row pgx.Row) (Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientCode, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.DateOfBirth,
		&p.Gender, &p.Address, &p.InsuranceProvider, &p.InsuranceNumber, &p.StoreID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Patient, error) {
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
		where = append(where, fmt.Sprintf("(patient_code ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d OR phone ILIKE $%d)", n, n, n, n))
	}
	query := `SELECT ` + columns + ` FROM patients`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Patient, 0)
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Patient, error) {
	p, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+columns+` FROM patients WHERE id = $1`, id))
	return p, shared.TranslatePgError(err, "patient")
}

func (r *repository) Create(ctx context.Context, p Patient) (Patient, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO patients
		(patient_code, first_name, last_name, email, phone, date_of_birth, gender, address,
		 insurance_provider, insurance_number, store_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING `+columns,
		p.PatientCode, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.Gender, p.Address,
		p.InsuranceProvider, p.InsuranceNumber, p.StoreID))
	return out, shared.TranslatePgError(err, "patient")
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, p Patient) (Patient, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE patients
		SET first_name = $2, last_name = $3, email = $4, phone = $5, date_of_birth = $6, gender = $7,
		    address = $8, insurance_provider = $9, insurance_number = $10, store_id = $11, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns,
		id, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.Gender, p.Address,
		p.InsuranceProvider, p.InsuranceNumber, p.StoreID))
	return out, shared.TranslatePgError(err, "patient")
}
