package appointments

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
	List(ctx context.Context, filter ListFilter) ([]Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (Appointment, error)
	// GetForUpdate locks the row for the surrounding transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (Appointment, error)
	Create(ctx context.Context, a Appointment) (Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Appointment, error)
	SavePayment(ctx context.Context, a Appointment) (Appointment, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = `id, appointment_number, patient_id, store_id, assigned_doctor_id, service, scheduled_at,
	duration_minutes, status, fee, payment_status, payment_method, payment_date, notes, created_at, updated_at`

func scan(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.AppointmentNumber, &a.PatientID, &a.StoreID, &a.AssignedDoctorID, &a.Service,
		&a.ScheduledAt, &a.DurationMinutes, &a.Status, &a.Fee, &a.PaymentStatus, &a.PaymentMethod,
		&a.PaymentDate, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.StoreID != nil {
		add("store_id = $%d", *filter.StoreID)
	}
	if filter.PatientID != nil {
		add("patient_id = $%d", *filter.PatientID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("scheduled_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("scheduled_at < $%d", *filter.To)
	}
	query := `SELECT ` + columns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	query += fmt.Sprintf(` ORDER BY scheduled_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Appointment, 0)
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Appointment, error) {
	a, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+columns+` FROM appointments WHERE id = $1`, id))
	return a, shared.TranslatePgError(err, "appointment")
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (Appointment, error) {
	a, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+columns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
	return a, shared.TranslatePgError(err, "appointment")
}

func (r *repository) Create(ctx context.Context, a Appointment) (Appointment, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO appointments
		(appointment_number, patient_id, store_id, assigned_doctor_id, service, scheduled_at, duration_minutes,
		 status, fee, payment_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING `+columns,
		a.AppointmentNumber, a.PatientID, a.StoreID, a.AssignedDoctorID, a.Service, a.ScheduledAt,
		a.DurationMinutes, a.Status, a.Fee, a.PaymentStatus, a.Notes))
	return out, shared.TranslatePgError(err, "appointment")
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (Appointment, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE appointments SET status = $2, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns, id, status))
	return out, shared.TranslatePgError(err, "appointment")
}

func (r *repository) SavePayment(ctx context.Context, a Appointment) (Appointment, error) {
	out, err := scan(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE appointments
		SET payment_status = $2, payment_method = $3, payment_date = $4, assigned_doctor_id = $5, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns,
		a.ID, a.PaymentStatus, a.PaymentMethod, a.PaymentDate, a.AssignedDoctorID))
	return out, shared.TranslatePgError(err, "appointment")
}
