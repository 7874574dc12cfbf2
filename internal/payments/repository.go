package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opticlinic/opticlinic/internal/platform/db"
)

// Repository reads the documents the payment ledger is projected from.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListInvoiceRows(ctx context.Context, storeID *uuid.UUID) ([]InvoiceRow, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT i.id, i.invoice_number, i.store_id,
			i.customer_id, NULLIF(TRIM(c.first_name || ' ' || c.last_name), ''),
			i.patient_id, NULLIF(TRIM(p.first_name || ' ' || p.last_name), ''),
			i.counterparty_name, i.direction, i.total, i.status, i.payment_method, i.payment_date
		FROM invoices i
		LEFT JOIN customers c ON c.id = i.customer_id
		LEFT JOIN patients p ON p.id = i.patient_id
		WHERE ($1::uuid IS NULL OR i.store_id = $1)`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]InvoiceRow, 0)
	for rows.Next() {
		var row InvoiceRow
		if err := rows.Scan(&row.ID, &row.InvoiceNumber, &row.StoreID, &row.CustomerID, &row.CustomerName,
			&row.PatientID, &row.PatientName, &row.CounterpartyName, &row.Direction, &row.Total, &row.Status,
			&row.PaymentMethod, &row.PaymentDate); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) ListMedicalRows(ctx context.Context, storeID *uuid.UUID) ([]MedicalRow, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT m.id, m.invoice_number, m.store_id, m.patient_id,
			NULLIF(TRIM(p.first_name || ' ' || p.last_name), ''),
			m.total, m.payment_status, m.payment_method, m.payment_date
		FROM medical_invoices m
		LEFT JOIN patients p ON p.id = m.patient_id
		WHERE ($1::uuid IS NULL OR m.store_id = $1)`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MedicalRow, 0)
	for rows.Next() {
		var row MedicalRow
		if err := rows.Scan(&row.ID, &row.InvoiceNumber, &row.StoreID, &row.PatientID, &row.PatientName,
			&row.Total, &row.PaymentStatus, &row.PaymentMethod, &row.PaymentDate); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) ListSaleRows(ctx context.Context, storeID *uuid.UUID) ([]SaleRow, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT s.id, s.sale_number, s.store_id, s.customer_id,
			NULLIF(TRIM(c.first_name || ' ' || c.last_name), ''),
			s.total, s.payment_status, s.payment_method, s.created_at
		FROM sales s
		LEFT JOIN customers c ON c.id = s.customer_id
		WHERE ($1::uuid IS NULL OR s.store_id = $1)`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]SaleRow, 0)
	for rows.Next() {
		var row SaleRow
		if err := rows.Scan(&row.ID, &row.SaleNumber, &row.StoreID, &row.CustomerID, &row.CustomerName,
			&row.Total, &row.PaymentStatus, &row.PaymentMethod, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
