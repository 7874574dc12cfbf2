package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// CounterpartyKind says which table a bare reference id belongs to.
type CounterpartyKind string

const (
	CounterpartyNone     CounterpartyKind = ""
	CounterpartyCustomer CounterpartyKind = "customer"
	CounterpartyPatient  CounterpartyKind = "patient"
)

// RepositoryPort is the persistence contract used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
	ResolveCounterparty(ctx context.Context, id uuid.UUID) (CounterpartyKind, error)

	InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
	SaveInvoicePayment(ctx context.Context, inv Invoice) (Invoice, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)

	InsertMedicalInvoice(ctx context.Context, m MedicalInvoice) (MedicalInvoice, error)
	GetMedicalInvoice(ctx context.Context, id uuid.UUID) (MedicalInvoice, error)
	GetMedicalInvoiceForUpdate(ctx context.Context, id uuid.UUID) (MedicalInvoice, error)
	ListMedicalInvoices(ctx context.Context, filter MedicalInvoiceFilter) ([]MedicalInvoice, error)
	SaveMedicalPayment(ctx context.Context, m MedicalInvoice) (MedicalInvoice, error)

	ListLegacyInvoices(ctx context.Context, after uuid.UUID, limit int) ([]LegacyInvoice, error)
	ApplyLegacyFix(ctx context.Context, fix LegacyFix) error
}

// Repository persists invoices and medical invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

func (r *Repository) ResolveCounterparty(ctx context.Context, id uuid.UUID) (CounterpartyKind, error) {
	var kind string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT CASE
			WHEN EXISTS (SELECT 1 FROM customers WHERE id = $1) THEN 'customer'
			WHEN EXISTS (SELECT 1 FROM patients WHERE id = $1) THEN 'patient'
			ELSE '' END`, id).Scan(&kind)
	if err != nil {
		return CounterpartyNone, err
	}
	return CounterpartyKind(kind), nil
}

const invoiceColumns = `id, invoice_number, customer_id, patient_id, store_id, counterparty_name, source, direction,
	category, subtotal, tax_rate, tax_amount, discount_amount, total, status, payment_method, payment_date,
	due_date, notes, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.PatientID, &inv.StoreID,
		&inv.CounterpartyName, &inv.Source, &inv.Direction, &inv.Category, &inv.Subtotal, &inv.TaxRate,
		&inv.TaxAmount, &inv.DiscountAmount, &inv.Total, &inv.Status, &inv.PaymentMethod, &inv.PaymentDate,
		&inv.DueDate, &inv.Notes, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	inv.Items = make([]LineItem, 0)
	return inv, err
}

// InsertInvoice writes the header and its lines. Callers wrap it in WithTx.
func (r *Repository) InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	conn := db.Conn(ctx, r.pool)
	out, err := scanInvoice(conn.QueryRow(ctx, `INSERT INTO invoices
		(invoice_number, customer_id, patient_id, store_id, counterparty_name, source, direction, category,
		 subtotal, tax_rate, tax_amount, discount_amount, total, status, payment_method, payment_date,
		 due_date, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING `+invoiceColumns,
		inv.InvoiceNumber, inv.CustomerID, inv.PatientID, inv.StoreID, inv.CounterpartyName, inv.Source,
		inv.Direction, inv.Category, inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.DiscountAmount, inv.Total,
		inv.Status, inv.PaymentMethod, inv.PaymentDate, inv.DueDate, inv.Notes, inv.CreatedBy))
	if err != nil {
		return Invoice{}, shared.TranslatePgError(err, "invoice")
	}
	for _, item := range inv.Items {
		err := conn.QueryRow(ctx, `INSERT INTO invoice_items
			(invoice_id, product_id, product_name, description, quantity, unit_price, discount, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			out.ID, item.ProductID, item.ProductName, item.Description, item.Quantity, item.UnitPrice,
			item.Discount, item.Total).Scan(&item.ID)
		if err != nil {
			return Invoice{}, shared.TranslatePgError(err, "invoice item")
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func (r *Repository) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return r.getInvoice(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

func (r *Repository) GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return r.getInvoice(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
}

func (r *Repository) getInvoice(ctx context.Context, query string, id uuid.UUID) (Invoice, error) {
	inv, err := scanInvoice(db.Conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return Invoice{}, shared.TranslatePgError(err, "invoice")
	}
	items, err := r.loadItems(ctx, []uuid.UUID{inv.ID})
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = append(inv.Items, items[inv.ID]...)
	return inv, nil
}

func (r *Repository) loadItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]LineItem, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT invoice_id, id, product_id, product_name, description,
			quantity, unit_price, discount, total
		FROM invoice_items WHERE invoice_id = ANY($1) ORDER BY invoice_id, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID][]LineItem, len(ids))
	for rows.Next() {
		var (
			invoiceID uuid.UUID
			l         LineItem
		)
		if err := rows.Scan(&invoiceID, &l.ID, &l.ProductID, &l.ProductName, &l.Description, &l.Quantity,
			&l.UnitPrice, &l.Discount, &l.Total); err != nil {
			return nil, err
		}
		out[invoiceID] = append(out[invoiceID], l)
	}
	return out, rows.Err()
}

func (r *Repository) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	var (
		where []string
		args  []any
	)
	if filter.StoreID != nil {
		args = append(args, *filter.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Direction != "" {
		args = append(args, filter.Direction)
		where = append(where, fmt.Sprintf("direction = $%d", len(args)))
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	invoices := make([]Invoice, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		invoices = append(invoices, inv)
		ids = append(ids, inv.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return invoices, nil
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		invoices[i].Items = append(invoices[i].Items, items[invoices[i].ID]...)
	}
	return invoices, nil
}

func (r *Repository) SaveInvoicePayment(ctx context.Context, inv Invoice) (Invoice, error) {
	out, err := scanInvoice(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE invoices
		SET status = $2, payment_method = $3, payment_date = $4, updated_at = NOW()
		WHERE id = $1 RETURNING `+invoiceColumns, inv.ID, inv.Status, inv.PaymentMethod, inv.PaymentDate))
	if err != nil {
		return Invoice{}, shared.TranslatePgError(err, "invoice")
	}
	out.Items = inv.Items
	return out, nil
}

func (r *Repository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE invoices SET status = 'overdue', updated_at = NOW()
		WHERE status = 'sent' AND due_date IS NOT NULL AND due_date < $1::date`, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const medicalColumns = `id, invoice_number, patient_id, store_id, appointment_id, prescription_id, subtotal, tax_rate,
	tax_amount, discount_amount, total, payment_status, payment_method, payment_date, notes, created_at, updated_at`

func scanMedical(row pgx.Row) (MedicalInvoice, error) {
	var m MedicalInvoice
	err := row.Scan(&m.ID, &m.InvoiceNumber, &m.PatientID, &m.StoreID, &m.AppointmentID, &m.PrescriptionID,
		&m.Subtotal, &m.TaxRate, &m.TaxAmount, &m.DiscountAmount, &m.Total, &m.PaymentStatus, &m.PaymentMethod,
		&m.PaymentDate, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *Repository) InsertMedicalInvoice(ctx context.Context, m MedicalInvoice) (MedicalInvoice, error) {
	out, err := scanMedical(db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO medical_invoices
		(invoice_number, patient_id, store_id, appointment_id, prescription_id, subtotal, tax_rate, tax_amount,
		 discount_amount, total, payment_status, payment_method, payment_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING `+medicalColumns,
		m.InvoiceNumber, m.PatientID, m.StoreID, m.AppointmentID, m.PrescriptionID, m.Subtotal, m.TaxRate,
		m.TaxAmount, m.DiscountAmount, m.Total, m.PaymentStatus, m.PaymentMethod, m.PaymentDate, m.Notes))
	return out, shared.TranslatePgError(err, "medical invoice")
}

func (r *Repository) GetMedicalInvoice(ctx context.Context, id uuid.UUID) (MedicalInvoice, error) {
	m, err := scanMedical(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+medicalColumns+` FROM medical_invoices WHERE id = $1`, id))
	return m, shared.TranslatePgError(err, "medical invoice")
}

func (r *Repository) GetMedicalInvoiceForUpdate(ctx context.Context, id uuid.UUID) (MedicalInvoice, error) {
	m, err := scanMedical(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+medicalColumns+` FROM medical_invoices WHERE id = $1 FOR UPDATE`, id))
	return m, shared.TranslatePgError(err, "medical invoice")
}

func (r *Repository) ListMedicalInvoices(ctx context.Context, filter MedicalInvoiceFilter) ([]MedicalInvoice, error) {
	var (
		where []string
		args  []any
	)
	if filter.StoreID != nil {
		args = append(args, *filter.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		where = append(where, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		where = append(where, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	query := `SELECT ` + medicalColumns + ` FROM medical_invoices`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MedicalInvoice, 0)
	for rows.Next() {
		m, err := scanMedical(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) SaveMedicalPayment(ctx context.Context, m MedicalInvoice) (MedicalInvoice, error) {
	out, err := scanMedical(db.Conn(ctx, r.pool).QueryRow(ctx, `UPDATE medical_invoices
		SET payment_status = $2, payment_method = $3, payment_date = $4, updated_at = NOW()
		WHERE id = $1 RETURNING `+medicalColumns, m.ID, m.PaymentStatus, m.PaymentMethod, m.PaymentDate))
	return out, shared.TranslatePgError(err, "medical invoice")
}

func (r *Repository) ListLegacyInvoices(ctx context.Context, after uuid.UUID, limit int) ([]LegacyInvoice, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT id, source, direction, notes, counterparty_name, patient_id
		FROM invoices
		WHERE (direction IS NULL OR notes LIKE '%PATIENT_ID:%') AND id > $1
		ORDER BY id LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LegacyInvoice, 0)
	for rows.Next() {
		var l LegacyInvoice
		if err := rows.Scan(&l.ID, &l.Source, &l.Direction, &l.Notes, &l.CounterpartyName, &l.PatientID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) ApplyLegacyFix(ctx context.Context, fix LegacyFix) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE invoices
		SET patient_id = COALESCE($2, patient_id), direction = $3, notes = $4, updated_at = NOW()
		WHERE id = $1`, fix.ID, fix.PatientID, fix.Direction, fix.Notes)
	return shared.TranslatePgError(err, "invoice")
}
