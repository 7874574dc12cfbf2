package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/accounting"
	"github.com/opticlinic/opticlinic/internal/platform/cache"
	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// Ledger posts balanced entries for a financial event.
type Ledger interface {
	Post(ctx context.Context, req accounting.PostingRequest) (accounting.Posting, error)
}

// Service owns invoices, expenditures and medical invoices. Every write
// that changes money posts to the ledger in the same transaction and bumps
// the payments cache after commit.
type Service struct {
	repo           RepositoryPort
	ledger         Ledger
	audit          shared.AuditPort
	cache          cache.Invalidator
	defaultTaxRate decimal.Decimal
	now            func() time.Time
}

func NewService(repo RepositoryPort, ledger Ledger, audit shared.AuditPort) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, ledger: ledger, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithCache registers the cache bumped after every committed write.
func (s *Service) WithCache(c cache.Invalidator) {
	s.cache = c
}

// WithDefaultTaxRate sets the rate used when an invoice omits tax_rate.
func (s *Service) WithDefaultTaxRate(rate decimal.Decimal) {
	s.defaultTaxRate = rate
}

// CreateInvoice prices the items, resolves the counterparty and stores the
// invoice. Cash invoices are paid at creation and posted as income.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (Invoice, error) {
	if req.StoreID == uuid.Nil {
		return Invoice{}, shared.Validationf("%s", errStoreRequired)
	}
	lines, err := BuildLines(req.Items)
	if err != nil {
		return Invoice{}, err
	}
	rate := s.defaultTaxRate
	if req.TaxRate != nil {
		rate = *req.TaxRate
	}
	totals, err := ComputeTotals(lines, rate, req.DiscountAmount)
	if err != nil {
		return Invoice{}, err
	}

	now := s.now().UTC()
	direction := DirectionIncome
	inv := Invoice{
		InvoiceNumber:  NewNumber(prefixInvoice, now),
		StoreID:        req.StoreID,
		Source:         SourceRegular,
		Direction:      &direction,
		Subtotal:       totals.Subtotal,
		TaxRate:        totals.TaxRate,
		TaxAmount:      totals.TaxAmount,
		DiscountAmount: totals.DiscountAmount,
		Total:          totals.Total,
		Status:         StatusDraft,
		PaymentMethod:  normaliseMethod(req.PaymentMethod),
		DueDate:        req.DueDate,
		Notes:          req.Notes,
		CreatedBy:      shared.ActorID(ctx),
		Items:          lines,
	}
	if inv.PaymentMethod == PaymentMethodCash {
		inv.Status = StatusPaid
		inv.PaymentDate = &now
	}

	var created Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.resolveCounterparty(ctx, &inv, req); err != nil {
			return err
		}
		var err error
		created, err = s.repo.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		if created.Status == StatusPaid {
			return s.postInvoice(ctx, created)
		}
		return nil
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	s.record(ctx, "invoice.create", "invoice", created.ID, map[string]any{"number": created.InvoiceNumber, "total": created.Total.String()})
	s.invalidate(ctx)
	return created, nil
}

// resolveCounterparty applies the reference rules: an explicit patient_id is
// used as is; customer_id is matched against customers, then patients, and
// falls back to a guest invoice.
func (s *Service) resolveCounterparty(ctx context.Context, inv *Invoice, req CreateInvoiceRequest) error {
	if req.PatientID != nil {
		id := *req.PatientID
		inv.PatientID = &id
	}
	if req.CustomerID == nil {
		return nil
	}
	kind, err := s.repo.ResolveCounterparty(ctx, *req.CustomerID)
	if err != nil {
		return err
	}
	id := *req.CustomerID
	switch kind {
	case CounterpartyCustomer:
		inv.CustomerID = &id
	case CounterpartyPatient:
		if inv.PatientID == nil {
			inv.PatientID = &id
		}
	}
	return nil
}

// CreateExpenditure stores outgoing money as a paid EXP- invoice and posts
// the matching expense.
func (s *Service) CreateExpenditure(ctx context.Context, in ExpenditureInvoice) (Invoice, error) {
	if !in.Source.Expenditure() {
		return Invoice{}, shared.Validationf("source %q is not an expenditure source", in.Source)
	}
	if in.StoreID == uuid.Nil {
		return Invoice{}, shared.Validationf("%s", errStoreRequired)
	}
	lines, err := BuildLines(in.Items)
	if err != nil {
		return Invoice{}, err
	}
	totals, err := ComputeTotals(lines, decimal.Zero, decimal.Zero)
	if err != nil {
		return Invoice{}, err
	}
	method := normaliseMethod(in.PaymentMethod)
	if method == "" {
		method = PaymentMethodCash
	}
	now := s.now().UTC()
	direction := DirectionExpenditure
	inv := Invoice{
		InvoiceNumber:    NewNumber(prefixExpenditure, now),
		StoreID:          in.StoreID,
		CounterpartyName: strings.TrimSpace(in.Supplier),
		Source:           in.Source,
		Direction:        &direction,
		Category:         in.Category,
		Subtotal:         totals.Subtotal,
		TaxRate:          totals.TaxRate,
		TaxAmount:        totals.TaxAmount,
		DiscountAmount:   totals.DiscountAmount,
		Total:            totals.Total,
		Status:           StatusPaid,
		PaymentMethod:    method,
		PaymentDate:      &now,
		Notes:            in.Notes,
		CreatedBy:        shared.ActorID(ctx),
		Items:            lines,
	}

	var created Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.repo.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		return s.postInvoice(ctx, created)
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("create expenditure: %w", err)
	}
	s.record(ctx, "expenditure.create", "invoice", created.ID, map[string]any{"source": created.Source, "total": created.Total.String()})
	s.invalidate(ctx)
	return created, nil
}

// RecordExpenditure handles POST /api/expenditures.
func (s *Service) RecordExpenditure(ctx context.Context, req ExpenditureRequest) (Invoice, error) {
	if !req.Amount.IsPositive() {
		return Invoice{}, shared.Validationf("amount must be positive")
	}
	return s.CreateExpenditure(ctx, ExpenditureInvoice{
		Source:        SourceExpenditure,
		StoreID:       req.StoreID,
		Supplier:      req.Supplier,
		Category:      req.Category,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Description,
		Items: []ItemInput{{
			ProductName: req.Description,
			Description: req.Category,
			Quantity:    1,
			UnitPrice:   req.Amount,
		}},
	})
}

func (s *Service) ListExpenditures(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	filter.Direction = DirectionExpenditure
	return s.repo.ListInvoices(ctx, filter)
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

// MarkInvoicePayment moves an invoice to status (paid when empty). The
// first transition into paid stamps payment_date and posts the ledger;
// repeating it is a no-op that reports firstPaid=false.
func (s *Service) MarkInvoicePayment(ctx context.Context, id uuid.UUID, status InvoiceStatus, method string) (Invoice, bool, error) {
	if status == "" {
		status = StatusPaid
	}
	if !status.Valid() {
		return Invoice{}, false, ErrInvalidStatus
	}
	method = normaliseMethod(method)

	var (
		saved     Invoice
		firstPaid bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case inv.Status == StatusPaid && status != StatusPaid:
			return ErrAlreadySettled
		case inv.Status == StatusCancelled && status != StatusCancelled:
			return ErrCancelled
		}
		firstPaid = status == StatusPaid && inv.Status != StatusPaid
		if method != "" {
			inv.PaymentMethod = method
		}
		inv.Status = status
		if firstPaid {
			now := s.now().UTC()
			inv.PaymentDate = &now
		}
		saved, err = s.repo.SaveInvoicePayment(ctx, inv)
		if err != nil {
			return err
		}
		if firstPaid {
			return s.postInvoice(ctx, saved)
		}
		return nil
	})
	if err != nil {
		return Invoice{}, false, err
	}
	s.record(ctx, "invoice.payment", "invoice", id, map[string]any{"status": status, "method": method})
	s.invalidate(ctx)
	return saved, firstPaid, nil
}

// MarkOverdue flips sent invoices whose due date has passed to overdue.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	if n > 0 {
		s.invalidate(ctx)
	}
	return n, nil
}

// CreateMedicalInvoice stores a clinic invoice. When payment_status is
// omitted, cash settles it and any other method leaves it pending.
func (s *Service) CreateMedicalInvoice(ctx context.Context, req MedicalInvoiceRequest) (MedicalInvoice, error) {
	if req.PatientID == uuid.Nil || req.StoreID == uuid.Nil {
		return MedicalInvoice{}, shared.Validationf("patient_id and store_id are required")
	}
	if req.Subtotal.IsNegative() {
		return MedicalInvoice{}, shared.Validationf("subtotal must not be negative")
	}
	if req.TaxRate.IsNegative() || req.TaxRate.GreaterThan(hundred) {
		return MedicalInvoice{}, shared.Validationf("tax_rate must be between 0 and 100")
	}
	if req.DiscountAmount.IsNegative() {
		return MedicalInvoice{}, shared.Validationf("discount_amount must not be negative")
	}
	totals, err := computeFromSubtotal(req.Subtotal, req.TaxRate, req.DiscountAmount)
	if err != nil {
		return MedicalInvoice{}, err
	}
	method := normaliseMethod(req.PaymentMethod)
	status := req.PaymentStatus
	if status == "" {
		status = MedicalPending
		if method == PaymentMethodCash {
			status = MedicalPaid
		}
	}
	if !status.Valid() {
		return MedicalInvoice{}, shared.Validationf("unknown payment_status %q", status)
	}
	now := s.now().UTC()
	number := strings.TrimSpace(req.InvoiceNumber)
	if number == "" {
		number = NewNumber(prefixMedical, now)
	}
	m := MedicalInvoice{
		InvoiceNumber:  number,
		PatientID:      req.PatientID,
		StoreID:        req.StoreID,
		AppointmentID:  req.AppointmentID,
		PrescriptionID: req.PrescriptionID,
		Subtotal:       totals.Subtotal,
		TaxRate:        totals.TaxRate,
		TaxAmount:      totals.TaxAmount,
		DiscountAmount: totals.DiscountAmount,
		Total:          totals.Total,
		PaymentStatus:  status,
		PaymentMethod:  method,
		Notes:          req.Notes,
	}
	if status == MedicalPaid {
		m.PaymentDate = &now
	}

	var created MedicalInvoice
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.repo.InsertMedicalInvoice(ctx, m)
		if err != nil {
			return err
		}
		if created.PaymentStatus == MedicalPaid {
			return s.postMedical(ctx, created)
		}
		return nil
	})
	if err != nil {
		return MedicalInvoice{}, fmt.Errorf("create medical invoice: %w", err)
	}
	s.record(ctx, "medical_invoice.create", "medical_invoice", created.ID, map[string]any{"number": created.InvoiceNumber})
	s.invalidate(ctx)
	return created, nil
}

// MarkMedicalInvoicePayment mirrors MarkInvoicePayment for medical invoices.
func (s *Service) MarkMedicalInvoicePayment(ctx context.Context, id uuid.UUID, status MedicalPaymentStatus, method string) (MedicalInvoice, bool, error) {
	if status == "" {
		status = MedicalPaid
	}
	if !status.Valid() {
		return MedicalInvoice{}, false, shared.Validationf("unknown payment_status %q", status)
	}
	method = normaliseMethod(method)

	var (
		saved     MedicalInvoice
		firstPaid bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetMedicalInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case m.PaymentStatus == MedicalPaid && status != MedicalPaid:
			return ErrAlreadySettled
		case m.PaymentStatus == MedicalCancelled && status != MedicalCancelled:
			return ErrCancelled
		}
		firstPaid = status == MedicalPaid && m.PaymentStatus != MedicalPaid
		if method != "" {
			m.PaymentMethod = method
		}
		m.PaymentStatus = status
		if firstPaid {
			now := s.now().UTC()
			m.PaymentDate = &now
		}
		saved, err = s.repo.SaveMedicalPayment(ctx, m)
		if err != nil {
			return err
		}
		if firstPaid {
			return s.postMedical(ctx, saved)
		}
		return nil
	})
	if err != nil {
		return MedicalInvoice{}, false, err
	}
	s.record(ctx, "medical_invoice.payment", "medical_invoice", id, map[string]any{"status": status, "method": method})
	s.invalidate(ctx)
	return saved, firstPaid, nil
}

func (s *Service) GetMedicalInvoice(ctx context.Context, id uuid.UUID) (MedicalInvoice, error) {
	return s.repo.GetMedicalInvoice(ctx, id)
}

func (s *Service) ListMedicalInvoices(ctx context.Context, filter MedicalInvoiceFilter) ([]MedicalInvoice, error) {
	return s.repo.ListMedicalInvoices(ctx, filter)
}

func (s *Service) postInvoice(ctx context.Context, inv Invoice) error {
	tt, st := inv.PostingSource()
	return s.post(ctx, tt, st, inv.Total, inv.ID, "Invoice "+inv.InvoiceNumber)
}

func (s *Service) postMedical(ctx context.Context, m MedicalInvoice) error {
	return s.post(ctx, accounting.TransactionIncome, m.PostingSource(), m.Total, m.ID, "Medical invoice "+m.InvoiceNumber)
}

// post skips zero-value documents; the ledger rejects non-positive amounts.
func (s *Service) post(ctx context.Context, tt accounting.TransactionType, st accounting.SourceType, amount decimal.Decimal, ref uuid.UUID, desc string) error {
	if !amount.IsPositive() || s.ledger == nil {
		return nil
	}
	_, err := s.ledger.Post(ctx, accounting.PostingRequest{
		TransactionType: tt,
		SourceType:      st,
		Amount:          amount,
		ReferenceID:     ref,
		Description:     desc,
		Date:            s.now(),
	})
	if err != nil {
		return fmt.Errorf("post %s/%s: %w", tt, st, err)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	db.OnCommit(ctx, func() {
		_ = s.cache.Bump(context.WithoutCancel(ctx))
	})
}

func (s *Service) record(ctx context.Context, action, entity string, id uuid.UUID, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: entity, EntityID: id.String(), Meta: meta})
}

func normaliseMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
