package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/billing"
	"github.com/opticlinic/opticlinic/internal/clinic/appointments"
	"github.com/opticlinic/opticlinic/internal/platform/cache"
	"github.com/opticlinic/opticlinic/internal/platform/db"
)

// ErrUnknownPaymentType is reported for ids with an unknown prefix or a
// malformed source id.
var ErrUnknownPaymentType = errors.New("unknown payment type")

// Billing is the slice of billing.Service the processor drives.
type Billing interface {
	MarkInvoicePayment(ctx context.Context, id uuid.UUID, status billing.InvoiceStatus, method string) (billing.Invoice, bool, error)
	MarkMedicalInvoicePayment(ctx context.Context, id uuid.UUID, status billing.MedicalPaymentStatus, method string) (billing.MedicalInvoice, bool, error)
	CreateMedicalInvoice(ctx context.Context, req billing.MedicalInvoiceRequest) (billing.MedicalInvoice, error)
}

// Appointments marks appointment fees paid.
type Appointments interface {
	MarkPaid(ctx context.Context, id uuid.UUID, method string) (appointments.PaymentOutcome, error)
}

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(context.Context) error) error
}

// Recorder counts processing outcomes.
type Recorder interface {
	PaymentProcessed(prefix, outcome string)
}

// Processor applies a status transition to whichever document a payment id
// names.
type Processor struct {
	billing      Billing
	appointments Appointments
	tx           TxRunner
	cache        cache.Invalidator
	metrics      Recorder
	taxRate      decimal.Decimal
	logger       *slog.Logger
	now          func() time.Time
}

// NewProcessor builds a Processor. appointmentTaxRate is a percentage.
func NewProcessor(b Billing, appts Appointments, tx TxRunner, appointmentTaxRate decimal.Decimal, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{billing: b, appointments: appts, tx: tx, taxRate: appointmentTaxRate, logger: logger, now: time.Now}
}

func (p *Processor) WithNow(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// WithCache bumps the payment listing cache after appointment payments.
func (p *Processor) WithCache(c cache.Invalidator) {
	p.cache = c
}

func (p *Processor) WithMetrics(m Recorder) {
	p.metrics = m
}

// ParseID splits "<prefix>-<uuid>". The uuid itself contains dashes, so only
// the first one separates the prefix.
func ParseID(paymentID string) (string, uuid.UUID, error) {
	prefix, raw, ok := strings.Cut(strings.TrimSpace(paymentID), "-")
	if !ok {
		return "", uuid.Nil, ErrUnknownPaymentType
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, ErrUnknownPaymentType
	}
	return strings.ToLower(prefix), id, nil
}

// Process settles the document behind paymentID. An unknown prefix yields
// an unsuccessful Result and a nil error.
func (p *Processor) Process(ctx context.Context, paymentID string, req ProcessRequest) (Result, error) {
	prefix, _, _ := ParseID(paymentID)
	res, err := p.process(ctx, paymentID, req)
	if p.metrics != nil {
		outcome := "ok"
		switch {
		case err != nil:
			outcome = "error"
		case !res.Success:
			outcome = "rejected"
		}
		p.metrics.PaymentProcessed(prefix, outcome)
	}
	return res, err
}

func (p *Processor) process(ctx context.Context, paymentID string, req ProcessRequest) (Result, error) {
	prefix, id, err := ParseID(paymentID)
	if err != nil {
		return unknownType(paymentID), nil
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))

	switch prefix {
	case PrefixInvoice:
		inv, first, err := p.billing.MarkInvoicePayment(ctx, id, billing.InvoiceStatus(req.Status), method)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Success:       true,
			Message:       settledMessage("invoice", string(inv.Status), first),
			PaymentID:     paymentID,
			Status:        string(inv.Status),
			InvoiceNumber: inv.InvoiceNumber,
		}, nil
	case PrefixMedical:
		m, first, err := p.billing.MarkMedicalInvoicePayment(ctx, id, billing.MedicalPaymentStatus(req.Status), method)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Success:       true,
			Message:       settledMessage("medical invoice", string(m.PaymentStatus), first),
			PaymentID:     paymentID,
			Status:        string(m.PaymentStatus),
			InvoiceNumber: m.InvoiceNumber,
		}, nil
	case PrefixAppointment:
		return p.processAppointment(ctx, paymentID, id, method)
	default:
		return unknownType(paymentID), nil
	}
}

// processAppointment marks the fee paid and, on the first payment only,
// writes the INV-APT medical invoice in the same transaction.
func (p *Processor) processAppointment(ctx context.Context, paymentID string, id uuid.UUID, method string) (Result, error) {
	var (
		outcome appointments.PaymentOutcome
		invoice billing.MedicalInvoice
	)
	err := p.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		outcome, err = p.appointments.MarkPaid(ctx, id, method)
		if err != nil {
			return err
		}
		if !outcome.FirstPaid {
			return nil
		}
		appt := outcome.Appointment
		apptID := appt.ID
		invoice, err = p.billing.CreateMedicalInvoice(ctx, billing.MedicalInvoiceRequest{
			InvoiceNumber: billing.AppointmentInvoiceNumber(p.now()),
			PatientID:     appt.PatientID,
			StoreID:       appt.StoreID,
			AppointmentID: &apptID,
			Subtotal:      appt.Fee,
			TaxRate:       p.taxRate,
			PaymentStatus: billing.MedicalPaid,
			PaymentMethod: method,
			Notes:         "Appointment " + appt.AppointmentNumber,
		})
		if err != nil {
			return fmt.Errorf("appointment invoice: %w", err)
		}
		if p.cache != nil {
			db.OnCommit(ctx, func() {
				_ = p.cache.Bump(context.WithoutCancel(ctx))
			})
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	status := string(outcome.Appointment.PaymentStatus)
	if !outcome.FirstPaid {
		return Result{Success: true, Message: "appointment already paid", PaymentID: paymentID, Status: status}, nil
	}
	p.logger.InfoContext(ctx, "appointment paid",
		slog.String("appointment_id", id.String()),
		slog.String("invoice_number", invoice.InvoiceNumber))
	return Result{
		Success:       true,
		Message:       "appointment payment recorded",
		PaymentID:     paymentID,
		Status:        status,
		InvoiceNumber: invoice.InvoiceNumber,
	}, nil
}

func settledMessage(kind, status string, first bool) string {
	if first {
		return kind + " payment recorded"
	}
	return kind + " status set to " + status
}

func unknownType(paymentID string) Result {
	return Result{Success: false, Message: ErrUnknownPaymentType.Error(), PaymentID: paymentID}
}
