package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/shared"
)

const defaultDuration = 30

type Service struct {
	repo   Repository
	policy *DoctorPolicy
	audit  shared.AuditPort
	now    func() time.Time
}

func NewService(repo Repository, policy *DoctorPolicy, audit shared.AuditPort) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, policy: policy, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Appointment, error) {
	if req.Fee.IsNegative() {
		return Appointment{}, shared.Validationf("fee must not be negative")
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = defaultDuration
	}
	a := Appointment{
		AppointmentNumber: NewAppointmentNumber(s.now()),
		PatientID:         req.PatientID,
		StoreID:           req.StoreID,
		AssignedDoctorID:  req.AssignedDoctorID,
		Service:           strings.TrimSpace(req.Service),
		ScheduledAt:       req.ScheduledAt.UTC(),
		DurationMinutes:   duration,
		Status:            StatusScheduled,
		Fee:               shared.Round2(req.Fee),
		PaymentStatus:     PaymentPending,
		Notes:             req.Notes,
	}
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Appointment{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: "appointment.create", Entity: "appointment", EntityID: created.ID.String()})
	return created, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (Appointment, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if current.Status == next {
		return current, nil
	}
	if !current.Status.CanTransition(next) {
		return Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, next)
	}
	updated, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return Appointment{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action: "appointment.status", Entity: "appointment", EntityID: id.String(),
		Meta: map[string]any{"from": current.Status, "to": next},
	})
	return updated, nil
}

// MarkPaid records a payment against the appointment. It locks the row, so
// callers run it inside a transaction. Paying an already paid appointment
// updates the method only, when one is given, and reports FirstPaid=false. A missing doctor is
// filled in by the DoctorPolicy on the first transition into paid.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, method string) (PaymentOutcome, error) {
	a, err := s.repo.GetForUpdate(ctx, id)
	if err != nil {
		return PaymentOutcome{}, err
	}
	if a.Status == StatusCancelled {
		return PaymentOutcome{}, ErrNotPayable
	}
	first := a.PaymentStatus != PaymentPaid
	if method = strings.ToLower(strings.TrimSpace(method)); method != "" {
		a.PaymentMethod = method
	}
	if first {
		now := s.now().UTC()
		a.PaymentStatus = PaymentPaid
		a.PaymentDate = &now
		if a.AssignedDoctorID == nil {
			doctor, err := s.policy.Assign(ctx, a.StoreID)
			if err != nil {
				return PaymentOutcome{}, fmt.Errorf("assign doctor: %w", err)
			}
			a.AssignedDoctorID = doctor
		}
	}
	saved, err := s.repo.SavePayment(ctx, a)
	if err != nil {
		return PaymentOutcome{}, err
	}
	return PaymentOutcome{Appointment: saved, FirstPaid: first}, nil
}

// NewAppointmentNumber returns APT-YYYYMMDD-XXXXXX.
func NewAppointmentNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("APT-%s-%s", now.UTC().Format("20060102"), suffix)
}
