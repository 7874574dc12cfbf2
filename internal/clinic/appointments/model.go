package appointments

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/shared"
)

var (
	ErrNotFound          = fmt.Errorf("appointment %w", shared.ErrNotFound)
	ErrInvalidTransition = fmt.Errorf("%w: appointment status transition not allowed", shared.ErrConflict)
	ErrNotPayable        = fmt.Errorf("%w: cancelled appointments cannot be paid", shared.ErrConflict)
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// CanTransition reports whether an appointment may move from s to next.
// Completed, cancelled and no-show appointments are final.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentPartial   PaymentStatus = "partial"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Appointment struct {
	ID                uuid.UUID       `json:"id"`
	AppointmentNumber string          `json:"appointment_number"`
	PatientID         uuid.UUID       `json:"patient_id"`
	StoreID           uuid.UUID       `json:"store_id"`
	AssignedDoctorID  *uuid.UUID      `json:"assigned_doctor_id"`
	Service           string          `json:"service"`
	ScheduledAt       time.Time       `json:"scheduled_at"`
	DurationMinutes   int             `json:"duration_minutes"`
	Status            Status          `json:"status"`
	Fee               decimal.Decimal `json:"fee"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentDate       *time.Time      `json:"payment_date"`
	Notes             string          `json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type ListFilter struct {
	StoreID   *uuid.UUID
	PatientID *uuid.UUID
	Status    Status
	From, To  *time.Time
	Page      shared.Page
}

type CreateRequest struct {
	PatientID        uuid.UUID       `json:"patient_id" validate:"required"`
	StoreID          uuid.UUID       `json:"store_id" validate:"required"`
	AssignedDoctorID *uuid.UUID      `json:"assigned_doctor_id"`
	Service          string          `json:"service" validate:"required,max=100"`
	ScheduledAt      time.Time       `json:"scheduled_at" validate:"required"`
	DurationMinutes  int             `json:"duration_minutes" validate:"omitempty,gte=5,lte=480"`
	Fee              decimal.Decimal `json:"fee"`
	Notes            string          `json:"notes"`
}

type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=scheduled confirmed completed cancelled no_show"`
}

// PaymentOutcome is returned by MarkPaid. FirstPaid is true only for the
// call that moved the appointment into paid.
type PaymentOutcome struct {
	Appointment Appointment
	FirstPaid   bool
}
