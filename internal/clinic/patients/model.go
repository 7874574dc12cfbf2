package patients

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/shared"
)

var ErrNotFound = fmt.Errorf("patient %w", shared.ErrNotFound)

// Patient is a clinic record. Patients may also be billed on regular
// invoices, in which case the invoice carries patient_id.
type Patient struct {
	ID                uuid.UUID  `json:"id"`
	PatientCode       string     `json:"patient_code"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	Gender            string     `json:"gender"`
	Address           string     `json:"address"`
	InsuranceProvider string     `json:"insurance_provider"`
	InsuranceNumber   string     `json:"insurance_number"`
	StoreID           *uuid.UUID `json:"store_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type ListFilter struct {
	StoreID *uuid.UUID
	Search  string
	Page    shared.Page
}

type PatientRequest struct {
	PatientCode       string     `json:"patient_code" validate:"max=32"`
	FirstName         string     `json:"first_name" validate:"required,max=100"`
	LastName          string     `json:"last_name" validate:"max=100"`
	Email             string     `json:"email" validate:"omitempty,email"`
	Phone             string     `json:"phone"`
	DateOfBirth       *time.Time `json:"date_of_birth"`
	Gender            string     `json:"gender" validate:"omitempty,oneof=male female other"`
	Address           string     `json:"address"`
	InsuranceProvider string     `json:"insurance_provider"`
	InsuranceNumber   string     `json:"insurance_number"`
	StoreID           *uuid.UUID `json:"store_id"`
}
