package customers

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/shared"
)

var ErrNotFound = fmt.Errorf("customer %w", shared.ErrNotFound)

type Customer struct {
	ID        uuid.UUID  `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Address   string     `json:"address"`
	StoreID   *uuid.UUID `json:"store_id"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FullName joins first and last name, skipping a blank last name.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type ListFilter struct {
	StoreID *uuid.UUID
	Search  string
	Page    shared.Page
}

type CustomerRequest struct {
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"max=100"`
	Email     string     `json:"email" validate:"omitempty,email"`
	Phone     string     `json:"phone" validate:"max=40"`
	Address   string     `json:"address"`
	StoreID   *uuid.UUID `json:"store_id"`
	Notes     string     `json:"notes"`
}

func (r CustomerRequest) toCustomer() Customer {
	return Customer{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Email:     strings.ToLower(strings.TrimSpace(r.Email)),
		Phone:     strings.TrimSpace(r.Phone),
		Address:   r.Address,
		StoreID:   r.StoreID,
		Notes:     r.Notes,
	}
}
