package staff

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/shared"
)

var ErrNotFound = fmt.Errorf("staff member %w", shared.ErrNotFound)

type Role string

const (
	RoleDoctor      Role = "doctor"
	RoleOptometrist Role = "optometrist"
	RoleOptician    Role = "optician"
	RoleSales       Role = "sales"
	RoleManager     Role = "manager"
	RoleAdmin       Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDoctor, RoleOptometrist, RoleOptician, RoleSales, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Clinical reports whether the role may be assigned to appointments.
func (r Role) Clinical() bool {
	return r == RoleDoctor || r == RoleOptometrist
}

type Staff struct {
	ID        uuid.UUID  `json:"id"`
	StaffCode string     `json:"staff_code"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Position  string     `json:"position"`
	Role      Role       `json:"role"`
	StoreID   *uuid.UUID `json:"store_id"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (s Staff) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

type ListFilter struct {
	StoreID    *uuid.UUID
	Role       Role
	ActiveOnly bool
	Page       shared.Page
}

type StaffRequest struct {
	StaffCode string     `json:"staff_code" validate:"required,max=32"`
	FirstName string     `json:"first_name" validate:"required,max=100"`
	LastName  string     `json:"last_name" validate:"max=100"`
	Email     string     `json:"email" validate:"omitempty,email"`
	Phone     string     `json:"phone"`
	Position  string     `json:"position"`
	Role      Role       `json:"role" validate:"required"`
	StoreID   *uuid.UUID `json:"store_id"`
	IsActive  *bool      `json:"is_active"`
}
