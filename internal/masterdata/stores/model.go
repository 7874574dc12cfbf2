package stores

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/shared"
)

var ErrNotFound = fmt.Errorf("store %w", shared.ErrNotFound)

var errNameRequired = errors.New("store name is required")

// Store is the tenant unit: a physical shop or clinic branch.
type Store struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StoreRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsActive *bool  `json:"is_active"`
}

func (r StoreRequest) toStore() Store {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return Store{Name: r.Name, Address: r.Address, Phone: r.Phone, Email: r.Email, IsActive: active}
}
