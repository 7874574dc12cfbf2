package appointments

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/masterdata/staff"
	"github.com/opticlinic/opticlinic/internal/shared"
)

// ClinicianFinder looks up staff who can take an appointment.
type ClinicianFinder interface {
	FirstActiveClinician(ctx context.Context, storeID *uuid.UUID) (staff.Staff, error)
}

// DoctorPolicy chooses a doctor for an appointment that has none. A
// configured default wins, then the first active clinician at the
// appointment's store, then the first active clinician anywhere.
type DoctorPolicy struct {
	defaultID *uuid.UUID
	roster    ClinicianFinder
}

func NewDoctorPolicy(defaultID *uuid.UUID, roster ClinicianFinder) *DoctorPolicy {
	return &DoctorPolicy{defaultID: defaultID, roster: roster}
}

// Assign returns nil when no clinician exists at all.
func (p *DoctorPolicy) Assign(ctx context.Context, storeID uuid.UUID) (*uuid.UUID, error) {
	if p == nil {
		return nil, nil
	}
	if p.defaultID != nil {
		id := *p.defaultID
		return &id, nil
	}
	if p.roster == nil {
		return nil, nil
	}
	for _, scope := range []*uuid.UUID{&storeID, nil} {
		doc, err := p.roster.FirstActiveClinician(ctx, scope)
		if err == nil {
			return &doc.ID, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}
