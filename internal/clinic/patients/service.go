package patients

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opticlinic/opticlinic/internal/platform/cache"
	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/internal/shared"
)

type Service struct {
	repo  Repository
	now   func() time.Time
	cache cache.Invalidator
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithCache sets the payments cache bumped when a patient's name changes.
func (s *Service) WithCache(c cache.Invalidator) {
	s.cache = c
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Patient, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Patient, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a patient, generating a patient code when none is given.
func (s *Service) Create(ctx context.Context, req PatientRequest) (Patient, error) {
	p, err := s.build(req)
	if err != nil {
		return Patient{}, err
	}
	if p.PatientCode == "" {
		p.PatientCode = NewPatientCode()
	}
	return s.repo.Create(ctx, p)
}

// Update replaces the demographic fields. The patient code is immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req PatientRequest) (Patient, error) {
	p, err := s.build(req)
	if err != nil {
		return Patient{}, err
	}
	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return Patient{}, err
	}
	if s.cache != nil {
		db.OnCommit(ctx, func() { _ = s.cache.Bump(context.WithoutCancel(ctx)) })
	}
	return updated, nil
}

func (s *Service) build(req PatientRequest) (Patient, error) {
	p := Patient{
		PatientCode:       strings.ToUpper(strings.TrimSpace(req.PatientCode)),
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		Email:             strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:             strings.TrimSpace(req.Phone),
		DateOfBirth:       req.DateOfBirth,
		Gender:            req.Gender,
		Address:           req.Address,
		InsuranceProvider: req.InsuranceProvider,
		InsuranceNumber:   req.InsuranceNumber,
		StoreID:           req.StoreID,
	}
	if p.FirstName == "" {
		return Patient{}, shared.Validationf("first_name is required")
	}
	if p.DateOfBirth != nil && p.DateOfBirth.After(s.now()) {
		return Patient{}, shared.Validationf("date_of_birth is in the future")
	}
	return p, nil
}

// NewPatientCode returns a code of the form PAT-XXXXXXXX.
func NewPatientCode() string {
	return "PAT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
