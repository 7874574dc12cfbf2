package staff

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/opticlinic/opticlinic/internal/shared"
)

type memoryRepo struct {
	items map[uuid.UUID]Staff
}

func (m *memoryRepo) List(context.Context, ListFilter) ([]Staff, error) {
	out := make([]Staff, 0)
	for _, s := range m.items {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id uuid.UUID) (Staff, error) {
	s, ok := m.items[id]
	if !ok {
		return Staff{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) Create(_ context.Context, s Staff) (Staff, error) {
	s.ID = uuid.New()
	m.items[s.ID] = s
	return s, nil
}

func (m *memoryRepo) Update(_ context.Context, id uuid.UUID, s Staff) (Staff, error) {
	s.ID = id
	m.items[id] = s
	return s, nil
}

func (m *memoryRepo) SetActive(_ context.Context, id uuid.UUID, active bool) (Staff, error) {
	s, ok := m.items[id]
	if !ok {
		return Staff{}, ErrNotFound
	}
	s.IsActive = active
	m.items[id] = s
	return s, nil
}

func (m *memoryRepo) FirstActiveClinician(_ context.Context, storeID *uuid.UUID) (Staff, error) {
	for _, s := range m.items {
		if s.IsActive && s.Role.Clinical() && (storeID == nil || (s.StoreID != nil && *s.StoreID == *storeID)) {
			return s, nil
		}
	}
	return Staff{}, ErrNotFound
}

func TestRoleHelpers(t *testing.T) {
	require.True(t, RoleOptometrist.Clinical())
	require.False(t, RoleOptician.Clinical())
	require.True(t, RoleSales.Valid())
	require.False(t, Role("janitor").Valid())
}

func TestCreateRejectsUnknownRoleAndNormalises(t *testing.T) {
	svc := NewService(&memoryRepo{items: map[uuid.UUID]Staff{}})
	_, err := svc.Create(context.Background(), StaffRequest{StaffCode: "S1", FirstName: "A", Role: "janitor"})
	require.ErrorIs(t, err, shared.ErrValidation)

	st, err := svc.Create(context.Background(), StaffRequest{StaffCode: " S2 ", FirstName: "Dr", LastName: "Who", Role: "Doctor"})
	require.NoError(t, err)
	require.Equal(t, RoleDoctor, st.Role)
	require.Equal(t, "S2", st.StaffCode)
	require.True(t, st.IsActive)
	require.Equal(t, "Dr Who", st.FullName())
}

func TestHandlerDeactivate(t *testing.T) {
	repo := &memoryRepo{items: map[uuid.UUID]Staff{}}
	svc := NewService(repo)
	h := NewHandler(nil, svc)
	r := chi.NewRouter()
	r.Route("/api/staff", h.MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/staff", strings.NewReader(`{"staff_code":"D1","first_name":"Rina","role":"optometrist"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	var id uuid.UUID
	for k := range repo.items {
		id = k
	}
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/staff/"+id.String()+"/deactivate", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.False(t, repo.items[id].IsActive)

	_, err := repo.FirstActiveClinician(context.Background(), nil)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
