package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/opticlinic/opticlinic/internal/billing"
	"github.com/opticlinic/opticlinic/internal/clinic/appointments"
	"github.com/opticlinic/opticlinic/internal/masterdata/staff"
	"github.com/opticlinic/opticlinic/internal/shared"
)

type fakeBilling struct {
	invoices map[uuid.UUID]billing.Invoice
	medical  []billing.MedicalInvoice
	requests []billing.MedicalInvoiceRequest
}

func (f *fakeBilling) MarkInvoicePayment(_ context.Context, id uuid.UUID, status billing.InvoiceStatus, method string) (billing.Invoice, bool, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return billing.Invoice{}, false, billing.ErrInvoiceNotFound
	}
	if status == "" {
		status = billing.StatusPaid
	}
	first := status == billing.StatusPaid && inv.Status != billing.StatusPaid
	inv.Status = status
	inv.PaymentMethod = method
	f.invoices[id] = inv
	return inv, first, nil
}

func (f *fakeBilling) MarkMedicalInvoicePayment(_ context.Context, id uuid.UUID, status billing.MedicalPaymentStatus, _ string) (billing.MedicalInvoice, bool, error) {
	for i, m := range f.medical {
		if m.ID == id {
			if status == "" {
				status = billing.MedicalPaid
			}
			f.medical[i].PaymentStatus = status
			return f.medical[i], true, nil
		}
	}
	return billing.MedicalInvoice{}, false, billing.ErrMedicalInvoiceNotFound
}

func (f *fakeBilling) CreateMedicalInvoice(_ context.Context, req billing.MedicalInvoiceRequest) (billing.MedicalInvoice, error) {
	f.requests = append(f.requests, req)
	tax := shared.PercentOf(req.Subtotal, req.TaxRate)
	m := billing.MedicalInvoice{
		ID:            uuid.New(),
		InvoiceNumber: req.InvoiceNumber,
		PatientID:     req.PatientID,
		StoreID:       req.StoreID,
		AppointmentID: req.AppointmentID,
		Subtotal:      req.Subtotal,
		TaxRate:       req.TaxRate,
		TaxAmount:     tax,
		Total:         req.Subtotal.Add(tax),
		PaymentStatus: req.PaymentStatus,
		PaymentMethod: req.PaymentMethod,
	}
	f.medical = append(f.medical, m)
	return m, nil
}

type memoryAppointments struct {
	items map[uuid.UUID]appointments.Appointment
}

func (r *memoryAppointments) List(context.Context, appointments.ListFilter) ([]appointments.Appointment, error) {
	return nil, nil
}

func (r *memoryAppointments) Get(_ context.Context, id uuid.UUID) (appointments.Appointment, error) {
	a, ok := r.items[id]
	if !ok {
		return appointments.Appointment{}, appointments.ErrNotFound
	}
	return a, nil
}

func (r *memoryAppointments) GetForUpdate(ctx context.Context, id uuid.UUID) (appointments.Appointment, error) {
	return r.Get(ctx, id)
}

func (r *memoryAppointments) Create(_ context.Context, a appointments.Appointment) (appointments.Appointment, error) {
	r.items[a.ID] = a
	return a, nil
}

func (r *memoryAppointments) UpdateStatus(ctx context.Context, id uuid.UUID, status appointments.Status) (appointments.Appointment, error) {
	a, err := r.Get(ctx, id)
	if err != nil {
		return a, err
	}
	a.Status = status
	r.items[id] = a
	return a, nil
}

func (r *memoryAppointments) SavePayment(_ context.Context, a appointments.Appointment) (appointments.Appointment, error) {
	r.items[a.ID] = a
	return a, nil
}

type roster struct {
	doctor staff.Staff
}

func (r roster) FirstActiveClinician(_ context.Context, storeID *uuid.UUID) (staff.Staff, error) {
	if storeID != nil && r.doctor.StoreID != nil && *storeID == *r.doctor.StoreID {
		return r.doctor, nil
	}
	return staff.Staff{}, staff.ErrNotFound
}

type inlineTx struct{ calls int }

func (t *inlineTx) WithinTx(ctx context.Context, fn func(context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type processorFixture struct {
	processor *Processor
	billing   *fakeBilling
	appts     *memoryAppointments
	tx        *inlineTx
	cache     *countingCache
	store     uuid.UUID
	doctor    uuid.UUID
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

func newProcessorFixture() processorFixture {
	store := uuid.New()
	doctor := staff.Staff{ID: uuid.New(), Role: staff.RoleOptometrist, StoreID: &store, IsActive: true}
	appts := &memoryAppointments{items: make(map[uuid.UUID]appointments.Appointment)}
	apptSvc := appointments.NewService(appts, appointments.NewDoctorPolicy(nil, roster{doctor: doctor}), nil)
	apptSvc.WithNow(fixedNow)
	b := &fakeBilling{invoices: make(map[uuid.UUID]billing.Invoice)}
	tx := &inlineTx{}
	c := &countingCache{}
	p := NewProcessor(b, apptSvc, tx, decimal.NewFromInt(8), nil)
	p.WithNow(fixedNow)
	p.WithCache(c)
	return processorFixture{processor: p, billing: b, appts: appts, tx: tx, cache: c, store: store, doctor: doctor.ID}
}

func (fx processorFixture) addAppointment(fee string) appointments.Appointment {
	a := appointments.Appointment{
		ID:                uuid.New(),
		AppointmentNumber: "APT-20240601-ABC123",
		PatientID:         uuid.New(),
		StoreID:           fx.store,
		Status:            appointments.StatusScheduled,
		Fee:               decimal.RequireFromString(fee),
		PaymentStatus:     appointments.PaymentPending,
	}
	fx.appts.items[a.ID] = a
	return a
}

func TestProcessAppointmentAssignsDoctorAndInvoices(t *testing.T) {
	fx := newProcessorFixture()
	appt := fx.addAppointment("150.00")
	paymentID := "apt-" + appt.ID.String()

	res, err := fx.processor.Process(context.Background(), paymentID, ProcessRequest{PaymentMethod: "Card"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, paymentID, res.PaymentID)
	require.Equal(t, string(appointments.PaymentPaid), res.Status)
	require.Equal(t, fmt.Sprintf("INV-APT-%d", fixedNow().UnixMilli()), res.InvoiceNumber)
	require.Equal(t, 1, fx.tx.calls)
	require.Equal(t, 1, fx.cache.bumps)

	saved := fx.appts.items[appt.ID]
	require.Equal(t, appointments.PaymentPaid, saved.PaymentStatus)
	require.Equal(t, "card", saved.PaymentMethod)
	require.NotNil(t, saved.AssignedDoctorID)
	require.Equal(t, fx.doctor, *saved.AssignedDoctorID)

	require.Len(t, fx.billing.medical, 1)
	inv := fx.billing.medical[0]
	require.Equal(t, "162.00", inv.Total.StringFixed(2))
	require.Equal(t, billing.MedicalPaid, inv.PaymentStatus)
	require.Equal(t, appt.ID, *inv.AppointmentID)
	require.True(t, fx.billing.requests[0].Subtotal.Equal(appt.Fee))

	again, err := fx.processor.Process(context.Background(), paymentID, ProcessRequest{PaymentMethod: "card"})
	require.NoError(t, err)
	require.True(t, again.Success)
	require.Empty(t, again.InvoiceNumber)
	require.Len(t, fx.billing.medical, 1)
}

func TestProcessUnknownTypeIsNotAnError(t *testing.T) {
	fx := newProcessorFixture()
	for _, id := range []string{"xyz-123", "xyz-" + uuid.NewString(), "inv-not-a-uuid", "garbage", ""} {
		res, err := fx.processor.Process(context.Background(), id, ProcessRequest{})
		require.NoError(t, err, id)
		require.False(t, res.Success, id)
		require.Equal(t, "unknown payment type", res.Message)
	}
}

func TestProcessInvoiceAndMedical(t *testing.T) {
	fx := newProcessorFixture()
	invID := uuid.New()
	fx.billing.invoices[invID] = billing.Invoice{ID: invID, InvoiceNumber: "INV-20240601-AAAA0000", Status: billing.StatusDraft}

	res, err := fx.processor.Process(context.Background(), "inv-"+invID.String(), ProcessRequest{PaymentMethod: "transfer"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "paid", res.Status)
	require.Equal(t, "INV-20240601-AAAA0000", res.InvoiceNumber)
	require.Equal(t, "invoice payment recorded", res.Message)

	res, err = fx.processor.Process(context.Background(), "inv-"+invID.String(), ProcessRequest{})
	require.NoError(t, err)
	require.Equal(t, "invoice status set to paid", res.Message)

	_, err = fx.processor.Process(context.Background(), "inv-"+uuid.NewString(), ProcessRequest{})
	require.ErrorIs(t, err, shared.ErrNotFound)

	medID := uuid.New()
	fx.billing.medical = append(fx.billing.medical, billing.MedicalInvoice{ID: medID, InvoiceNumber: "MED-1", PaymentStatus: billing.MedicalPending})
	res, err = fx.processor.Process(context.Background(), "PAY-"+medID.String(), ProcessRequest{})
	require.NoError(t, err)
	require.Equal(t, "paid", res.Status)
}

func TestProcessCancelledAppointmentConflicts(t *testing.T) {
	fx := newProcessorFixture()
	appt := fx.addAppointment("80")
	appt.Status = appointments.StatusCancelled
	fx.appts.items[appt.ID] = appt

	_, err := fx.processor.Process(context.Background(), "apt-"+appt.ID.String(), ProcessRequest{})
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Empty(t, fx.billing.medical)
	require.Zero(t, fx.cache.bumps)
}

func TestHandlerProcess(t *testing.T) {
	fx := newProcessorFixture()
	appt := fx.addAppointment("150")
	h := NewHandler(nil, nil, fx.processor)
	r := chi.NewRouter()
	r.Route("/api/payments", h.MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/payments/xyz-123/process", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var res Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	require.False(t, res.Success)
	require.Equal(t, "unknown payment type", res.Message)

	rr = httptest.NewRecorder()
	body := strings.NewReader(`{"payment_method":"card"}`)
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/payments/apt-"+appt.ID.String()+"/process", body))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"invoice_number":"INV-APT-`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/payments/apt-"+uuid.NewString()+"/process", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerProcessChunkedEmptyBody(t *testing.T) {
	fx := newProcessorFixture()
	appt := fx.addAppointment("80")
	h := NewHandler(nil, nil, fx.processor)
	r := chi.NewRouter()
	r.Route("/api/payments", h.MountRoutes)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/apt-"+appt.ID.String()+"/process", strings.NewReader(""))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/api/payments/apt-"+appt.ID.String()+"/process", strings.NewReader(`{"payment_method":`))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

type recorder struct{ outcomes []string }

func (r *recorder) PaymentProcessed(prefix, outcome string) {
	r.outcomes = append(r.outcomes, prefix+":"+outcome)
}

func TestProcessRecordsOutcomes(t *testing.T) {
	fx := newProcessorFixture()
	rec := &recorder{}
	fx.processor.WithMetrics(rec)
	appt := fx.addAppointment("50")

	_, err := fx.processor.Process(context.Background(), "apt-"+appt.ID.String(), ProcessRequest{})
	require.NoError(t, err)
	_, err = fx.processor.Process(context.Background(), "xyz-123", ProcessRequest{})
	require.NoError(t, err)
	_, err = fx.processor.Process(context.Background(), "inv-"+uuid.NewString(), ProcessRequest{})
	require.Error(t, err)

	require.Equal(t, []string{"apt:ok", ":rejected", "inv:error"}, rec.outcomes)
}
