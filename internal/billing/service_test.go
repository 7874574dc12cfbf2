package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/opticlinic/opticlinic/internal/accounting"
	"github.com/opticlinic/opticlinic/internal/shared"
)

type memoryRepo struct {
	customers map[uuid.UUID]bool
	patients  map[uuid.UUID]bool
	invoices  map[uuid.UUID]Invoice
	medical   map[uuid.UUID]MedicalInvoice
	failTx    error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		customers: map[uuid.UUID]bool{},
		patients:  map[uuid.UUID]bool{},
		invoices:  map[uuid.UUID]Invoice{},
		medical:   map[uuid.UUID]MedicalInvoice{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context) error) error {
	if m.failTx != nil {
		return m.failTx
	}
	return fn(ctx)
}

func (m *memoryRepo) ResolveCounterparty(_ context.Context, id uuid.UUID) (CounterpartyKind, error) {
	switch {
	case m.customers[id]:
		return CounterpartyCustomer, nil
	case m.patients[id]:
		return CounterpartyPatient, nil
	}
	return CounterpartyNone, nil
}

func (m *memoryRepo) InsertInvoice(_ context.Context, inv Invoice) (Invoice, error) {
	inv.ID = uuid.New()
	for i := range inv.Items {
		inv.Items[i].ID = uuid.New()
	}
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memoryRepo) GetInvoice(_ context.Context, id uuid.UUID) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *memoryRepo) GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return m.GetInvoice(ctx, id)
}

func (m *memoryRepo) ListInvoices(_ context.Context, filter InvoiceFilter) ([]Invoice, error) {
	out := make([]Invoice, 0)
	for _, inv := range m.invoices {
		if filter.Direction != "" && (inv.Direction == nil || *inv.Direction != filter.Direction) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (m *memoryRepo) SaveInvoicePayment(_ context.Context, inv Invoice) (Invoice, error) {
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memoryRepo) MarkOverdue(_ context.Context, asOf time.Time) (int64, error) {
	var n int64
	for id, inv := range m.invoices {
		if inv.Status == StatusSent && inv.DueDate != nil && inv.DueDate.Before(asOf) {
			inv.Status = StatusOverdue
			m.invoices[id] = inv
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) InsertMedicalInvoice(_ context.Context, mi MedicalInvoice) (MedicalInvoice, error) {
	mi.ID = uuid.New()
	m.medical[mi.ID] = mi
	return mi, nil
}

func (m *memoryRepo) GetMedicalInvoice(_ context.Context, id uuid.UUID) (MedicalInvoice, error) {
	mi, ok := m.medical[id]
	if !ok {
		return MedicalInvoice{}, ErrMedicalInvoiceNotFound
	}
	return mi, nil
}

func (m *memoryRepo) GetMedicalInvoiceForUpdate(ctx context.Context, id uuid.UUID) (MedicalInvoice, error) {
	return m.GetMedicalInvoice(ctx, id)
}

func (m *memoryRepo) ListMedicalInvoices(context.Context, MedicalInvoiceFilter) ([]MedicalInvoice, error) {
	out := make([]MedicalInvoice, 0)
	for _, mi := range m.medical {
		out = append(out, mi)
	}
	return out, nil
}

func (m *memoryRepo) SaveMedicalPayment(_ context.Context, mi MedicalInvoice) (MedicalInvoice, error) {
	m.medical[mi.ID] = mi
	return mi, nil
}

func (m *memoryRepo) ListLegacyInvoices(_ context.Context, after uuid.UUID, limit int) ([]LegacyInvoice, error) {
	ids := make([]uuid.UUID, 0)
	for id, inv := range m.invoices {
		if inv.Direction == nil || strings.Contains(inv.Notes, legacyPatientTag) {
			if strings.Compare(id.String(), after.String()) > 0 {
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]LegacyInvoice, 0, len(ids))
	for _, id := range ids {
		inv := m.invoices[id]
		out = append(out, LegacyInvoice{ID: id, Source: inv.Source, Direction: inv.Direction, Notes: inv.Notes, CounterpartyName: inv.CounterpartyName, PatientID: inv.PatientID})
	}
	return out, nil
}

func (m *memoryRepo) ApplyLegacyFix(_ context.Context, fix LegacyFix) error {
	inv := m.invoices[fix.ID]
	if fix.PatientID != nil {
		inv.PatientID = fix.PatientID
	}
	d := fix.Direction
	inv.Direction = &d
	inv.Notes = fix.Notes
	m.invoices[fix.ID] = inv
	return nil
}

type fakeLedger struct {
	posted []accounting.PostingRequest
	err    error
}

func (l *fakeLedger) Post(_ context.Context, req accounting.PostingRequest) (accounting.Posting, error) {
	if l.err != nil {
		return accounting.Posting{}, l.err
	}
	l.posted = append(l.posted, req)
	return accounting.Posting{TransactionID: uuid.New()}, nil
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(context.Context) error {
	c.bumps++
	return nil
}

var fixedNow = time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	repo   *memoryRepo
	ledger *fakeLedger
	cache  *countingCache
}

func newFixture() fixture {
	repo := newMemoryRepo()
	ledger := &fakeLedger{}
	c := &countingCache{}
	svc := NewService(repo, ledger, nil)
	svc.WithNow(func() time.Time { return fixedNow })
	svc.WithCache(c)
	return fixture{svc: svc, repo: repo, ledger: ledger, cache: c}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestComputeTotalsWorkedExample(t *testing.T) {
	lines, err := BuildLines([]ItemInput{{ProductName: "Frame", Quantity: 2, UnitPrice: dec("50"), Total: decPtr("100")}})
	require.NoError(t, err)
	totals, err := ComputeTotals(lines, dec("8.5"), dec("10"))
	require.NoError(t, err)
	require.Equal(t, "100.00", totals.Subtotal.StringFixed(2))
	require.Equal(t, "8.50", totals.TaxAmount.StringFixed(2))
	require.Equal(t, "98.50", totals.Total.StringFixed(2))
}

func TestComputeTotalsSumsLinesAndRoundsTax(t *testing.T) {
	lines, err := BuildLines([]ItemInput{
		{ProductName: "Lens", Quantity: 3, UnitPrice: dec("33.33"), Discount: dec("0.99")},
		{ProductName: "Case", Quantity: 1, UnitPrice: dec("7.15")},
	})
	require.NoError(t, err)
	require.Equal(t, "99", lines[0].Total.String())
	totals, err := ComputeTotals(lines, dec("7.25"), decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, "106.15", totals.Subtotal.StringFixed(2))
	require.Equal(t, "7.70", totals.TaxAmount.StringFixed(2))
	require.Equal(t, "113.85", totals.Total.StringFixed(2))
}

func TestBuildLinesValidation(t *testing.T) {
	_, err := BuildLines(nil)
	require.ErrorIs(t, err, ErrNoItems)

	_, err = BuildLines([]ItemInput{{ProductName: "Frame", Quantity: 2, UnitPrice: dec("50"), Total: decPtr("100.02")}})
	require.ErrorIs(t, err, ErrLineTotalMismatch)

	_, err = BuildLines([]ItemInput{{ProductName: "Frame", Quantity: 2, UnitPrice: dec("50"), Total: decPtr("100.01")}})
	require.NoError(t, err)

	_, err = BuildLines([]ItemInput{{ProductName: "Frame", Quantity: 1, UnitPrice: dec("5"), Discount: dec("6")}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = BuildLines([]ItemInput{{ProductName: "Frame", Quantity: 0, UnitPrice: dec("5")}})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestComputeTotalsRejectsNegativeTotal(t *testing.T) {
	lines, err := BuildLines([]ItemInput{{ProductName: "Cloth", Quantity: 1, UnitPrice: dec("5")}})
	require.NoError(t, err)
	_, err = ComputeTotals(lines, decimal.Zero, dec("6"))
	require.ErrorIs(t, err, ErrNegativeTotal)
}

func TestCreateInvoiceCashIsPaidAndPosted(t *testing.T) {
	f := newFixture()
	customer := uuid.New()
	f.repo.customers[customer] = true

	inv, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID:     &customer,
		StoreID:        uuid.New(),
		Items:          []ItemInput{{ProductName: "Frame", Quantity: 2, UnitPrice: dec("50"), Total: decPtr("100")}},
		TaxRate:        decPtr("8.5"),
		DiscountAmount: dec("10"),
		PaymentMethod:  "Cash",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, inv.Status)
	require.Equal(t, fixedNow, *inv.PaymentDate)
	require.Equal(t, customer, *inv.CustomerID)
	require.Nil(t, inv.PatientID)
	require.Equal(t, DirectionIncome, *inv.Direction)
	require.Equal(t, SourceRegular, inv.Source)
	require.Regexp(t, regexp.MustCompile(`^INV-20240601-[0-9A-F]{8}$`), inv.InvoiceNumber)
	require.Equal(t, "98.50", inv.Total.StringFixed(2))

	require.Len(t, f.ledger.posted, 1)
	post := f.ledger.posted[0]
	require.Equal(t, accounting.TransactionIncome, post.TransactionType)
	require.Equal(t, accounting.SourceInvoice, post.SourceType)
	require.Equal(t, inv.ID, post.ReferenceID)
	require.True(t, post.Amount.Equal(dec("98.5")))
	require.Equal(t, 1, f.cache.bumps)
}

func TestCreateInvoiceNonCashIsDraft(t *testing.T) {
	for _, method := range []string{"card", "transfer", ""} {
		f := newFixture()
		inv, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
			StoreID:       uuid.New(),
			Items:         []ItemInput{{ProductName: "Exam", Quantity: 1, UnitPrice: dec("40")}},
			PaymentMethod: method,
		})
		require.NoError(t, err, method)
		require.Equal(t, StatusDraft, inv.Status, method)
		require.Nil(t, inv.PaymentDate)
		require.Empty(t, f.ledger.posted)
	}
}

func TestCreateInvoiceResolvesPatientReferenceAndGuest(t *testing.T) {
	f := newFixture()
	patient := uuid.New()
	f.repo.patients[patient] = true

	inv, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: &patient,
		StoreID:    uuid.New(),
		Items:      []ItemInput{{ProductName: "Lens", Quantity: 1, UnitPrice: dec("10")}},
	})
	require.NoError(t, err)
	require.Nil(t, inv.CustomerID)
	require.Equal(t, patient, *inv.PatientID)
	require.NotContains(t, inv.Notes, legacyPatientTag)

	unknown := uuid.New()
	inv, err = f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: &unknown,
		StoreID:    uuid.New(),
		Items:      []ItemInput{{ProductName: "Lens", Quantity: 1, UnitPrice: dec("10")}},
	})
	require.NoError(t, err)
	require.Nil(t, inv.CustomerID)
	require.Nil(t, inv.PatientID)
}

func TestCreateInvoiceUsesDefaultTaxRate(t *testing.T) {
	f := newFixture()
	f.svc.WithDefaultTaxRate(dec("10"))
	inv, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		StoreID: uuid.New(),
		Items:   []ItemInput{{ProductName: "Lens", Quantity: 1, UnitPrice: dec("20")}},
	})
	require.NoError(t, err)
	require.Equal(t, "2.00", inv.TaxAmount.StringFixed(2))
}

func TestCreateInvoiceFailsWhenLedgerFails(t *testing.T) {
	f := newFixture()
	f.ledger.err = accounting.ErrMappingNotFound
	_, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		StoreID:       uuid.New(),
		Items:         []ItemInput{{ProductName: "Lens", Quantity: 1, UnitPrice: dec("20")}},
		PaymentMethod: "cash",
	})
	require.ErrorIs(t, err, accounting.ErrMappingNotFound)
	require.Zero(t, f.cache.bumps)
}

func TestCreateExpenditurePostsBySource(t *testing.T) {
	f := newFixture()
	inv, err := f.svc.CreateExpenditure(context.Background(), ExpenditureInvoice{
		Source:   SourceReorder,
		StoreID:  uuid.New(),
		Supplier: "Lens Supply Co",
		Items:    []ItemInput{{ProductName: "Daily lenses", Quantity: 10, UnitPrice: dec("4.5")}},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(inv.InvoiceNumber, "EXP-"))
	require.True(t, inv.IsExpenditure())
	require.Equal(t, StatusPaid, inv.Status)
	require.Equal(t, PaymentMethodCash, inv.PaymentMethod)
	require.Equal(t, "Lens Supply Co", inv.CounterpartyName)
	require.Len(t, f.ledger.posted, 1)
	require.Equal(t, accounting.TransactionExpense, f.ledger.posted[0].TransactionType)
	require.Equal(t, accounting.SourceReorder, f.ledger.posted[0].SourceType)
	require.True(t, f.ledger.posted[0].Amount.Equal(dec("45")))

	_, err = f.svc.CreateExpenditure(context.Background(), ExpenditureInvoice{Source: SourceRegular, StoreID: uuid.New()})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordExpenditure(t *testing.T) {
	f := newFixture()
	inv, err := f.svc.RecordExpenditure(context.Background(), ExpenditureRequest{
		StoreID: uuid.New(), Amount: dec("120"), Category: "utilities", Description: "Electricity", PaymentMethod: "transfer",
	})
	require.NoError(t, err)
	require.Equal(t, SourceExpenditure, inv.Source)
	require.Equal(t, "utilities", inv.Category)
	require.Equal(t, accounting.SourceExpenditure, f.ledger.posted[0].SourceType)

	list, err := f.svc.ListExpenditures(context.Background(), InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.svc.RecordExpenditure(context.Background(), ExpenditureRequest{StoreID: uuid.New(), Amount: decimal.Zero, Category: "x", Description: "y"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestMarkInvoicePaymentPostsOnce(t *testing.T) {
	f := newFixture()
	inv, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		StoreID:       uuid.New(),
		Items:         []ItemInput{{ProductName: "Frame", Quantity: 1, UnitPrice: dec("80")}},
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	require.Empty(t, f.ledger.posted)

	paid, first, err := f.svc.MarkInvoicePayment(context.Background(), inv.ID, "", "card")
	require.NoError(t, err)
	require.True(t, first)
	require.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)
	require.Len(t, f.ledger.posted, 1)

	_, first, err = f.svc.MarkInvoicePayment(context.Background(), inv.ID, StatusPaid, "")
	require.NoError(t, err)
	require.False(t, first)
	require.Len(t, f.ledger.posted, 1)

	_, _, err = f.svc.MarkInvoicePayment(context.Background(), inv.ID, StatusDraft, "")
	require.ErrorIs(t, err, ErrAlreadySettled)

	_, _, err = f.svc.MarkInvoicePayment(context.Background(), inv.ID, "refunded", "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, _, err = f.svc.MarkInvoicePayment(context.Background(), uuid.New(), StatusPaid, "")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture()
	past := fixedNow.AddDate(0, 0, -3)
	future := fixedNow.AddDate(0, 0, 3)
	f.repo.invoices[uuid.New()] = Invoice{Status: StatusSent, DueDate: &past}
	f.repo.invoices[uuid.New()] = Invoice{Status: StatusSent, DueDate: &future}
	f.repo.invoices[uuid.New()] = Invoice{Status: StatusDraft, DueDate: &past}

	n, err := f.svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, 1, f.cache.bumps)

	n, err = f.svc.MarkOverdue(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 1, f.cache.bumps)
}

func TestMedicalInvoiceForAppointmentPostsAppointmentIncome(t *testing.T) {
	f := newFixture()
	appt := uuid.New()
	m, err := f.svc.CreateMedicalInvoice(context.Background(), MedicalInvoiceRequest{
		InvoiceNumber: AppointmentInvoiceNumber(fixedNow),
		PatientID:     uuid.New(),
		StoreID:       uuid.New(),
		AppointmentID: &appt,
		Subtotal:      dec("150"),
		TaxRate:       dec("8"),
		PaymentStatus: MedicalPaid,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	require.Equal(t, "INV-APT-1717228800000", m.InvoiceNumber)
	require.Equal(t, "162.00", m.Total.StringFixed(2))
	require.Equal(t, "12.00", m.TaxAmount.StringFixed(2))
	require.Len(t, f.ledger.posted, 1)
	require.Equal(t, accounting.SourceAppointment, f.ledger.posted[0].SourceType)
}

func TestMedicalInvoicePendingThenPaid(t *testing.T) {
	f := newFixture()
	m, err := f.svc.CreateMedicalInvoice(context.Background(), MedicalInvoiceRequest{
		PatientID: uuid.New(), StoreID: uuid.New(), Subtotal: dec("60"), PaymentMethod: "insurance",
	})
	require.NoError(t, err)
	require.Equal(t, MedicalPending, m.PaymentStatus)
	require.True(t, strings.HasPrefix(m.InvoiceNumber, "MED-"))
	require.Empty(t, f.ledger.posted)

	paid, first, err := f.svc.MarkMedicalInvoicePayment(context.Background(), m.ID, "", "card")
	require.NoError(t, err)
	require.True(t, first)
	require.Equal(t, MedicalPaid, paid.PaymentStatus)
	require.Equal(t, accounting.SourceMedicalInvoice, f.ledger.posted[0].SourceType)
}

func TestParseLegacyPatientRef(t *testing.T) {
	id := uuid.New()
	got, cleaned, ok := ParseLegacyPatientRef("PATIENT_ID:" + id.String() + "|Progressive lenses")
	require.True(t, ok)
	require.Equal(t, id, *got)
	require.Equal(t, "Progressive lenses", cleaned)

	got, cleaned, ok = ParseLegacyPatientRef("PATIENT_ID:not-a-uuid|x")
	require.True(t, ok)
	require.Nil(t, got)
	require.Equal(t, "x", cleaned)

	_, cleaned, ok = ParseLegacyPatientRef("plain notes")
	require.False(t, ok)
	require.Equal(t, "plain notes", cleaned)
}

func TestClassifyLegacy(t *testing.T) {
	require.Equal(t, DirectionExpenditure, ClassifyLegacy(SourceReorder, "", ""))
	require.Equal(t, DirectionExpenditure, ClassifyLegacy(SourceRegular, "Monthly RESTOCK", ""))
	require.Equal(t, DirectionExpenditure, ClassifyLegacy(SourceRegular, "", "Acme Supplier"))
	require.Equal(t, DirectionIncome, ClassifyLegacy(SourceRegular, "eye exam", "Jane"))
}

func TestBackfillLegacy(t *testing.T) {
	f := newFixture()
	patient := uuid.New()
	f.repo.patients[patient] = true
	income := DirectionIncome

	linked := uuid.New()
	f.repo.invoices[linked] = Invoice{ID: linked, Source: SourceRegular, Notes: "PATIENT_ID:" + patient.String() + "|frames"}
	supplier := uuid.New()
	f.repo.invoices[supplier] = Invoice{ID: supplier, Source: SourceRegular, Notes: "purchase from supplier"}
	dangling := uuid.New()
	f.repo.invoices[dangling] = Invoice{ID: dangling, Source: SourceRegular, Direction: &income, Notes: "PATIENT_ID:" + uuid.NewString() + "|"}
	untouched := uuid.New()
	f.repo.invoices[untouched] = Invoice{ID: untouched, Source: SourceRegular, Direction: &income}

	report, err := f.svc.BackfillLegacy(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 3, report.Scanned)
	require.Equal(t, 1, report.PatientsLinked)
	require.Equal(t, 1, report.Unresolved)
	require.Equal(t, 2, report.Classified)
	require.Equal(t, 1, report.Expenditures)

	require.Equal(t, patient, *f.repo.invoices[linked].PatientID)
	require.Equal(t, "frames", f.repo.invoices[linked].Notes)
	require.Equal(t, DirectionIncome, *f.repo.invoices[linked].Direction)
	require.Equal(t, DirectionExpenditure, *f.repo.invoices[supplier].Direction)
	require.Nil(t, f.repo.invoices[dangling].PatientID)
	require.Empty(t, f.repo.invoices[dangling].Notes)

	report, err = f.svc.BackfillLegacy(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, report.Scanned)
}

func TestBackfillStopsOnTxError(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.repo.invoices[id] = Invoice{ID: id, Source: SourceRegular}
	f.repo.failTx = errors.New("boom")
	_, err := f.svc.BackfillLegacy(context.Background(), 10)
	require.Error(t, err)
}

func TestHandlerCreateInvoice(t *testing.T) {
	f := newFixture()
	h := NewHandler(nil, f.svc)
	r := chi.NewRouter()
	r.Route("/api/invoices", h.MountInvoiceRoutes)
	r.Route("/api/expenditures", h.MountExpenditureRoutes)

	body := `{"store_id":"` + uuid.NewString() + `","items":[{"product_name":"Frame","quantity":2,"unit_price":"50","total":"100"}],"tax_rate":"8.5","discount_amount":"10","payment_method":"cash"}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
	var inv Invoice
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &inv))
	require.Equal(t, StatusPaid, inv.Status)
	require.True(t, inv.Total.Equal(dec("98.5")))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/invoices/"+inv.ID.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)

	bad := `{"store_id":"` + uuid.NewString() + `","items":[{"product_name":"Frame","quantity":2,"unit_price":"50","total":"90"}]}`
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(bad)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(`{"store_id":"`+uuid.NewString()+`","items":[]}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/expenditures", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())
}
