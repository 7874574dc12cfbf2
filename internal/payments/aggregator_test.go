package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"

	"github.com/opticlinic/opticlinic/internal/platform/cache"
)

type memorySource struct {
	invoices []InvoiceRow
	medical  []MedicalRow
	sales    []SaleRow
	calls    int
}

func (s *memorySource) ListInvoiceRows(_ context.Context, storeID *uuid.UUID) ([]InvoiceRow, error) {
	s.calls++
	out := make([]InvoiceRow, 0)
	for _, r := range s.invoices {
		if storeID == nil || r.StoreID == *storeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memorySource) ListMedicalRows(_ context.Context, storeID *uuid.UUID) ([]MedicalRow, error) {
	out := make([]MedicalRow, 0)
	for _, r := range s.medical {
		if storeID == nil || r.StoreID == *storeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memorySource) ListSaleRows(_ context.Context, storeID *uuid.UUID) ([]SaleRow, error) {
	out := make([]SaleRow, 0)
	for _, r := range s.sales {
		if storeID == nil || r.StoreID == *storeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func fixedNow() time.Time {
	return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func at(hour int) *time.Time {
	t := time.Date(2024, time.May, 30, hour, 0, 0, 0, time.UTC)
	return &t
}

type fixture struct {
	store          uuid.UUID
	otherStore     uuid.UUID
	patientInv     uuid.UUID
	guestInv       uuid.UUID
	missingInv     uuid.UUID
	expenditureInv uuid.UUID
	medical        uuid.UUID
	sale           uuid.UUID
	anonymousSale  uuid.UUID
}

func seed() (*memorySource, fixture) {
	fx := fixture{
		store: uuid.New(), otherStore: uuid.New(),
		patientInv: uuid.New(), guestInv: uuid.New(), missingInv: uuid.New(), expenditureInv: uuid.New(),
		medical: uuid.New(), sale: uuid.New(), anonymousSale: uuid.New(),
	}
	income, expenditure := "income", "expenditure"
	src := &memorySource{
		invoices: []InvoiceRow{
			{ID: fx.patientInv, InvoiceNumber: "INV-1", StoreID: fx.store, PatientID: ptr(uuid.New()), PatientName: ptr("Ana Diaz"), CustomerID: ptr(uuid.New()), CustomerName: ptr("Other"), Direction: &income, Total: decimal.RequireFromString("98.50"), Status: "paid", PaymentMethod: "cash", PaymentDate: at(9)},
			{ID: fx.guestInv, InvoiceNumber: "INV-2", StoreID: fx.store, Direction: &income, Total: decimal.NewFromInt(40), Status: "draft", PaymentMethod: "card"},
			{ID: fx.missingInv, InvoiceNumber: "INV-3", StoreID: fx.store, CustomerID: ptr(uuid.New()), Total: decimal.NewFromInt(10), Status: "sent", PaymentDate: at(8)},
			{ID: fx.expenditureInv, InvoiceNumber: "EXP-1", StoreID: fx.otherStore, CounterpartyName: "Zeiss", Direction: &expenditure, Total: decimal.NewFromInt(300), Status: "paid", PaymentDate: at(10)},
		},
		medical: []MedicalRow{
			{ID: fx.medical, InvoiceNumber: "MED-1", StoreID: fx.store, PatientID: uuid.New(), PatientName: ptr("Ben Ito"), Total: decimal.NewFromInt(162), PaymentStatus: "paid", PaymentDate: at(10)},
		},
		sales: []SaleRow{
			{ID: fx.sale, SaleNumber: "SALE-1", StoreID: fx.store, CustomerID: ptr(uuid.New()), CustomerName: ptr("Cy Moss"), Total: decimal.NewFromInt(55), PaymentStatus: "paid", CreatedAt: at(7)},
			{ID: fx.anonymousSale, SaleNumber: "SALE-2", StoreID: fx.otherStore, Total: decimal.NewFromInt(12), PaymentStatus: "paid", CreatedAt: at(7)},
		},
	}
	return src, fx
}

func byID(records []Record) map[string]Record {
	out := make(map[string]Record, len(records))
	for _, r := range records {
		out[r.ID] = r
	}
	return out
}

func TestListClassifiesAndNamesCounterparties(t *testing.T) {
	src, fx := seed()
	agg := NewAggregator(src, nil)
	agg.WithNow(fixedNow)

	records, err := agg.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, records, 7)
	got := byID(records)

	patient := got["inv-"+fx.patientInv.String()]
	require.Equal(t, "Ana Diaz", patient.Counterparty)
	require.Equal(t, SourceRegularInvoice, patient.Source)
	require.Equal(t, TypeIncome, patient.Type)
	require.Equal(t, fx.patientInv, patient.SourceID)

	require.Equal(t, GuestCustomer, got["inv-"+fx.guestInv.String()].Counterparty)
	require.Equal(t, UnknownCustomer, got["inv-"+fx.missingInv.String()].Counterparty)
	require.Equal(t, TypeIncome, got["inv-"+fx.missingInv.String()].Type)

	exp := got["inv-"+fx.expenditureInv.String()]
	require.Equal(t, "Zeiss", exp.Counterparty)
	require.Equal(t, SourceExpenditure, exp.Source)
	require.Equal(t, TypeExpenditure, exp.Type)

	med := got["pay-"+fx.medical.String()]
	require.Equal(t, SourceMedicalInvoice, med.Source)
	require.Equal(t, "Ben Ito", med.Counterparty)

	require.Equal(t, SourceQuickSale, got["sale-"+fx.sale.String()].Source)
	require.Equal(t, "Cy Moss", got["sale-"+fx.sale.String()].Counterparty)
	require.Equal(t, GuestCustomer, got["sale-"+fx.anonymousSale.String()].Counterparty)
}

func TestListSortsByDateDescendingWithStableTies(t *testing.T) {
	src, fx := seed()
	agg := NewAggregator(src, nil)
	agg.WithNow(fixedNow)

	records, err := agg.List(context.Background(), Filter{})
	require.NoError(t, err)

	// undated rows fall back to the call time, which is newest
	require.Equal(t, "inv-"+fx.guestInv.String(), records[0].ID)
	require.Equal(t, fixedNow(), records[0].PaymentDate)
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		require.False(t, cur.PaymentDate.After(prev.PaymentDate))
		if cur.PaymentDate.Equal(prev.PaymentDate) {
			require.Less(t, prev.ID, cur.ID)
		}
	}
}

func TestListIsIdempotent(t *testing.T) {
	src, _ := seed()
	agg := NewAggregator(src, nil)
	agg.WithNow(fixedNow)

	first, err := agg.List(context.Background(), Filter{})
	require.NoError(t, err)
	second, err := agg.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		require.Equal(t, first[i].ID, second[i].ID)
		require.True(t, first[i].Amount.Equal(second[i].Amount))
		require.Equal(t, first[i].Source, second[i].Source)
		require.Equal(t, first[i].Type, second[i].Type)
	}
}

func TestListFilters(t *testing.T) {
	src, fx := seed()
	agg := NewAggregator(src, nil)
	agg.WithNow(fixedNow)
	ctx := context.Background()

	records, err := agg.List(ctx, Filter{Type: TypeExpenditure})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "inv-"+fx.expenditureInv.String(), records[0].ID)

	records, err = agg.List(ctx, Filter{StoreID: &fx.otherStore})
	require.NoError(t, err)
	require.Len(t, records, 2)

	records, err = agg.List(ctx, Filter{Source: SourceQuickSale, StoreID: &fx.store})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "sale-"+fx.sale.String(), records[0].ID)

	records, err = agg.List(ctx, Filter{Source: SourceMedicalInvoice, Type: TypeExpenditure})
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Empty(t, records)
}

func TestListReadsThroughVersionedCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewVersioned(client, "payments", time.Minute)

	src, _ := seed()
	agg := NewAggregator(src, c)
	agg.WithNow(fixedNow)
	ctx := context.Background()

	first, err := agg.List(ctx, Filter{})
	require.NoError(t, err)
	src.invoices = src.invoices[:1]
	cached, err := agg.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, cached, len(first))
	require.Equal(t, 1, src.calls)
	require.True(t, mr.Exists("payments:list:-,-,-:1"))

	require.NoError(t, c.Bump(ctx))
	fresh, err := agg.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, fresh, 4)
	require.Equal(t, 2, src.calls)
}

func TestWriteXLSX(t *testing.T) {
	src, _ := seed()
	agg := NewAggregator(src, nil)
	agg.WithNow(fixedNow)
	records, err := agg.List(context.Background(), Filter{})
	require.NoError(t, err)

	data, err := WriteXLSX(records, language.English)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Equal(t, exportHeader, rows[0])
	require.Equal(t, records[0].ID, rows[1][0])

	netCell := "I" + strconv.Itoa(len(records)+5)
	net, err := f.GetCellValue(exportSheet, netCell)
	require.NoError(t, err)
	require.Equal(t, "77.50", net)
	raw, err := f.GetCellValue(exportSheet, netCell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Equal(t, "77.5", raw)
	amount, err := strconv.ParseFloat(raw, 64)
	require.NoError(t, err)
	require.InDelta(t, 77.5, amount, 0.001)

	count, err := f.GetCellValue(exportSheet, "H"+strconv.Itoa(len(records)+6))
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(len(records))+" payments", count)
}

func TestHandlerListAndExport(t *testing.T) {
	src, _ := seed()
	agg := NewAggregator(src, nil)
	agg.WithNow(fixedNow)
	h := NewHandler(nil, agg, nil)
	r := chi.NewRouter()
	r.Route("/api/payments", h.MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/payments?type=income", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var records []Record
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	require.Len(t, records, 6)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/payments?source=refund", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/payments/export.xlsx", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Disposition"), ".xlsx")
}
