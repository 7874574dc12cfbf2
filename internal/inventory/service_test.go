package inventory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/opticlinic/opticlinic/internal/billing"
	"github.com/opticlinic/opticlinic/internal/shared"
)

type balanceKey struct {
	store, product uuid.UUID
}

type memoryRepo struct {
	products map[uuid.UUID]ProductRef
	levels   map[uuid.UUID]StockLevel
	balances map[balanceKey]Balance
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products: make(map[uuid.UUID]ProductRef),
		levels:   make(map[uuid.UUID]StockLevel),
		balances: make(map[balanceKey]Balance),
	}
}

func (r *memoryRepo) addProduct(name string, reorderLevel int) ProductRef {
	p := ProductRef{ID: uuid.New(), SKU: strings.ToUpper(name[:3]) + "-1", Name: name, CostPrice: decimal.NewFromInt(10), SupplierName: "Acme", IsActive: true}
	r.products[p.ID] = p
	r.levels[p.ID] = StockLevel{SKU: p.SKU, ProductName: name, ReorderLevel: reorderLevel}
	return p
}

// WithTx restores the snapshot when fn fails, mirroring a rollback.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	products := make(map[uuid.UUID]ProductRef, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	balances := make(map[balanceKey]Balance, len(r.balances))
	for k, v := range r.balances {
		balances[k] = v
	}
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.products, r.balances = products, balances
		return err
	}
	return nil
}

func (r *memoryRepo) ListStock(_ context.Context, filter StockFilter) ([]StockLevel, error) {
	out := make([]StockLevel, 0)
	for key, b := range r.balances {
		if filter.StoreID != nil && key.store != *filter.StoreID {
			continue
		}
		l := r.levels[key.product]
		l.Balance = b
		if filter.LowOnly && !l.Low() {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) GetProductForUpdate(_ context.Context, id uuid.UUID) (ProductRef, error) {
	p, ok := tx.repo.products[id]
	if !ok {
		return ProductRef{}, ErrProductNotFound
	}
	return p, nil
}

func (tx *memoryTx) UpdateProductCost(_ context.Context, id uuid.UUID, cost decimal.Decimal, supplier string) error {
	p, ok := tx.repo.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.CostPrice = cost
	if supplier != "" {
		p.SupplierName = supplier
	}
	tx.repo.products[id] = p
	return nil
}

func (tx *memoryTx) GetBalanceForUpdate(_ context.Context, storeID, productID uuid.UUID) (Balance, error) {
	b, ok := tx.repo.balances[balanceKey{storeID, productID}]
	if !ok {
		return Balance{}, ErrBalanceNotFound
	}
	return b, nil
}

func (tx *memoryTx) UpsertBalance(_ context.Context, b Balance) (Balance, error) {
	if b.Quantity < 0 {
		return Balance{}, errors.New("check constraint quantity >= 0")
	}
	tx.repo.balances[balanceKey{b.StoreID, b.ProductID}] = b
	return b, nil
}

type fakeExpenditures struct {
	invoices []billing.Invoice
	err      error
}

func (f *fakeExpenditures) CreateExpenditure(_ context.Context, in billing.ExpenditureInvoice) (billing.Invoice, error) {
	if f.err != nil {
		return billing.Invoice{}, f.err
	}
	lines, err := billing.BuildLines(in.Items)
	if err != nil {
		return billing.Invoice{}, err
	}
	totals, err := billing.ComputeTotals(lines, decimal.Zero, decimal.Zero)
	if err != nil {
		return billing.Invoice{}, err
	}
	dir := billing.DirectionExpenditure
	inv := billing.Invoice{
		ID:               uuid.New(),
		StoreID:          in.StoreID,
		Source:           in.Source,
		Direction:        &dir,
		CounterpartyName: in.Supplier,
		Status:           billing.StatusPaid,
		Total:            totals.Total,
		Items:            lines,
	}
	f.invoices = append(f.invoices, inv)
	return inv, nil
}

func fixedNow() time.Time {
	return time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
}

func newTestService() (*Service, *memoryRepo, *fakeExpenditures) {
	repo := newMemoryRepo()
	exp := &fakeExpenditures{}
	svc := NewService(repo, exp, nil)
	svc.WithNow(fixedNow)
	return svc, repo, exp
}

func TestReorderAddsExactlyQuantityAndOneInvoice(t *testing.T) {
	svc, repo, exp := newTestService()
	ctx := context.Background()
	store := uuid.New()
	lens := repo.addProduct("Lens Blank", 5)
	repo.balances[balanceKey{store, lens.ID}] = Balance{StoreID: store, ProductID: lens.ID, Quantity: 3, MinStock: 4}

	result, err := svc.Reorder(ctx, ReorderRequest{
		ProductID: lens.ID,
		StoreID:   store,
		Quantity:  12,
		UnitCost:  decimal.RequireFromString("7.255"),
		Supplier:  " Zeiss ",
	})
	require.NoError(t, err)
	require.Equal(t, 15, result.Balance.Quantity)
	require.Equal(t, 4, result.Balance.MinStock)
	require.NotNil(t, result.Balance.LastRestockedAt)
	require.Equal(t, fixedNow(), *result.Balance.LastRestockedAt)

	require.Len(t, exp.invoices, 1)
	inv := exp.invoices[0]
	require.Equal(t, billing.SourceReorder, inv.Source)
	require.True(t, inv.IsExpenditure())
	require.Equal(t, "Zeiss", inv.CounterpartyName)
	require.Len(t, inv.Items, 1)
	require.Equal(t, "87.12", inv.Total.StringFixed(2))

	p := repo.products[lens.ID]
	require.Equal(t, "7.26", p.CostPrice.StringFixed(2))
	require.Equal(t, "Zeiss", p.SupplierName)
}

func TestReorderCreatesMissingBalance(t *testing.T) {
	svc, repo, exp := newTestService()
	store := uuid.New()
	frame := repo.addProduct("Frame", 2)

	result, err := svc.Reorder(context.Background(), ReorderRequest{ProductID: frame.ID, StoreID: store, Quantity: 4, UnitCost: decimal.NewFromInt(20)})
	require.NoError(t, err)
	require.Equal(t, 4, result.Balance.Quantity)
	require.Equal(t, "Acme", exp.invoices[0].CounterpartyName)
}

func TestReorderRollsBackWhenInvoiceFails(t *testing.T) {
	svc, repo, exp := newTestService()
	store := uuid.New()
	lens := repo.addProduct("Lens", 1)
	repo.balances[balanceKey{store, lens.ID}] = Balance{StoreID: store, ProductID: lens.ID, Quantity: 2}
	exp.err = errors.New("ledger unavailable")

	_, err := svc.Reorder(context.Background(), ReorderRequest{ProductID: lens.ID, StoreID: store, Quantity: 10, UnitCost: decimal.NewFromInt(99)})
	require.Error(t, err)
	require.Equal(t, 2, repo.balances[balanceKey{store, lens.ID}].Quantity)
	require.Equal(t, "10", repo.products[lens.ID].CostPrice.String())
	require.Empty(t, exp.invoices)
}

func TestReorderValidation(t *testing.T) {
	svc, repo, _ := newTestService()
	store := uuid.New()
	p := repo.addProduct("Case", 0)

	_, err := svc.Reorder(context.Background(), ReorderRequest{ProductID: p.ID, StoreID: store, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Reorder(context.Background(), ReorderRequest{ProductID: p.ID, StoreID: store, Quantity: 1, UnitCost: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	_, err = svc.Reorder(context.Background(), ReorderRequest{ProductID: uuid.New(), StoreID: store, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)

	inactive := repo.products[p.ID]
	inactive.IsActive = false
	repo.products[p.ID] = inactive
	_, err = svc.Reorder(context.Background(), ReorderRequest{ProductID: p.ID, StoreID: store, Quantity: 1})
	require.ErrorIs(t, err, ErrInactiveProduct)
}

func TestBulkReorderWritesOneCompoundInvoice(t *testing.T) {
	svc, repo, exp := newTestService()
	store := uuid.New()
	a := repo.addProduct("Frame", 2)
	b := repo.addProduct("Solution", 10)
	repo.balances[balanceKey{store, b.ID}] = Balance{StoreID: store, ProductID: b.ID, Quantity: 1}

	result, err := svc.BulkReorder(context.Background(), BulkReorderRequest{
		StoreID:  store,
		Supplier: "Bausch",
		Items: []BulkItem{
			{ProductID: a.ID, Quantity: 5, UnitCost: decimal.NewFromInt(30)},
			{ProductID: b.ID, Quantity: 24, UnitCost: decimal.RequireFromString("4.50")},
		},
	})
	require.NoError(t, err)
	require.Len(t, exp.invoices, 1)
	require.Equal(t, billing.SourceBulkReorder, result.Invoice.Source)
	require.Len(t, result.Invoice.Items, 2)
	require.Equal(t, "258.00", result.Invoice.Total.StringFixed(2))
	require.Equal(t, 5, repo.balances[balanceKey{store, a.ID}].Quantity)
	require.Equal(t, 25, repo.balances[balanceKey{store, b.ID}].Quantity)

	_, err = svc.BulkReorder(context.Background(), BulkReorderRequest{
		StoreID: store,
		Items:   []BulkItem{{ProductID: a.ID, Quantity: 1}, {ProductID: a.ID, Quantity: 2}},
	})
	require.ErrorIs(t, err, ErrDuplicateProduct)
}

func TestBulkReorderRollsBackEveryProduct(t *testing.T) {
	svc, repo, exp := newTestService()
	store := uuid.New()
	a := repo.addProduct("Frame", 2)

	_, err := svc.BulkReorder(context.Background(), BulkReorderRequest{
		StoreID: store,
		Items:   []BulkItem{{ProductID: a.ID, Quantity: 5}, {ProductID: uuid.New(), Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Empty(t, repo.balances)
	require.Empty(t, exp.invoices)
}

func TestAdjustGuardsNegativeStock(t *testing.T) {
	svc, repo, _ := newTestService()
	store := uuid.New()
	p := repo.addProduct("Cloth", 0)
	repo.balances[balanceKey{store, p.ID}] = Balance{StoreID: store, ProductID: p.ID, Quantity: 3}

	b, err := svc.Adjust(context.Background(), AdjustRequest{StoreID: store, ProductID: p.ID, Delta: -2})
	require.NoError(t, err)
	require.Equal(t, 1, b.Quantity)

	_, err = svc.Adjust(context.Background(), AdjustRequest{StoreID: store, ProductID: p.ID, Delta: -2})
	require.ErrorIs(t, err, ErrNegativeStock)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, 1, repo.balances[balanceKey{store, p.ID}].Quantity)

	minStock := 6
	b, err = svc.Adjust(context.Background(), AdjustRequest{StoreID: store, ProductID: p.ID, MinStock: &minStock})
	require.NoError(t, err)
	require.Equal(t, 6, b.MinStock)

	_, err = svc.Adjust(context.Background(), AdjustRequest{StoreID: store, ProductID: p.ID})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSuggestionsUseLargerThreshold(t *testing.T) {
	svc, repo, _ := newTestService()
	store := uuid.New()
	low := repo.addProduct("Drops", 4)
	ok := repo.addProduct("Frame", 1)
	repo.balances[balanceKey{store, low.ID}] = Balance{StoreID: store, ProductID: low.ID, Quantity: 3, MinStock: 6}
	repo.balances[balanceKey{store, ok.ID}] = Balance{StoreID: store, ProductID: ok.ID, Quantity: 8}

	items, err := svc.Suggestions(context.Background(), &store, shared.Page{Limit: 50})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, low.ID, items[0].ProductID)
	require.Equal(t, 9, items[0].SuggestedQuantity)
}

func TestHandlerReorderRoutes(t *testing.T) {
	svc, repo, exp := newTestService()
	store := uuid.New()
	p := repo.addProduct("Lens", 3)
	h := NewHandler(nil, svc)
	r := chi.NewRouter()
	r.Route("/api/products", h.MountReorderRoutes)
	r.Route("/api/inventory", h.MountRoutes)

	body := `{"product_id":"` + p.ID.String() + `","store_id":"` + store.String() + `","quantity":6,"unit_cost":"12.00"}`
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/products/reorder", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Contains(t, rr.Body.String(), `"source":"reorder"`)
	require.Len(t, exp.invoices, 1)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/products/reorder", strings.NewReader(`{"store_id":"`+store.String()+`","quantity":0}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	body = `{"store_id":"` + store.String() + `","product_id":"` + p.ID.String() + `","delta":-7}`
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/inventory/adjust", strings.NewReader(body)))
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/inventory?store_id="+store.String(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"quantity":6`)
}
