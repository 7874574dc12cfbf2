package payments

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/opticlinic/opticlinic/internal/platform/cache"
)

// SourcePort is the read side the aggregator merges.
type SourcePort interface {
	ListInvoiceRows(ctx context.Context, storeID *uuid.UUID) ([]InvoiceRow, error)
	ListMedicalRows(ctx context.Context, storeID *uuid.UUID) ([]MedicalRow, error)
	ListSaleRows(ctx context.Context, storeID *uuid.UUID) ([]SaleRow, error)
}

// Aggregator projects invoices, medical invoices and sales into one payment
// listing. It never writes.
type Aggregator struct {
	src   SourcePort
	cache *cache.Versioned
	now   func() time.Time
}

// NewAggregator wires the sources with an optional versioned cache.
func NewAggregator(src SourcePort, c *cache.Versioned) *Aggregator {
	return &Aggregator{src: src, cache: c, now: time.Now}
}

func (a *Aggregator) WithNow(now func() time.Time) {
	if now != nil {
		a.now = now
	}
}

// List returns the merged records, newest payment first.
func (a *Aggregator) List(ctx context.Context, filter Filter) ([]Record, error) {
	key, err := a.cache.BuildKey(ctx, "list", filter.key())
	if err != nil {
		return nil, err
	}
	var out []Record
	if err := a.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return a.collect(ctx, filter)
	}); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

func (a *Aggregator) collect(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		invoices []InvoiceRow
		medical  []MedicalRow
		sales    []SaleRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = a.src.ListInvoiceRows(gctx, filter.StoreID)
		return err
	})
	g.Go(func() error {
		var err error
		medical, err = a.src.ListMedicalRows(gctx, filter.StoreID)
		return err
	})
	g.Go(func() error {
		var err error
		sales, err = a.src.ListSaleRows(gctx, filter.StoreID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := a.now().UTC()
	records := make([]Record, 0, len(invoices)+len(medical)+len(sales))
	for _, row := range invoices {
		records = append(records, fromInvoice(row, now))
	}
	for _, row := range medical {
		records = append(records, fromMedical(row, now))
	}
	for _, row := range sales {
		records = append(records, fromSale(row, now))
	}

	out := records[:0]
	for _, r := range records {
		if filter.match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.After(out[j].PaymentDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func fromInvoice(row InvoiceRow, now time.Time) Record {
	rec := Record{
		ID:              PrefixInvoice + "-" + row.ID.String(),
		SourceID:        row.ID,
		ReferenceNumber: row.InvoiceNumber,
		Counterparty:    invoiceCounterparty(row),
		Amount:          row.Total,
		PaymentMethod:   row.PaymentMethod,
		PaymentDate:     dateOr(row.PaymentDate, now),
		Status:          row.Status,
		StoreID:         row.StoreID,
		Source:          SourceRegularInvoice,
		Type:            TypeIncome,
	}
	if row.Direction != nil && Type(*row.Direction) == TypeExpenditure {
		rec.Source = SourceExpenditure
		rec.Type = TypeExpenditure
	}
	return rec
}

func fromMedical(row MedicalRow, now time.Time) Record {
	name := UnknownCustomer
	if row.PatientName != nil {
		name = *row.PatientName
	}
	return Record{
		ID:              PrefixMedical + "-" + row.ID.String(),
		SourceID:        row.ID,
		ReferenceNumber: row.InvoiceNumber,
		Counterparty:    name,
		Amount:          row.Total,
		PaymentMethod:   row.PaymentMethod,
		PaymentDate:     dateOr(row.PaymentDate, now),
		Status:          row.PaymentStatus,
		StoreID:         row.StoreID,
		Source:          SourceMedicalInvoice,
		Type:            TypeIncome,
	}
}

func fromSale(row SaleRow, now time.Time) Record {
	name := GuestCustomer
	switch {
	case row.CustomerName != nil:
		name = *row.CustomerName
	case row.CustomerID != nil:
		name = UnknownCustomer
	}
	return Record{
		ID:              PrefixSale + "-" + row.ID.String(),
		SourceID:        row.ID,
		ReferenceNumber: row.SaleNumber,
		Counterparty:    name,
		Amount:          row.Total,
		PaymentMethod:   row.PaymentMethod,
		PaymentDate:     dateOr(row.CreatedAt, now),
		Status:          row.PaymentStatus,
		StoreID:         row.StoreID,
		Source:          SourceQuickSale,
		Type:            TypeIncome,
	}
}

// invoiceCounterparty prefers the patient, then the customer, then the free
// text supplier name.
func invoiceCounterparty(row InvoiceRow) string {
	switch {
	case row.PatientName != nil:
		return *row.PatientName
	case row.CustomerName != nil:
		return *row.CustomerName
	case row.CounterpartyName != "":
		return row.CounterpartyName
	case row.PatientID == nil && row.CustomerID == nil:
		return GuestCustomer
	default:
		return UnknownCustomer
	}
}

func dateOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return t.UTC()
}
