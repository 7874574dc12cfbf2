package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/opticlinic/opticlinic/internal/shared"
)

// lineTolerance is how far a client-supplied line total may drift from the
// computed value.
var lineTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// Totals holds the computed invoice amounts.
type Totals struct {
	Subtotal       decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// BuildLines validates the requested items and returns the stored lines.
func BuildLines(items []ItemInput) ([]LineItem, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	lines := make([]LineItem, 0, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.ProductName)
		switch {
		case name == "":
			return nil, shared.Validationf("item %d: product_name is required", i+1)
		case item.Quantity <= 0:
			return nil, shared.Validationf("item %d: quantity must be positive", i+1)
		case item.UnitPrice.IsNegative():
			return nil, shared.Validationf("item %d: unit_price must not be negative", i+1)
		case item.Discount.IsNegative():
			return nil, shared.Validationf("item %d: discount must not be negative", i+1)
		}
		total := shared.Round2(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Sub(item.Discount))
		if total.IsNegative() {
			return nil, shared.Validationf("item %d: discount exceeds line value", i+1)
		}
		if item.Total != nil && item.Total.Sub(total).Abs().GreaterThan(lineTolerance) {
			return nil, fmt.Errorf("%w (item %d: got %s, want %s)", ErrLineTotalMismatch, i+1, item.Total.StringFixed(2), total.StringFixed(2))
		}
		lines = append(lines, LineItem{
			ProductID:   item.ProductID,
			ProductName: name,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   shared.Round2(item.UnitPrice),
			Discount:    shared.Round2(item.Discount),
			Total:       total,
		})
	}
	return lines, nil
}

// ComputeTotals applies subtotal = sum of lines, tax = round2(subtotal*rate/100)
// and total = subtotal + tax - discount.
func ComputeTotals(lines []LineItem, taxRate, discount decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return Totals{}, shared.Validationf("tax_rate must be between 0 and 100")
	}
	if discount.IsNegative() {
		return Totals{}, shared.Validationf("discount_amount must not be negative")
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total)
	}
	return computeFromSubtotal(subtotal, taxRate, discount)
}

func computeFromSubtotal(subtotal, taxRate, discount decimal.Decimal) (Totals, error) {
	t := Totals{
		Subtotal:       shared.Round2(subtotal),
		TaxRate:        taxRate,
		TaxAmount:      shared.PercentOf(subtotal, taxRate),
		DiscountAmount: shared.Round2(discount),
	}
	t.Total = t.Subtotal.Add(t.TaxAmount).Sub(t.DiscountAmount)
	if t.Total.IsNegative() {
		return Totals{}, ErrNegativeTotal
	}
	return t, nil
}
