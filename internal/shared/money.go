package shared

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to cents.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// PercentOf returns round2(base * rate / 100).
func PercentOf(base, rate decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(rate).Div(hundred))
}
