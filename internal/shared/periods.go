package shared

import "time"

// FiscalPeriod identifies a calendar-month accounting period.
type FiscalPeriod struct {
	Year   int
	Period int
}

// FiscalPeriodOf derives the fiscal year and month period of t in UTC.
func FiscalPeriodOf(t time.Time) FiscalPeriod {
	t = t.UTC()
	return FiscalPeriod{Year: t.Year(), Period: int(t.Month())}
}
