package payments

import (
	"bytes"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const exportSheet = "Payments"

var exportHeader = []string{"ID", "Reference", "Date", "Counterparty", "Type", "Source", "Method", "Status", "Amount"}

// WriteXLSX renders records as a single-sheet workbook with income and
// expenditure totals below the rows.
func WriteXLSX(records []Record, lang language.Tag) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	for c, v := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellValue(exportSheet, cell, v); err != nil {
			return nil, err
		}
	}

	income, expenditure := decimal.Zero, decimal.Zero
	for i, rec := range records {
		row := i + 2
		amount := rec.Amount.InexactFloat64()
		if rec.Type == TypeExpenditure {
			expenditure = expenditure.Add(rec.Amount)
			amount = -amount
		} else {
			income = income.Add(rec.Amount)
		}
		values := []any{
			rec.ID,
			rec.ReferenceNumber,
			rec.PaymentDate.Format("2006-01-02 15:04"),
			rec.Counterparty,
			string(rec.Type),
			string(rec.Source),
			rec.PaymentMethod,
			rec.Status,
			amount,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	summary := len(records) + 3
	for i, line := range []struct {
		label string
		total decimal.Decimal
	}{
		{"Income", income},
		{"Expenditure", expenditure},
		{"Net", income.Sub(expenditure)},
	} {
		label, _ := excelize.CoordinatesToCellName(8, summary+i)
		value, _ := excelize.CoordinatesToCellName(9, summary+i)
		if err := f.SetCellValue(exportSheet, label, line.label); err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, value, line.total.Round(2).InexactFloat64()); err != nil {
			return nil, err
		}
	}
	count, _ := excelize.CoordinatesToCellName(8, summary+3)
	if err := f.SetCellValue(exportSheet, count, message.NewPrinter(lang).Sprintf("%d payments", len(records))); err != nil {
		return nil, err
	}

	for _, w := range []struct {
		from, to string
		width    float64
	}{
		{"A", "A", 42}, {"B", "B", 26}, {"C", "C", 18}, {"D", "D", 28}, {"E", "H", 16}, {"I", "I", 14},
	} {
		if err := f.SetColWidth(exportSheet, w.from, w.to, w.width); err != nil {
			return nil, err
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, "A1", "I1", header); err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(exportSheet, "I2", "I"+strconv.Itoa(summary+2), money); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
