package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmaged/salesbook/internal/models"
)

// DailySalesRow is one calendar-date bucket of the daily series. Dates with
// no invoices still appear, zero-filled.
type DailySalesRow struct {
	Date          time.Time
	InvoiceCount  int
	TotalQuantity decimal.Decimal
	TotalAmount   decimal.Decimal
	TotalProfit   decimal.Decimal
}

// MonthlySalesRow is one of the twelve month buckets of a single-year
// series. GrowthPct compares the bucket's amount to the previous month.
type MonthlySalesRow struct {
	Month         time.Month
	InvoiceCount  int
	TotalAmount   decimal.Decimal
	TotalProfit   decimal.Decimal
	AverageAmount decimal.Decimal
	GrowthPct     decimal.Decimal
}

func invoiceProfit(inv models.Invoice) decimal.Decimal {
	p := decimal.Zero
	for _, it := range inv.Items {
		p = p.Add(it.UnitPrice.Sub(it.OriginalUnitPrice).Mul(it.Quantity))
	}
	return p
}

// DailySales buckets completed invoices by invoice date (not creation date)
// and emits one row per day of the requested range, ascending. Absent bounds
// fall back to the earliest and latest invoice dates in the snapshot; an
// empty snapshot with no bounds yields an empty series.
func DailySales(invoices []models.Invoice, f Filter) ([]DailySalesRow, error) {
	set := completed(invoices, f)

	buckets := make(map[time.Time]*DailySalesRow)
	var minDay, maxDay time.Time
	for _, inv := range set {
		day := dateOnly(inv.InvoiceDate)
		row, ok := buckets[day]
		if !ok {
			row = &DailySalesRow{
				Date:          day,
				TotalQuantity: decimal.Zero,
				TotalAmount:   decimal.Zero,
				TotalProfit:   decimal.Zero,
			}
			buckets[day] = row
		}
		row.InvoiceCount++
		row.TotalAmount = row.TotalAmount.Add(inv.FinalAmount)
		row.TotalProfit = row.TotalProfit.Add(invoiceProfit(inv))
		for _, it := range inv.Items {
			row.TotalQuantity = row.TotalQuantity.Add(it.Quantity)
		}
		if minDay.IsZero() || day.Before(minDay) {
			minDay = day
		}
		if maxDay.IsZero() || day.After(maxDay) {
			maxDay = day
		}
	}

	start, end := minDay, maxDay
	if f.From != nil {
		start = dateOnly(*f.From)
	}
	if f.To != nil {
		end = dateOnly(*f.To)
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return []DailySalesRow{}, nil
	}

	rows := make([]DailySalesRow, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if row, ok := buckets[day]; ok {
			rows = append(rows, *row)
		} else {
			rows = append(rows, DailySalesRow{
				Date:          day,
				TotalQuantity: decimal.Zero,
				TotalAmount:   decimal.Zero,
				TotalProfit:   decimal.Zero,
			})
		}
	}
	return rows, nil
}

// MonthlySales returns exactly twelve buckets, January through December, for
// the given year. Growth for a month is relative to the previous month's
// amount: 100 when the previous month was zero and the current is positive,
// 0 when both are zero, and always 0 for January.
func MonthlySales(invoices []models.Invoice, year int) ([]MonthlySalesRow, error) {
	rows := make([]MonthlySalesRow, 12)
	for i := range rows {
		rows[i] = MonthlySalesRow{
			Month:         time.Month(i + 1),
			TotalAmount:   decimal.Zero,
			TotalProfit:   decimal.Zero,
			AverageAmount: decimal.Zero,
			GrowthPct:     decimal.Zero,
		}
	}
	for _, inv := range completed(invoices, Filter{}) {
		if inv.InvoiceDate.Year() != year {
			continue
		}
		i := int(inv.InvoiceDate.Month()) - 1
		rows[i].InvoiceCount++
		rows[i].TotalAmount = rows[i].TotalAmount.Add(inv.FinalAmount)
		rows[i].TotalProfit = rows[i].TotalProfit.Add(invoiceProfit(inv))
	}
	hundred := decimal.NewFromInt(100)
	for i := range rows {
		if rows[i].InvoiceCount > 0 {
			rows[i].AverageAmount = rows[i].TotalAmount.Div(decimal.NewFromInt(int64(rows[i].InvoiceCount)))
		}
		if i == 0 {
			continue
		}
		prev := rows[i-1].TotalAmount
		cur := rows[i].TotalAmount
		switch {
		case prev.IsZero() && cur.IsPositive():
			rows[i].GrowthPct = hundred
		case prev.IsZero():
			rows[i].GrowthPct = decimal.Zero
		default:
			rows[i].GrowthPct = cur.Sub(prev).Div(prev).Mul(hundred)
		}
	}
	return rows, nil
}
