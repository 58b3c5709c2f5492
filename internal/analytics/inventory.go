package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmaged/salesbook/internal/models"
)

// TrendClass labels recent sales velocity against the trailing average.
type TrendClass string

const (
	TrendIncreasing TrendClass = "increasing"
	TrendDecreasing TrendClass = "decreasing"
	TrendStable     TrendClass = "stable"
	TrendNew        TrendClass = "new"
	TrendNoSales    TrendClass = "no sales"
)

// InventoryRow reports lifetime and recent sales velocity for one active
// product.
type InventoryRow struct {
	ProductID           uint
	ProductName         string
	SKU                 string
	Category            string
	LifetimeQuantity    decimal.Decimal
	LifetimeAmount      decimal.Decimal
	Last30Quantity      decimal.Decimal
	Last90Quantity      decimal.Decimal
	AverageMonthlySales decimal.Decimal // Last90Quantity / 3
	Trend               TrendClass
}

var (
	twenty        = decimal.NewFromInt(20)
	minusTwenty   = decimal.NewFromInt(-20)
	three         = decimal.NewFromInt(3)
	oneHundredPct = decimal.NewFromInt(100)
)

// ClassifyTrend compares the last-30-day quantity against the trailing
// monthly average. The 20% band is inclusive: exactly 20% above the average
// is still stable.
func ClassifyTrend(last30, avgMonthly decimal.Decimal) TrendClass {
	if avgMonthly.IsZero() {
		if last30.IsPositive() {
			return TrendNew
		}
		return TrendNoSales
	}
	deviation := last30.Sub(avgMonthly).Div(avgMonthly).Mul(oneHundredPct)
	switch {
	case deviation.GreaterThan(twenty):
		return TrendIncreasing
	case deviation.LessThan(minusTwenty):
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// InventoryVelocity builds one row per active product from the completed
// invoice snapshot, with 30- and 90-day windows ending at asOf (inclusive).
// Rows are sorted by lifetime sold amount descending.
func InventoryVelocity(invoices []models.Invoice, products []models.Product, asOf time.Time) ([]InventoryRow, error) {
	rows := make(map[uint]*InventoryRow)
	order := make([]uint, 0, len(products))
	for _, p := range products {
		if !p.IsActive {
			continue
		}
		rows[p.ID] = &InventoryRow{
			ProductID:        p.ID,
			ProductName:      p.Name,
			SKU:              p.SKU,
			Category:         p.Category,
			LifetimeQuantity: decimal.Zero,
			LifetimeAmount:   decimal.Zero,
			Last30Quantity:   decimal.Zero,
			Last90Quantity:   decimal.Zero,
		}
		order = append(order, p.ID)
	}

	asOfDay := dateOnly(asOf)
	from30 := asOfDay.AddDate(0, 0, -30)
	from90 := asOfDay.AddDate(0, 0, -90)
	for _, inv := range completed(invoices, Filter{}) {
		day := dateOnly(inv.InvoiceDate)
		if day.After(asOfDay) {
			continue
		}
		for _, it := range inv.Items {
			row, ok := rows[it.ProductID]
			if !ok {
				// deactivated products keep their history but get no row
				continue
			}
			row.LifetimeQuantity = row.LifetimeQuantity.Add(it.Quantity)
			row.LifetimeAmount = row.LifetimeAmount.Add(it.LineTotal)
			if !day.Before(from30) {
				row.Last30Quantity = row.Last30Quantity.Add(it.Quantity)
			}
			if !day.Before(from90) {
				row.Last90Quantity = row.Last90Quantity.Add(it.Quantity)
			}
		}
	}

	out := make([]InventoryRow, 0, len(order))
	for _, id := range order {
		row := rows[id]
		row.AverageMonthlySales = row.Last90Quantity.Div(three)
		row.Trend = ClassifyTrend(row.Last30Quantity, row.AverageMonthlySales)
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LifetimeAmount.Equal(out[j].LifetimeAmount) {
			return out[i].LifetimeAmount.GreaterThan(out[j].LifetimeAmount)
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out, nil
}
