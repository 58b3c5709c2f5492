package analytics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tmaged/salesbook/internal/models"
)

// ProductSalesRow is one row of the top/least selling products reports.
// Items sold at different cost-price snapshots land in separate rows, so a
// catalog price change does not merge historically distinct sales.
type ProductSalesRow struct {
	ProductID         uint
	ProductName       string
	SKU               string
	Category          string
	UnitPrice         decimal.Decimal // OriginalUnitPrice at sale time
	TotalQuantity     decimal.Decimal
	TotalAmount       decimal.Decimal
	PercentageOfTotal decimal.Decimal
}

type productKey struct {
	productID uint
	unitPrice string
}

func groupProducts(invoices []models.Invoice, f Filter, report string) ([]ProductSalesRow, error) {
	groups := make(map[productKey]*ProductSalesRow)
	for _, inv := range completed(invoices, f) {
		for _, it := range inv.Items {
			if it.ProductID == 0 || it.Product.ID == 0 {
				return nil, failf(report, "invoice %d has an item without a populated product", inv.ID)
			}
			if f.Category != "" && !strings.EqualFold(it.Product.Category, f.Category) {
				continue
			}
			key := productKey{productID: it.ProductID, unitPrice: it.OriginalUnitPrice.String()}
			row, ok := groups[key]
			if !ok {
				row = &ProductSalesRow{
					ProductID:     it.ProductID,
					ProductName:   it.Product.Name,
					SKU:           it.Product.SKU,
					Category:      it.Product.Category,
					UnitPrice:     it.OriginalUnitPrice,
					TotalQuantity: decimal.Zero,
					TotalAmount:   decimal.Zero,
				}
				groups[key] = row
			}
			row.TotalQuantity = row.TotalQuantity.Add(it.Quantity)
			row.TotalAmount = row.TotalAmount.Add(it.LineTotal)
		}
	}

	rows := make([]ProductSalesRow, 0, len(groups))
	grand := decimal.Zero
	for _, row := range groups {
		grand = grand.Add(row.TotalAmount)
		rows = append(rows, *row)
	}
	hundred := decimal.NewFromInt(100)
	for i := range rows {
		if grand.IsZero() {
			rows[i].PercentageOfTotal = decimal.Zero
		} else {
			rows[i].PercentageOfTotal = rows[i].TotalAmount.Div(grand).Mul(hundred)
		}
	}
	return rows, nil
}

// ties are broken by product name ascending, then cost price, for
// deterministic output
func lessByName(a, b ProductSalesRow) bool {
	if a.ProductName != b.ProductName {
		return a.ProductName < b.ProductName
	}
	return a.UnitPrice.LessThan(b.UnitPrice)
}

// TopSellingProducts ranks product rows by total quantity descending and
// truncates to f.Limit after sorting.
func TopSellingProducts(invoices []models.Invoice, f Filter) ([]ProductSalesRow, error) {
	rows, err := groupProducts(invoices, f, "top selling products")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].TotalQuantity.Equal(rows[j].TotalQuantity) {
			return rows[i].TotalQuantity.GreaterThan(rows[j].TotalQuantity)
		}
		return lessByName(rows[i], rows[j])
	})
	return truncate(rows, f.Limit), nil
}

// LeastSellingProducts ranks product rows by total quantity ascending.
func LeastSellingProducts(invoices []models.Invoice, f Filter) ([]ProductSalesRow, error) {
	rows, err := groupProducts(invoices, f, "least selling products")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].TotalQuantity.Equal(rows[j].TotalQuantity) {
			return rows[i].TotalQuantity.LessThan(rows[j].TotalQuantity)
		}
		return lessByName(rows[i], rows[j])
	})
	return truncate(rows, f.Limit), nil
}
