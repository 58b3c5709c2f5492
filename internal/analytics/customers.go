package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmaged/salesbook/internal/models"
)

// CustomerSalesRow is one row of the top paying / top ordering customers
// reports.
type CustomerSalesRow struct {
	CustomerID      uint
	CustomerName    string
	InvoiceCount    int
	TotalAmount     decimal.Decimal
	AverageAmount   decimal.Decimal
	LastInvoiceDate time.Time
}

func groupCustomers(invoices []models.Invoice, f Filter, report string) ([]CustomerSalesRow, error) {
	groups := make(map[uint]*CustomerSalesRow)
	for _, inv := range completed(invoices, f) {
		if inv.CustomerID == 0 || inv.Customer.ID == 0 {
			return nil, failf(report, "invoice %d has no populated customer", inv.ID)
		}
		row, ok := groups[inv.CustomerID]
		if !ok {
			row = &CustomerSalesRow{
				CustomerID:   inv.CustomerID,
				CustomerName: inv.Customer.Name,
				TotalAmount:  decimal.Zero,
			}
			groups[inv.CustomerID] = row
		}
		row.InvoiceCount++
		row.TotalAmount = row.TotalAmount.Add(inv.FinalAmount)
		if inv.InvoiceDate.After(row.LastInvoiceDate) {
			row.LastInvoiceDate = inv.InvoiceDate
		}
	}
	rows := make([]CustomerSalesRow, 0, len(groups))
	for _, row := range groups {
		row.AverageAmount = row.TotalAmount.Div(decimal.NewFromInt(int64(row.InvoiceCount)))
		rows = append(rows, *row)
	}
	return rows, nil
}

// TopPayingCustomers ranks customers by summed FinalAmount descending.
func TopPayingCustomers(invoices []models.Invoice, f Filter) ([]CustomerSalesRow, error) {
	rows, err := groupCustomers(invoices, f, "top paying customers")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].TotalAmount.Equal(rows[j].TotalAmount) {
			return rows[i].TotalAmount.GreaterThan(rows[j].TotalAmount)
		}
		if rows[i].CustomerName != rows[j].CustomerName {
			return rows[i].CustomerName < rows[j].CustomerName
		}
		return rows[i].CustomerID < rows[j].CustomerID
	})
	return truncate(rows, f.Limit), nil
}

// TopOrderingCustomers ranks customers by invoice count descending, ties
// broken by total amount descending.
func TopOrderingCustomers(invoices []models.Invoice, f Filter) ([]CustomerSalesRow, error) {
	rows, err := groupCustomers(invoices, f, "top ordering customers")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].InvoiceCount != rows[j].InvoiceCount {
			return rows[i].InvoiceCount > rows[j].InvoiceCount
		}
		if !rows[i].TotalAmount.Equal(rows[j].TotalAmount) {
			return rows[i].TotalAmount.GreaterThan(rows[j].TotalAmount)
		}
		return rows[i].CustomerName < rows[j].CustomerName
	})
	return truncate(rows, f.Limit), nil
}
