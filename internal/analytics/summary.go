package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/tmaged/salesbook/internal/models"
)

// Summary condenses a filtered invoice set into headline figures. Profit is
// the realized margin, (UnitPrice - OriginalUnitPrice) x Quantity per item,
// independent of any discount. TotalDiscount combines invoice-level and
// item-level discount amounts.
type Summary struct {
	InvoiceCount         int
	CustomerCount        int
	TotalQuantity        decimal.Decimal
	GrossSales           decimal.Decimal
	TotalProfit          decimal.Decimal
	TotalDiscount        decimal.Decimal
	AverageInvoiceAmount decimal.Decimal
	BestSellingProduct   string
	TopCustomer          string
}

// SalesSummary computes the summary over the completed invoices matching f.
// Empty data yields a zero summary, not an error.
func SalesSummary(invoices []models.Invoice, f Filter) (Summary, error) {
	s := Summary{
		TotalQuantity: decimal.Zero,
		GrossSales:    decimal.Zero,
		TotalProfit:   decimal.Zero,
		TotalDiscount: decimal.Zero,
	}
	seen := make(map[uint]struct{})
	set := completed(invoices, f)
	for _, inv := range set {
		if inv.CustomerID == 0 || inv.Customer.ID == 0 {
			return Summary{}, failf("sales summary", "invoice %d has no populated customer", inv.ID)
		}
		s.InvoiceCount++
		seen[inv.CustomerID] = struct{}{}
		s.GrossSales = s.GrossSales.Add(inv.FinalAmount)
		s.TotalDiscount = s.TotalDiscount.Add(inv.InvoiceDiscountAmount)
		for _, it := range inv.Items {
			s.TotalQuantity = s.TotalQuantity.Add(it.Quantity)
			s.TotalProfit = s.TotalProfit.Add(it.UnitPrice.Sub(it.OriginalUnitPrice).Mul(it.Quantity))
			s.TotalDiscount = s.TotalDiscount.Add(it.DiscountAmount)
		}
	}
	s.CustomerCount = len(seen)
	if s.InvoiceCount > 0 {
		s.AverageInvoiceAmount = s.GrossSales.Div(decimal.NewFromInt(int64(s.InvoiceCount)))
	} else {
		s.AverageInvoiceAmount = decimal.Zero
	}

	top, err := TopSellingProducts(invoices, Filter{From: f.From, To: f.To, Limit: 1})
	if err != nil {
		return Summary{}, err
	}
	if len(top) > 0 {
		s.BestSellingProduct = top[0].ProductName
	}
	paying, err := TopPayingCustomers(invoices, Filter{From: f.From, To: f.To, Limit: 1})
	if err != nil {
		return Summary{}, err
	}
	if len(paying) > 0 {
		s.TopCustomer = paying[0].CustomerName
	}
	return s, nil
}
