// Package pricing implements the invoice pricing cascade: cost price plus
// item-level markup gives the unit price; quantity and the item discount give
// the line total; line totals plus the invoice-wide discount give the final
// payable amount. All arithmetic uses shopspring decimals at full precision;
// rounding happens only at display time via Display.
package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ItemPrice is the computed result for a single invoice line.
type ItemPrice struct {
	UnitPrice      decimal.Decimal
	DiscountAmount decimal.Decimal
	ProfitAmount   decimal.Decimal
	LineTotal      decimal.Decimal
}

// InvoiceTotals is the computed result for a whole invoice.
type InvoiceTotals struct {
	TotalAmount           decimal.Decimal
	InvoiceDiscountAmount decimal.Decimal
	FinalAmount           decimal.Decimal
}

// PriceItem derives the unit price, discount amount, realized profit and line
// total for one item. originalUnitPrice is the cost-price snapshot taken when
// the item was added; marginPct and discountPct are percentages in [0, 100]
// (margin may exceed 100).
func PriceItem(originalUnitPrice, marginPct, quantity, discountPct decimal.Decimal) (ItemPrice, error) {
	if originalUnitPrice.IsNegative() {
		return ItemPrice{}, &ValidationError{Field: "originalUnitPrice", Msg: "must not be negative"}
	}
	if quantity.IsNegative() {
		return ItemPrice{}, &ValidationError{Field: "quantity", Msg: "must not be negative"}
	}
	if marginPct.IsNegative() {
		return ItemPrice{}, &ValidationError{Field: "marginPct", Msg: "must not be negative"}
	}
	if discountPct.IsNegative() {
		return ItemPrice{}, &ValidationError{Field: "discountPct", Msg: "must not be negative"}
	}
	if discountPct.GreaterThan(hundred) {
		return ItemPrice{}, &ValidationError{Field: "discountPct", Msg: "must not exceed 100"}
	}

	unitPrice := originalUnitPrice.Add(originalUnitPrice.Mul(marginPct).Div(hundred))
	gross := quantity.Mul(unitPrice)
	discount := gross.Mul(discountPct).Div(hundred)
	profit := quantity.Mul(originalUnitPrice).Mul(marginPct).Div(hundred)

	return ItemPrice{
		UnitPrice:      unitPrice,
		DiscountAmount: discount,
		ProfitAmount:   profit,
		LineTotal:      gross.Sub(discount),
	}, nil
}

// PriceInvoice sums already-settled line totals and applies the invoice-wide
// discount. Summation is plain addition, so the result does not depend on the
// order of lineTotals. An empty slice yields all-zero totals.
func PriceInvoice(lineTotals []decimal.Decimal, invoiceDiscountPct decimal.Decimal) (InvoiceTotals, error) {
	if invoiceDiscountPct.IsNegative() {
		return InvoiceTotals{}, &ValidationError{Field: "invoiceDiscountPct", Msg: "must not be negative"}
	}
	if invoiceDiscountPct.GreaterThan(hundred) {
		return InvoiceTotals{}, &ValidationError{Field: "invoiceDiscountPct", Msg: "must not exceed 100"}
	}

	total := decimal.Zero
	for _, lt := range lineTotals {
		total = total.Add(lt)
	}
	discount := total.Mul(invoiceDiscountPct).Div(hundred)

	return InvoiceTotals{
		TotalAmount:           total,
		InvoiceDiscountAmount: discount,
		FinalAmount:           total.Sub(discount),
	}, nil
}

// Display rounds a full-precision amount to the currency's 2 minor-unit
// digits. Only presentation code should call this; stored and intermediate
// values keep full precision.
func Display(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
