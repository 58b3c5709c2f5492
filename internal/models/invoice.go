package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tmaged/salesbook/internal/pricing"
)

type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusCompleted InvoiceStatus = "completed"
	StatusCancelled InvoiceStatus = "cancelled"
)

// Invoice owns an ordered list of items. TotalAmount, InvoiceDiscountAmount
// and FinalAmount are derived and persisted; Recalculate is their single
// writer and must run after every item mutation, before the invoice is
// considered saved.
type Invoice struct {
	ID              uint          `gorm:"primaryKey"`
	CustomerID      uint          `gorm:"not null;index"`
	Customer        Customer      `gorm:"foreignKey:CustomerID"`
	InvoiceDate     time.Time     `gorm:"not null;index"` // business date chosen by the user
	Status          InvoiceStatus `gorm:"not null;default:'draft';index"`
	Notes           string
	ProfitMarginPct decimal.Decimal `gorm:"type:decimal(10,2)"` // invoice-wide default margin
	DiscountPct     decimal.Decimal `gorm:"type:decimal(10,2)"`

	TotalAmount           decimal.Decimal `gorm:"type:decimal(18,4)"`
	InvoiceDiscountAmount decimal.Decimal `gorm:"type:decimal(18,4)"`
	FinalAmount           decimal.Decimal `gorm:"type:decimal(18,4)"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`

	CompletedDate *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InvoiceItem is owned by exactly one invoice and holds only the foreign key,
// never a back-reference. OriginalUnitPrice snapshots the product's cost
// price when the item was added and is immutable afterwards. UnitPrice,
// DiscountAmount, ProfitAmount and LineTotal are derived by Reprice and are
// never set directly.
type InvoiceItem struct {
	ID        uint    `gorm:"primaryKey"`
	InvoiceID uint    `gorm:"not null;index"`
	ProductID uint    `gorm:"not null;index"`
	Product   Product `gorm:"foreignKey:ProductID"`

	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OriginalUnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ProfitMarginPct   decimal.Decimal `gorm:"type:decimal(10,2)"`
	DiscountPct       decimal.Decimal `gorm:"type:decimal(10,2)"`

	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,4)"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4)"`
	ProfitAmount   decimal.Decimal `gorm:"type:decimal(18,4)"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(18,4)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reprice re-derives the item's unit price, discount, profit and line total
// from its inputs. Call after any change to quantity, margin or discount.
func (it *InvoiceItem) Reprice() error {
	p, err := pricing.PriceItem(it.OriginalUnitPrice, it.ProfitMarginPct, it.Quantity, it.DiscountPct)
	if err != nil {
		return err
	}
	it.UnitPrice = p.UnitPrice
	it.DiscountAmount = p.DiscountAmount
	it.ProfitAmount = p.ProfitAmount
	it.LineTotal = p.LineTotal
	return nil
}

// Recalculate reprices every item and re-derives the invoice totals. It is
// idempotent and the only code path allowed to write the three derived
// amounts.
func (inv *Invoice) Recalculate() error {
	lineTotals := make([]decimal.Decimal, 0, len(inv.Items))
	for i := range inv.Items {
		if err := inv.Items[i].Reprice(); err != nil {
			return err
		}
		lineTotals = append(lineTotals, inv.Items[i].LineTotal)
	}
	totals, err := pricing.PriceInvoice(lineTotals, inv.DiscountPct)
	if err != nil {
		return err
	}
	inv.TotalAmount = totals.TotalAmount
	inv.InvoiceDiscountAmount = totals.InvoiceDiscountAmount
	inv.FinalAmount = totals.FinalAmount
	return nil
}

// AddItem appends an item and recomputes totals before returning.
func (inv *Invoice) AddItem(item InvoiceItem) error {
	inv.Items = append(inv.Items, item)
	if err := inv.Recalculate(); err != nil {
		inv.Items = inv.Items[:len(inv.Items)-1]
		return err
	}
	return nil
}

// RemoveItem drops the item with the given ID and recomputes totals.
// Removing an unknown ID is a no-op.
func (inv *Invoice) RemoveItem(itemID uint) error {
	for i := range inv.Items {
		if inv.Items[i].ID == itemID {
			inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
			return inv.Recalculate()
		}
	}
	return nil
}
