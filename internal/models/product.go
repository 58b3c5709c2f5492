package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Price is the cost price; sell prices are
// derived per invoice line from the margin percentage. A product referenced
// by an invoice is never deleted, only deactivated.
type Product struct {
	ID        uint            `gorm:"primaryKey"`
	Name      string          `gorm:"not null;index"`
	SKU       string          `gorm:"size:40;not null;index"`
	Unit      string          // unit of measure: piece, kg, m, ...
	Category  string          `gorm:"index"`
	Price     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsActive  bool            `gorm:"not null;default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
