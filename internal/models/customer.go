package models

import "time"

// Customer entity. Same soft-deactivation rule as Product: once invoiced,
// a customer is deactivated rather than deleted.
type Customer struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null;index"`
	Phone     string `gorm:"index"`
	Address   string
	IsActive  bool `gorm:"not null;default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
