package models

import "gorm.io/datatypes"

// Customer represents a loyalty card holder and their credit balance.
type Customer struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key; drives roster ordering.

	Name   string `gorm:"type:text;not null"`             // Display name.
	CardID string `gorm:"type:text;not null;uniqueIndex"` // Unique card identifier.
	Phone  string `gorm:"type:text;not null"`             // Contact phone number.

	Credits     int            `gorm:"not null;default:0"` // Spendable credit balance, never negative.
	LastPayment datatypes.Date `gorm:"not null"`           // Date of the last recharge or registration.
	ExpiresOn   datatypes.Date `gorm:"not null"`           // LastPayment plus the configured validity window.
}
