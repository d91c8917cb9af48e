package models

import "time"

// HistoryEntry is an append-only record of a single balance change.
//
// CardID is a weak reference: CustomerName is a denormalized copy taken at
// write time and is only rewritten when the owning customer is renamed.
// Entries are deleted together with their customer and never otherwise.
type HistoryEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	CardID       string `gorm:"type:text;not null;index"` // Owning customer's card identifier.
	CustomerName string `gorm:"type:text;not null"`       // Customer name copy at write time.

	MerchantLabel string `gorm:"type:text;not null"` // Canonical short label for the counterparty.
	Amount        int    `gorm:"not null"`           // Signed quantity: positive add, negative deduct.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Write timestamp.
}
