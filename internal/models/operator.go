package models

import "time"

// Operator represents a named operator login.
//
// Rows are seeded from the configured operator list with an empty hash.
// The first successful login sets PasswordHash; it cannot be reset through
// the API afterwards.
type Operator struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username     string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	PasswordHash string `gorm:"type:text;not null;default:''"`  // bcrypt hash; empty until first login.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
