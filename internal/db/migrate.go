package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/fidelicard/loyalty/internal/models"
)

// Migrate creates or updates the schema for all ledger tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if err := conn.AutoMigrate(
		&models.Customer{},
		&models.HistoryEntry{},
		&models.Operator{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
