package services

import (
	"context"
	"fmt"

	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// LedgerSink receives customer ledger entries during checkout. tx is the checkout
// transaction; an error from Append rolls the whole checkout back.
type LedgerSink interface {
	Append(ctx context.Context, tx *gorm.DB, entry models.LedgerEntry) error
}

// GormLedger writes entries to the ledger_entries table.
type GormLedger struct{}

func (GormLedger) Append(ctx context.Context, tx *gorm.DB, entry models.LedgerEntry) error {
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append %s ledger entry for order %d: %w", entry.Kind, entry.OrderID, err)
	}
	return nil
}

// LedgerEntries lists a customer's entries, newest first.
func LedgerEntries(ctx context.Context, db *gorm.DB, customerID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := db.WithContext(ctx).Where("customer_id = ?", customerID).Order("id DESC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}
