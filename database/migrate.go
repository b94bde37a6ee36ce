package database

import (
	"fmt"

	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// Models lists every table in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Space{},
		&models.TableType{},
		&models.Table{},
		&models.Customer{},
		&models.MenuCategory{},
		&models.Dish{},
		&models.Combo{},
		&models.AddOn{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderItemAddOn{},
		&models.TableSession{},
		&models.Receipt{},
		&models.LedgerEntry{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return nil
}
