package database

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin creates the first admin account when no user with that email exists.
// It reports whether a user was created.
func SeedAdmin(db *gorm.DB, name, email, password string) (bool, error) {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}
	user := models.User{Name: name, Email: email, Password: string(hash), Role: models.RoleAdmin}
	if err := db.Create(&user).Error; err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	return true, nil
}

// SeedDemo fills an empty database with a small floor plan and menu. It does
// nothing when any table already exists.
func SeedDemo(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Table{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count tables: %w", err)
	}
	if count > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		hall := models.Space{Name: "Main Hall", SortOrder: 0}
		terrace := models.Space{Name: "Terrace", SortOrder: 1}
		if err := tx.Create(&[]*models.Space{&hall, &terrace}).Error; err != nil {
			return fmt.Errorf("failed to seed spaces: %w", err)
		}

		regular := models.TableType{Name: "Regular"}
		booth := models.TableType{Name: "Booth"}
		if err := tx.Create(&[]*models.TableType{&regular, &booth}).Error; err != nil {
			return fmt.Errorf("failed to seed table types: %w", err)
		}

		tables := []models.Table{
			{Name: "T1", Capacity: 4, SpaceID: &hall.ID, TableTypeID: &regular.ID, SortOrder: 0},
			{Name: "T2", Capacity: 4, SpaceID: &hall.ID, TableTypeID: &regular.ID, SortOrder: 1},
			{Name: "B1", Capacity: 6, SpaceID: &hall.ID, TableTypeID: &booth.ID, SortOrder: 2},
			{Name: "P1", Capacity: 2, SpaceID: &terrace.ID, TableTypeID: &regular.ID, SortOrder: 0},
		}
		if err := tx.Create(&tables).Error; err != nil {
			return fmt.Errorf("failed to seed tables: %w", err)
		}

		mains := models.MenuCategory{Name: "Mains"}
		drinks := models.MenuCategory{Name: "Drinks"}
		if err := tx.Create(&[]*models.MenuCategory{&mains, &drinks}).Error; err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}

		dishes := []models.Dish{
			{CategoryID: &mains.ID, Name: "Chicken Momo", Price: decimal.NewFromInt(250), Station: models.StationKitchen, Available: true},
			{CategoryID: &mains.ID, Name: "Dal Bhat", Price: decimal.NewFromInt(350), Station: models.StationKitchen, Available: true},
			{CategoryID: &drinks.ID, Name: "Masala Tea", Price: decimal.NewFromInt(60), Station: models.StationBar, Available: true},
			{CategoryID: &drinks.ID, Name: "Mango Lassi", Price: decimal.NewFromInt(150), Station: models.StationBar, Available: true},
		}
		if err := tx.Create(&dishes).Error; err != nil {
			return fmt.Errorf("failed to seed dishes: %w", err)
		}

		combo := models.Combo{Name: "Momo + Tea", Price: decimal.NewFromInt(290), Station: models.StationKitchen, Available: true}
		if err := tx.Create(&combo).Error; err != nil {
			return fmt.Errorf("failed to seed combo: %w", err)
		}

		addOns := []models.AddOn{
			{Name: "Extra Cheese", Price: decimal.NewFromInt(40)},
			{Name: "Extra Chutney", Price: decimal.NewFromInt(20)},
		}
		if err := tx.Create(&addOns).Error; err != nil {
			return fmt.Errorf("failed to seed add-ons: %w", err)
		}

		regularGuest := models.Customer{Name: "Walk-in Regular", Phone: "9800000000", LoyaltyPercent: decimal.NewFromInt(5)}
		if err := tx.Create(&regularGuest).Error; err != nil {
			return fmt.Errorf("failed to seed customer: %w", err)
		}
		return nil
	})
}
