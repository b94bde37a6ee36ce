package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

// LineSource is what an order item was ordered from: a DishSource or a
// ComboSource. The set is closed; the unexported marker keeps other packages from
// adding variants.
type LineSource interface {
	lineSource()
}

type DishSource struct{ DishID uint }

type ComboSource struct{ ComboID uint }

func (DishSource) lineSource()  {}
func (ComboSource) lineSource() {}

// CatalogEntry is the snapshot copied onto an order item.
type CatalogEntry struct {
	Name    string
	Price   decimal.Decimal
	Station models.Station
}

type AddOnEntry struct {
	ID    uint
	Name  string
	Price decimal.Decimal
}

// Catalog resolves menu references at the moment an item is added. Missing entries
// come back as a NotFound service error.
type Catalog interface {
	Resolve(ctx context.Context, src LineSource) (CatalogEntry, error)
	AddOns(ctx context.Context, ids []uint) ([]AddOnEntry, error)
}

// GormCatalog reads dishes, combos and add-ons from the menu tables.
type GormCatalog struct {
	DB *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{DB: db}
}

func (c *GormCatalog) Resolve(ctx context.Context, src LineSource) (CatalogEntry, error) {
	db := c.DB.WithContext(ctx)
	switch s := src.(type) {
	case DishSource:
		var dish models.Dish
		if err := db.First(&dish, s.DishID).Error; err != nil {
			return CatalogEntry{}, lookupErr("dish", s.DishID, err)
		}
		if !dish.Available {
			return CatalogEntry{}, invalidInput("dish_id", "dish %d is not available", s.DishID)
		}
		return CatalogEntry{Name: dish.Name, Price: dish.Price, Station: stationOrKitchen(dish.Station)}, nil
	case ComboSource:
		var combo models.Combo
		if err := db.First(&combo, s.ComboID).Error; err != nil {
			return CatalogEntry{}, lookupErr("combo", s.ComboID, err)
		}
		if !combo.Available {
			return CatalogEntry{}, invalidInput("combo_id", "combo %d is not available", s.ComboID)
		}
		return CatalogEntry{Name: combo.Name, Price: combo.Price, Station: stationOrKitchen(combo.Station)}, nil
	default:
		return CatalogEntry{}, fmt.Errorf("unsupported line source %T", src)
	}
}

func (c *GormCatalog) AddOns(ctx context.Context, ids []uint) ([]AddOnEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []models.AddOn
	if err := c.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load add-ons: %w", err)
	}
	byID := make(map[uint]models.AddOn, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	entries := make([]AddOnEntry, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			return nil, notFound("add-on", id)
		}
		entries = append(entries, AddOnEntry{ID: row.ID, Name: row.Name, Price: row.Price})
	}
	return entries, nil
}

func stationOrKitchen(s models.Station) models.Station {
	if s.Valid() {
		return s
	}
	return models.StationKitchen
}

// catalogErr keeps typed catalog failures and turns anything else into a
// retryable error, since nothing has been written yet.
func catalogErr(err error) error {
	var serr *Error
	if errors.As(err, &serr) {
		return err
	}
	return retryable("catalog lookup", err)
}
