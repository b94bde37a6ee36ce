package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Dish struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CategoryID *uint           `gorm:"index" json:"category_id,omitempty"`
	Category   *MenuCategory   `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category,omitempty"`
	Name       string          `gorm:"type:varchar(255); not null" json:"name"`
	Price      decimal.Decimal `gorm:"type:decimal(14,4); not null" json:"price"`
	Station    Station         `gorm:"type:varchar(10);not null;default:'KITCHEN'" json:"station"`
	Available  bool            `gorm:"not null;default:true" json:"available"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}

type Combo struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(255); not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(14,4); not null" json:"price"`
	Station   Station         `gorm:"type:varchar(10);not null;default:'KITCHEN'" json:"station"`
	Available bool            `gorm:"not null;default:true" json:"available"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

type AddOn struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(100); not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(14,4); not null" json:"price"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}
