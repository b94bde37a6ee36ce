package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"type:varchar(255);not null" json:"name"`
	Phone          string          `gorm:"type:varchar(30);index" json:"phone"`
	LoyaltyPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"loyalty_percent"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}
