package models

import "time"

type Space struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

type TableType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);unique;not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

type Table struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"type:varchar(50);not null" json:"name"`
	Capacity    int        `gorm:"not null;default:2" json:"capacity"`
	SpaceID     *uint      `gorm:"index" json:"space_id,omitempty"`
	Space       *Space     `gorm:"foreignKey:SpaceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"space,omitempty"`
	TableTypeID *uint      `gorm:"index" json:"table_type_id,omitempty"`
	TableType   *TableType `gorm:"foreignKey:TableTypeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"table_type,omitempty"`
	SortOrder   int        `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

// TableSession links a table to the order sitting at it. OpenTableID mirrors
// TableID while the session is open and is cleared on close; the unique index on
// it keeps a second open session for the same table out of the database.
type TableSession struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	TableID     uint       `gorm:"not null;index" json:"table_id"`
	Table       *Table     `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"table,omitempty"`
	OrderID     uint       `gorm:"not null;index" json:"order_id"`
	OpenTableID *uint      `gorm:"uniqueIndex" json:"-"`
	StartedAt   time.Time  `gorm:"not null" json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
}

func (s *TableSession) IsOpen() bool {
	return s.EndedAt == nil
}
