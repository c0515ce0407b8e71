package models

import (
	"time"

	"github.com/google/uuid"
)

// RestaurantModel is the minimal view of the restaurants table the ledger
// reads. Restaurants are managed elsewhere.
type RestaurantModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RestaurantModel) TableName() string {
	return "restaurants"
}

// All returns every model the ledger migrates in sqlite mode, parents first.
func All() []any {
	return []any{
		&RestaurantModel{},
		&CashRegisterModel{},
		&CashMovementModel{},
	}
}
