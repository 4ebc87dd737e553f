package loyalty

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LoyaltyProgram struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID *uuid.UUID     `gorm:"type:uuid;index" json:"restaurant_id,omitempty"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	Settings     datatypes.JSON `gorm:"column:settings;type:jsonb" json:"settings"`
	IsActive     bool           `gorm:"column:is_active;not null;index" json:"is_active"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (LoyaltyProgram) TableName() string { return "loyalty_program" }

func (p *LoyaltyProgram) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RestaurantOrNil returns the owning restaurant, or uuid.Nil for platform-wide programs.
func (p *LoyaltyProgram) RestaurantOrNil() uuid.UUID {
	if p == nil || p.RestaurantID == nil {
		return uuid.Nil
	}
	return *p.RestaurantID
}
