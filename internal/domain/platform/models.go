package platform

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Restaurant, Payment and Order belong to the wider SaaS schema. This service
// only reads them.

type Restaurant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	IsActive  bool      `gorm:"column:is_active;not null;index" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Restaurant) TableName() string { return "restaurants" }

const PaymentCompleted = "completed"

type Payment struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;column:restaurant_id;not null;index" json:"restaurant_id"`
	OrderID      *uuid.UUID      `gorm:"type:uuid;column:order_id" json:"order_id,omitempty"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status       string          `gorm:"column:status;not null;index" json:"status"`
	Provider     string          `gorm:"column:provider" json:"provider"`
	CreatedAt    time.Time       `gorm:"not null;index" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

type Order struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID       `gorm:"type:uuid;column:restaurant_id;not null;index" json:"restaurant_id"`
	OrderNumber  string          `gorm:"column:order_number" json:"order_number,omitempty"`
	TotalAmount  decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	Status       string          `gorm:"column:status;not null" json:"status"`
	CustomerName string          `gorm:"column:customer_name" json:"customer_name,omitempty"`
	CreatedAt    time.Time       `gorm:"not null;index" json:"created_at"`
}

func (Order) TableName() string { return "orders" }
