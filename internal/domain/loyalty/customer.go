package loyalty

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomerLoyaltyRecord is the running account of one customer under one program.
// current_points never goes negative and lifetime_points never decreases.
type CustomerLoyaltyRecord struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProgramID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_customer_loyalty_program_hash,priority:1" json:"program_id"`
	CustomerHash   string          `gorm:"column:customer_hash;not null;uniqueIndex:idx_customer_loyalty_program_hash,priority:2" json:"customer_hash"`
	CustomerName   string          `gorm:"column:customer_name" json:"customer_name,omitempty"`
	Birthday       *string         `gorm:"column:birthday;size:10" json:"birthday,omitempty"`
	CurrentPoints  int             `gorm:"column:current_points;not null" json:"current_points"`
	LifetimePoints int             `gorm:"column:lifetime_points;not null" json:"lifetime_points"`
	TotalSpent     decimal.Decimal `gorm:"column:total_spent;type:numeric(12,2);not null" json:"total_spent"`
	VisitCount     int             `gorm:"column:visit_count;not null" json:"visit_count"`
	TierLevel      string          `gorm:"column:tier_level;not null" json:"tier_level"`
	ReferralsMade  int             `gorm:"column:referrals_made;not null" json:"referrals_made"`
	LastActivity   *time.Time      `gorm:"column:last_activity" json:"last_activity,omitempty"`
	LastPurchase   *time.Time      `gorm:"column:last_purchase" json:"last_purchase,omitempty"`
	Version        int             `gorm:"column:version;not null" json:"version"`
	CreatedAt      time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (CustomerLoyaltyRecord) TableName() string { return "customer_loyalty_data" }

func (c *CustomerLoyaltyRecord) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.TierLevel == "" {
		c.TierLevel = TierBronze
	}
	return nil
}

// NewCustomerRecord returns a zeroed bronze record for a first-time customer.
func NewCustomerRecord(programID uuid.UUID, customerHash string) *CustomerLoyaltyRecord {
	return &CustomerLoyaltyRecord{
		ID:           uuid.New(),
		ProgramID:    programID,
		CustomerHash: customerHash,
		TotalSpent:   decimal.Zero,
		TierLevel:    TierBronze,
	}
}
