package loyalty

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TransactionEarn       = "earn"
	TransactionRedeem     = "redeem"
	TransactionBonus      = "bonus"
	TransactionQRReward   = "qr_reward"
	TransactionConversion = "conversion"
)

// LoyaltyTransaction is an append-only ledger row. PointsBalance is the
// customer's current_points right after this row was written.
type LoyaltyTransaction struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ProgramID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"program_id"`
	CustomerDataID  uuid.UUID        `gorm:"type:uuid;not null;index:idx_loyalty_tx_customer_created,priority:1" json:"customer_data_id"`
	TransactionType string           `gorm:"column:transaction_type;not null;index" json:"transaction_type"`
	PointsChange    int              `gorm:"column:points_change;not null" json:"points_change"`
	PointsBalance   int              `gorm:"column:points_balance;not null" json:"points_balance"`
	OrderAmount     *decimal.Decimal `gorm:"column:order_amount;type:numeric(12,2)" json:"order_amount,omitempty"`
	OrderID         *string          `gorm:"column:order_id;index" json:"order_id,omitempty"`
	Reason          string           `gorm:"column:reason" json:"reason"`
	RuleID          *string          `gorm:"column:rule_id" json:"rule_id,omitempty"`
	CampaignID      *uuid.UUID       `gorm:"type:uuid;column:campaign_id;index" json:"campaign_id,omitempty"`
	ABTestID        *uuid.UUID       `gorm:"type:uuid;column:ab_test_id;index" json:"ab_test_id,omitempty"`
	Variant         *string          `gorm:"column:variant" json:"variant,omitempty"`
	Metadata        datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt       time.Time        `gorm:"not null;index:idx_loyalty_tx_customer_created,priority:2" json:"created_at"`
}

func (LoyaltyTransaction) TableName() string { return "loyalty_transaction" }

func (t *LoyaltyTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
