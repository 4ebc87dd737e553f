package loyalty

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CampaignPointsReward       = "points_reward"
	CampaignPercentageDiscount = "percentage_discount"
	CampaignFixedDiscount      = "fixed_discount"
	CampaignFreeItem           = "free_item"
	CampaignBuyXGetY           = "buy_x_get_y"
)

type QRCampaign struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProgramID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"program_id"`
	RestaurantID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	CampaignType   string         `gorm:"column:campaign_type;not null" json:"campaign_type"`
	RewardSettings datatypes.JSON `gorm:"column:reward_settings;type:jsonb" json:"reward_settings"`
	UsageLimits    datatypes.JSON `gorm:"column:usage_limits;type:jsonb" json:"usage_limits"`
	StartsAt       *time.Time     `gorm:"column:starts_at" json:"starts_at,omitempty"`
	ExpiresAt      *time.Time     `gorm:"column:expires_at" json:"expires_at,omitempty"`
	IsActive       bool           `gorm:"column:is_active;not null;index" json:"is_active"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (QRCampaign) TableName() string { return "qr_campaign" }

func (c *QRCampaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type QRCampaignUsage struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CampaignID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_qr_usage_campaign_customer,priority:1" json:"campaign_id"`
	CustomerDataID uuid.UUID      `gorm:"type:uuid;not null;index:idx_qr_usage_campaign_customer,priority:2" json:"customer_data_id"`
	PointsAwarded  int            `gorm:"column:points_awarded;not null" json:"points_awarded"`
	RewardClaimed  datatypes.JSON `gorm:"column:reward_claimed;type:jsonb" json:"reward_claimed"`
	ClaimedAt      time.Time      `gorm:"column:claimed_at;not null;index" json:"claimed_at"`
	Metadata       datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
}

func (QRCampaignUsage) TableName() string { return "qr_campaign_usage" }

func (u *QRCampaignUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
