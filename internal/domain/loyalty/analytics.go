package loyalty

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LoyaltyAnalyticsDaily is the per-day rollup for a (program, restaurant).
// RestaurantID is uuid.Nil for programs that are not tied to one restaurant.
type LoyaltyAnalyticsDaily struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProgramID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_loyalty_analytics_day,priority:1" json:"program_id"`
	RestaurantID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_loyalty_analytics_day,priority:2" json:"restaurant_id"`
	Day               time.Time       `gorm:"column:day;type:date;not null;uniqueIndex:idx_loyalty_analytics_day,priority:3" json:"day"`
	TransactionsCount int             `gorm:"column:transactions_count;not null" json:"transactions_count"`
	Revenue           decimal.Decimal `gorm:"column:revenue;type:numeric(14,2);not null" json:"revenue"`
	PointsEarned      int             `gorm:"column:points_earned;not null" json:"points_earned"`
	PointsRedeemed    int             `gorm:"column:points_redeemed;not null" json:"points_redeemed"`
	RewardsClaimed    int             `gorm:"column:rewards_claimed;not null" json:"rewards_claimed"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updated_at"`
}

func (LoyaltyAnalyticsDaily) TableName() string { return "loyalty_analytics_daily" }

func (a *LoyaltyAnalyticsDaily) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

const dayLayout = "2006-01-02"

// AnalyticsDelta is an increment to one day's rollup. It travels through the
// outbox as JSON.
type AnalyticsDelta struct {
	ProgramID      uuid.UUID       `json:"program_id"`
	RestaurantID   uuid.UUID       `json:"restaurant_id"`
	Day            string          `json:"day"`
	Transactions   int             `json:"transactions,omitempty"`
	Revenue        decimal.Decimal `json:"revenue"`
	PointsEarned   int             `json:"points_earned,omitempty"`
	PointsRedeemed int             `json:"points_redeemed,omitempty"`
	RewardsClaimed int             `json:"rewards_claimed,omitempty"`
}

// DayKey formats t as the UTC calendar day used by the rollup.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// ParseDay returns the UTC midnight for a DayKey value.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, s, time.UTC)
}

// UTCDayBounds returns [start, end) of the UTC day containing t.
func UTCDayBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func (d AnalyticsDelta) IsZero() bool {
	return d.Transactions == 0 && d.Revenue.IsZero() && d.PointsEarned == 0 &&
		d.PointsRedeemed == 0 && d.RewardsClaimed == 0
}
