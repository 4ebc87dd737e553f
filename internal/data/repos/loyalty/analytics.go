package loyalty

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dineops-backend/internal/domain"
	domainloyalty "github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type LoyaltyAnalyticsRepo interface {
	// ApplyDelta adds delta onto the day's row, creating it when absent.
	ApplyDelta(dbc dbctx.Context, delta domainloyalty.AnalyticsDelta) error
	GetDay(dbc dbctx.Context, programID, restaurantID uuid.UUID, day time.Time) (*types.LoyaltyAnalyticsDaily, error)
}

type loyaltyAnalyticsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLoyaltyAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) LoyaltyAnalyticsRepo {
	return &loyaltyAnalyticsRepo{
		db:  db,
		log: baseLog.With("repo", "LoyaltyAnalyticsRepo"),
	}
}

func (r *loyaltyAnalyticsRepo) ApplyDelta(dbc dbctx.Context, delta domainloyalty.AnalyticsDelta) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if delta.ProgramID == uuid.Nil {
		return fmt.Errorf("analytics delta missing program_id")
	}
	day, err := domainloyalty.ParseDay(delta.Day)
	if err != nil {
		return fmt.Errorf("analytics delta day %q: %w", delta.Day, err)
	}
	now := time.Now().UTC()
	row := &types.LoyaltyAnalyticsDaily{
		ProgramID:         delta.ProgramID,
		RestaurantID:      delta.RestaurantID,
		Day:               day,
		TransactionsCount: delta.Transactions,
		Revenue:           delta.Revenue,
		PointsEarned:      delta.PointsEarned,
		PointsRedeemed:    delta.PointsRedeemed,
		RewardsClaimed:    delta.RewardsClaimed,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	const t = "loyalty_analytics_daily"
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "program_id"}, {Name: "restaurant_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"transactions_count": gorm.Expr(t + ".transactions_count + excluded.transactions_count"),
				"revenue":            gorm.Expr(t + ".revenue + excluded.revenue"),
				"points_earned":      gorm.Expr(t + ".points_earned + excluded.points_earned"),
				"points_redeemed":    gorm.Expr(t + ".points_redeemed + excluded.points_redeemed"),
				"rewards_claimed":    gorm.Expr(t + ".rewards_claimed + excluded.rewards_claimed"),
				"updated_at":         now,
			}),
		}).
		Create(row).Error
}

func (r *loyaltyAnalyticsRepo) GetDay(dbc dbctx.Context, programID, restaurantID uuid.UUID, day time.Time) (*types.LoyaltyAnalyticsDaily, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	start, _ := domainloyalty.UTCDayBounds(day)
	var row types.LoyaltyAnalyticsDaily
	if err := transaction.WithContext(dbc.Ctx).
		Where("program_id = ? AND restaurant_id = ? AND day = ?", programID, restaurantID, start).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}
