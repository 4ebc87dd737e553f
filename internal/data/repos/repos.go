package repos

import (
	"github.com/yungbote/dineops-backend/internal/data/repos/experiments"
	"github.com/yungbote/dineops-backend/internal/data/repos/jobs"
	"github.com/yungbote/dineops-backend/internal/data/repos/loyalty"
	"github.com/yungbote/dineops-backend/internal/data/repos/platform"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type LoyaltyProgramRepo = loyalty.LoyaltyProgramRepo
type CustomerLoyaltyRepo = loyalty.CustomerLoyaltyRepo
type LoyaltyTransactionRepo = loyalty.LoyaltyTransactionRepo
type QRCampaignRepo = loyalty.QRCampaignRepo
type QRCampaignUsageRepo = loyalty.QRCampaignUsageRepo
type LoyaltyAnalyticsRepo = loyalty.LoyaltyAnalyticsRepo
type ConversionTotals = loyalty.ConversionTotals

type ABTestRepo = experiments.ABTestRepo
type ABAssignmentRepo = experiments.ABAssignmentRepo

type OutboxRepo = jobs.OutboxRepo

type PlatformMetricsRepo = platform.MetricsRepo
type MetricsRange = platform.Range

func NewLoyaltyProgramRepo(db *gorm.DB, baseLog *logger.Logger) LoyaltyProgramRepo {
	return loyalty.NewLoyaltyProgramRepo(db, baseLog)
}

func NewCustomerLoyaltyRepo(db *gorm.DB, baseLog *logger.Logger) CustomerLoyaltyRepo {
	return loyalty.NewCustomerLoyaltyRepo(db, baseLog)
}

func NewLoyaltyTransactionRepo(db *gorm.DB, baseLog *logger.Logger) LoyaltyTransactionRepo {
	return loyalty.NewLoyaltyTransactionRepo(db, baseLog)
}

func NewQRCampaignRepo(db *gorm.DB, baseLog *logger.Logger) QRCampaignRepo {
	return loyalty.NewQRCampaignRepo(db, baseLog)
}

func NewQRCampaignUsageRepo(db *gorm.DB, baseLog *logger.Logger) QRCampaignUsageRepo {
	return loyalty.NewQRCampaignUsageRepo(db, baseLog)
}

func NewLoyaltyAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) LoyaltyAnalyticsRepo {
	return loyalty.NewLoyaltyAnalyticsRepo(db, baseLog)
}

func NewABTestRepo(db *gorm.DB, baseLog *logger.Logger) ABTestRepo {
	return experiments.NewABTestRepo(db, baseLog)
}

func NewABAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) ABAssignmentRepo {
	return experiments.NewABAssignmentRepo(db, baseLog)
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return jobs.NewOutboxRepo(db, baseLog)
}

func NewPlatformMetricsRepo(db *gorm.DB, baseLog *logger.Logger) PlatformMetricsRepo {
	return platform.NewMetricsRepo(db, baseLog)
}
