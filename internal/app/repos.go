package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type Repos struct {
	Programs     repos.LoyaltyProgramRepo
	Customers    repos.CustomerLoyaltyRepo
	Transactions repos.LoyaltyTransactionRepo
	Campaigns    repos.QRCampaignRepo
	CampaignUse  repos.QRCampaignUsageRepo
	Analytics    repos.LoyaltyAnalyticsRepo
	ABTests      repos.ABTestRepo
	Assignments  repos.ABAssignmentRepo
	Outbox       repos.OutboxRepo
	Platform     repos.PlatformMetricsRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Programs:     repos.NewLoyaltyProgramRepo(db, log),
		Customers:    repos.NewCustomerLoyaltyRepo(db, log),
		Transactions: repos.NewLoyaltyTransactionRepo(db, log),
		Campaigns:    repos.NewQRCampaignRepo(db, log),
		CampaignUse:  repos.NewQRCampaignUsageRepo(db, log),
		Analytics:    repos.NewLoyaltyAnalyticsRepo(db, log),
		ABTests:      repos.NewABTestRepo(db, log),
		Assignments:  repos.NewABAssignmentRepo(db, log),
		Outbox:       repos.NewOutboxRepo(db, log),
		Platform:     repos.NewPlatformMetricsRepo(db, log),
	}
}
