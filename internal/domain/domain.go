package domain

import (
	"github.com/yungbote/dineops-backend/internal/domain/experiments"
	"github.com/yungbote/dineops-backend/internal/domain/jobs"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/domain/platform"
)

type LoyaltyProgram = loyalty.LoyaltyProgram
type CustomerLoyaltyRecord = loyalty.CustomerLoyaltyRecord
type LoyaltyTransaction = loyalty.LoyaltyTransaction
type QRCampaign = loyalty.QRCampaign
type QRCampaignUsage = loyalty.QRCampaignUsage
type LoyaltyAnalyticsDaily = loyalty.LoyaltyAnalyticsDaily

type ABTest = experiments.ABTest
type ABAssignment = experiments.ABAssignment

type OutboxEvent = jobs.OutboxEvent

type Restaurant = platform.Restaurant
type Payment = platform.Payment
type Order = platform.Order

// Models lists every table the service migrates, in dependency order.
func Models() []any {
	return []any{
		&Restaurant{},
		&Order{},
		&Payment{},
		&LoyaltyProgram{},
		&CustomerLoyaltyRecord{},
		&LoyaltyTransaction{},
		&QRCampaign{},
		&QRCampaignUsage{},
		&LoyaltyAnalyticsDaily{},
		&ABTest{},
		&ABAssignment{},
		&OutboxEvent{},
	}
}
