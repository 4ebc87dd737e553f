package aggregates

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

type QRClaimAggregateDeps struct {
	Base         BaseDeps
	Campaigns    repos.QRCampaignRepo
	Usage        repos.QRCampaignUsageRepo
	Customers    repos.CustomerLoyaltyRepo
	Transactions repos.LoyaltyTransactionRepo
	Outbox       repos.OutboxRepo
}

type qrClaimAggregate struct {
	deps QRClaimAggregateDeps
}

func NewQRClaimAggregate(deps QRClaimAggregateDeps) domainagg.QRClaimAggregate {
	deps.Base = deps.Base.withDefaults()
	return &qrClaimAggregate{deps: deps}
}

func (a *qrClaimAggregate) Contract() domainagg.Contract {
	return domainagg.QRClaimAggregateContract
}

// Claim runs window check, customer resolution, limit checks, reward dispatch,
// usage insert and point credit in one transaction with the campaign row locked.
func (a *qrClaimAggregate) Claim(ctx context.Context, in domainagg.ClaimQRCampaignInput) (domainagg.ClaimQRCampaignResult, error) {
	const op = "Loyalty.QRClaim.Claim"
	out := domainagg.ClaimQRCampaignResult{}
	if a == nil || a.deps.Campaigns == nil || a.deps.Usage == nil || a.deps.Customers == nil || a.deps.Transactions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "aggregate not initialized", nil)
	}
	if in.CampaignID == uuid.Nil {
		return out, domainagg.Validation(op, "campaignId is required")
	}
	if strings.TrimSpace(in.CustomerHash) == "" {
		return out, domainagg.Validation(op, "customer email or phone is required")
	}
	now := occurredAt(a.deps.Base, in.ClaimedAt)
	var metadata datatypes.JSON
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return out, domainagg.Validation(op, "metadata must be a JSON object")
		}
		metadata = datatypes.JSON(raw)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		campaign, err := a.deps.Campaigns.LockByID(dbc, in.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil || !campaign.IsActive {
			return NotFoundError("Campaign not found or inactive")
		}
		if err := loyalty.CheckWindow(campaign.StartsAt, campaign.ExpiresAt, now); err != nil {
			return ValidationError(err.Error())
		}
		limits, err := loyalty.ParseUsageLimits(campaign.UsageLimits)
		if err != nil {
			return InvariantError("campaign usage_limits are malformed")
		}
		reward, err := loyalty.ComputeReward(campaign.CampaignType, campaign.RewardSettings, in.DefaultPoints)
		if err != nil {
			return InvariantError("campaign reward_settings are malformed")
		}

		rec, _, err := ensureCustomer(dbc, a.deps.Customers, campaign.ProgramID, in.CustomerHash, func(r *types.CustomerLoyaltyRecord) {
			r.CustomerName = strings.TrimSpace(in.CustomerName)
			r.Birthday = in.Birthday
		})
		if err != nil {
			return err
		}

		counts, err := a.deps.Usage.Counts(dbc, campaign.ID, rec.ID, now)
		if err != nil {
			return err
		}
		if err := limits.Check(counts); err != nil {
			return ValidationError(err.Error())
		}

		points := reward.PointsAwarded()
		rewardJSON, err := json.Marshal(reward)
		if err != nil {
			return err
		}
		usage, err := a.deps.Usage.Create(dbc, []*types.QRCampaignUsage{{
			CampaignID:     campaign.ID,
			CustomerDataID: rec.ID,
			PointsAwarded:  points,
			RewardClaimed:  datatypes.JSON(rewardJSON),
			ClaimedAt:      now,
			Metadata:       metadata,
		}})
		if err != nil {
			return err
		}

		if points > 0 {
			version := rec.Version
			credit(rec, points, now)
			rec.VisitCount++
			if err := saveCustomer(dbc, a.deps.Base.CASGuard, rec, version, now); err != nil {
				return err
			}
			campaignID := campaign.ID
			if _, err := appendLedger(dbc, a.deps.Transactions, rec, &types.LoyaltyTransaction{
				TransactionType: loyalty.TransactionQRReward,
				PointsChange:    points,
				Reason:          "QR campaign: " + campaign.Name,
				CampaignID:      &campaignID,
				CreatedAt:       now,
			}); err != nil {
				return err
			}
		}

		if err := enqueueRollup(dbc, a.deps.Outbox, campaign.ID, loyalty.AnalyticsDelta{
			ProgramID:      campaign.ProgramID,
			RestaurantID:   campaign.RestaurantID,
			Day:            loyalty.DayKey(now),
			Revenue:        decimal.Zero,
			PointsEarned:   points,
			RewardsClaimed: 1,
		}, now); err != nil {
			return err
		}

		out = domainagg.ClaimQRCampaignResult{
			CampaignID:     campaign.ID,
			CustomerDataID: rec.ID,
			UsageID:        usage[0].ID,
			Reward:         reward,
			PointsAwarded:  points,
			CustomerPoints: rec.CurrentPoints,
			Message:        reward.Message(),
		}
		return nil
	})
	if err != nil {
		return domainagg.ClaimQRCampaignResult{}, err
	}
	return out, nil
}
