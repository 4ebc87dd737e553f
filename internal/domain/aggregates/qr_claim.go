package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
)

var QRClaimAggregateContract = Contract{
	Name:             "Loyalty.QRClaimAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns the claim state machine: campaign row locked for the whole claim so usage " +
		"counts, the usage insert and the point credit are serialised per campaign.",
}

// QRClaimAggregate owns QR campaign usage-limit invariants.
type QRClaimAggregate interface {
	Aggregate

	Claim(ctx context.Context, in ClaimQRCampaignInput) (ClaimQRCampaignResult, error)
}

type ClaimQRCampaignInput struct {
	CampaignID    uuid.UUID
	CustomerHash  string
	CustomerName  string
	Birthday      *string
	DefaultPoints int
	Metadata      map[string]any
	ClaimedAt     time.Time
}

type ClaimQRCampaignResult struct {
	CampaignID     uuid.UUID
	CustomerDataID uuid.UUID
	UsageID        uuid.UUID
	Reward         loyalty.Reward
	PointsAwarded  int
	CustomerPoints int
	Message        string
}
