package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
)

var LoyaltyAccountAggregateContract = Contract{
	Name:             "Loyalty.AccountAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns customer_loyalty_data balance, tier and counter changes together with the " +
		"loyalty_transaction row and analytics outbox event for the same change.",
}

// LoyaltyAccountAggregate owns point balance invariants for one customer record.
//
// Every write locks the customer row, updates it with a version compare-and-set
// and appends a ledger row whose points_balance equals the new current_points.
// Failures are *aggregates.Error with codes CodeValidation, CodeNotFound,
// CodeConflict, CodeRetryable or CodeInternal.
type LoyaltyAccountAggregate interface {
	Aggregate

	// TrackPurchase evaluates earning rules for one purchase and credits the result,
	// creating the customer record on first purchase.
	TrackPurchase(ctx context.Context, in TrackPurchaseInput) (TrackPurchaseResult, error)

	// AwardPoints credits an existing customer with a bonus transaction.
	AwardPoints(ctx context.Context, in AdjustPointsInput) (AdjustPointsResult, error)

	// RedeemPoints debits an existing customer. The balance never goes negative.
	RedeemPoints(ctx context.Context, in AdjustPointsInput) (AdjustPointsResult, error)

	// ProcessReferral credits referrer and referee, creating the referee on first touch.
	ProcessReferral(ctx context.Context, in ProcessReferralInput) (ProcessReferralResult, error)

	// UpdateTier sets an explicit tier or derives it from lifetime points.
	UpdateTier(ctx context.Context, in UpdateTierInput) (UpdateTierResult, error)
}

type TrackPurchaseInput struct {
	ProgramID    uuid.UUID
	RestaurantID uuid.UUID
	CustomerHash string
	CustomerName string
	OrderAmount  decimal.Decimal
	OrderID      string
	Rules        []loyalty.Rule
	OccurredAt   time.Time
}

type TrackPurchaseResult struct {
	CustomerDataID uuid.UUID
	TransactionID  uuid.UUID
	PointsEarned   int
	NewBalance     int
	AppliedRules   []string
	Created        bool
}

type AdjustPointsInput struct {
	ProgramID    uuid.UUID
	RestaurantID uuid.UUID
	CustomerHash string
	Points       int
	Reason       string
	OccurredAt   time.Time
}

type AdjustPointsResult struct {
	CustomerDataID uuid.UUID
	TransactionID  uuid.UUID
	Points         int
	NewBalance     int
}

type ProcessReferralInput struct {
	ProgramID    uuid.UUID
	ReferrerHash string
	RefereeHash  string
	RefereeName  string
	Referral     loyalty.ReferralSettings
	OccurredAt   time.Time
}

type ProcessReferralResult struct {
	ReferrerID      uuid.UUID
	RefereeID       uuid.UUID
	ReferrerBonus   int
	RefereeBonus    int
	ReferrerBalance int
	RefereeBalance  int
	RefereeCreated  bool
}

type UpdateTierInput struct {
	ProgramID    uuid.UUID
	CustomerHash string
	// Tier is optional; when empty the tier is derived from Thresholds.
	Tier       string
	Thresholds map[string]int
	OccurredAt time.Time
}

type UpdateTierResult struct {
	CustomerDataID uuid.UUID
	PreviousTier   string
	TierLevel      string
	Changed        bool
}
