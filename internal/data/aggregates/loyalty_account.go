package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

const (
	reasonReferrer = "referral bonus"
	reasonReferee  = "referee welcome bonus"
)

type LoyaltyAccountAggregateDeps struct {
	Base         BaseDeps
	Customers    repos.CustomerLoyaltyRepo
	Transactions repos.LoyaltyTransactionRepo
	Outbox       repos.OutboxRepo
}

type loyaltyAccountAggregate struct {
	deps LoyaltyAccountAggregateDeps
}

func NewLoyaltyAccountAggregate(deps LoyaltyAccountAggregateDeps) domainagg.LoyaltyAccountAggregate {
	deps.Base = deps.Base.withDefaults()
	return &loyaltyAccountAggregate{deps: deps}
}

func (a *loyaltyAccountAggregate) Contract() domainagg.Contract {
	return domainagg.LoyaltyAccountAggregateContract
}

func (a *loyaltyAccountAggregate) TrackPurchase(ctx context.Context, in domainagg.TrackPurchaseInput) (domainagg.TrackPurchaseResult, error) {
	const op = "Loyalty.Account.TrackPurchase"
	out := domainagg.TrackPurchaseResult{}
	if a == nil || a.deps.Customers == nil || a.deps.Transactions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "aggregate not initialized", nil)
	}
	if in.ProgramID == uuid.Nil || strings.TrimSpace(in.CustomerHash) == "" {
		return out, domainagg.Validation(op, "program_id and customer identity are required")
	}
	if in.OrderAmount.IsNegative() {
		return out, domainagg.Validation(op, "order_amount must be >= 0")
	}
	now := occurredAt(a.deps.Base, in.OccurredAt)
	eval := loyalty.EvaluateRules(in.Rules, in.OrderAmount)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rec, created, err := ensureCustomer(dbc, a.deps.Customers, in.ProgramID, in.CustomerHash, func(r *types.CustomerLoyaltyRecord) {
			r.CustomerName = strings.TrimSpace(in.CustomerName)
		})
		if err != nil {
			return err
		}
		version := rec.Version
		credit(rec, eval.PointsEarned, now)
		rec.TotalSpent = rec.TotalSpent.Add(in.OrderAmount)
		rec.VisitCount++
		rec.LastPurchase = &now
		if err := saveCustomer(dbc, a.deps.Base.CASGuard, rec, version, now); err != nil {
			return err
		}

		amount := in.OrderAmount
		row, err := appendLedger(dbc, a.deps.Transactions, rec, &types.LoyaltyTransaction{
			TransactionType: loyalty.TransactionEarn,
			PointsChange:    eval.PointsEarned,
			OrderAmount:     &amount,
			OrderID:         optionalString(in.OrderID),
			Reason:          loyalty.PurchaseReason(eval.AppliedRules),
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}

		if err := enqueueRollup(dbc, a.deps.Outbox, rec.ID, loyalty.AnalyticsDelta{
			ProgramID:    in.ProgramID,
			RestaurantID: in.RestaurantID,
			Day:          loyalty.DayKey(now),
			Transactions: 1,
			Revenue:      amount,
			PointsEarned: eval.PointsEarned,
		}, now); err != nil {
			return err
		}

		out = domainagg.TrackPurchaseResult{
			CustomerDataID: rec.ID,
			TransactionID:  row.ID,
			PointsEarned:   eval.PointsEarned,
			NewBalance:     rec.CurrentPoints,
			AppliedRules:   eval.AppliedRules,
			Created:        created,
		}
		return nil
	})
	if err != nil {
		return domainagg.TrackPurchaseResult{}, err
	}
	return out, nil
}

func (a *loyaltyAccountAggregate) AwardPoints(ctx context.Context, in domainagg.AdjustPointsInput) (domainagg.AdjustPointsResult, error) {
	const op = "Loyalty.Account.AwardPoints"
	return a.adjust(ctx, op, in, func(dbc dbctx.Context, rec *types.CustomerLoyaltyRecord) (*types.LoyaltyTransaction, loyalty.AnalyticsDelta, error) {
		credit(rec, in.Points, occurredAt(a.deps.Base, in.OccurredAt))
		reason := strings.TrimSpace(in.Reason)
		if reason == "" {
			reason = "Manual points award"
		}
		return &types.LoyaltyTransaction{
			TransactionType: loyalty.TransactionBonus,
			PointsChange:    in.Points,
			Reason:          reason,
		}, loyalty.AnalyticsDelta{}, nil
	})
}

func (a *loyaltyAccountAggregate) RedeemPoints(ctx context.Context, in domainagg.AdjustPointsInput) (domainagg.AdjustPointsResult, error) {
	const op = "Loyalty.Account.RedeemPoints"
	return a.adjust(ctx, op, in, func(dbc dbctx.Context, rec *types.CustomerLoyaltyRecord) (*types.LoyaltyTransaction, loyalty.AnalyticsDelta, error) {
		now := occurredAt(a.deps.Base, in.OccurredAt)
		if err := debit(rec, in.Points, now); err != nil {
			return nil, loyalty.AnalyticsDelta{}, err
		}
		reason := strings.TrimSpace(in.Reason)
		if reason == "" {
			reason = "Points redemption"
		}
		return &types.LoyaltyTransaction{
				TransactionType: loyalty.TransactionRedeem,
				PointsChange:    -in.Points,
				Reason:          reason,
			}, loyalty.AnalyticsDelta{
				ProgramID:      in.ProgramID,
				RestaurantID:   in.RestaurantID,
				Day:            loyalty.DayKey(now),
				Revenue:        decimal.Zero,
				PointsRedeemed: in.Points,
			}, nil
	})
}

type adjustFn func(dbc dbctx.Context, rec *types.CustomerLoyaltyRecord) (*types.LoyaltyTransaction, loyalty.AnalyticsDelta, error)

// adjust runs a balance change against an existing customer.
func (a *loyaltyAccountAggregate) adjust(ctx context.Context, op string, in domainagg.AdjustPointsInput, apply adjustFn) (domainagg.AdjustPointsResult, error) {
	out := domainagg.AdjustPointsResult{}
	if a == nil || a.deps.Customers == nil || a.deps.Transactions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "aggregate not initialized", nil)
	}
	if in.ProgramID == uuid.Nil || strings.TrimSpace(in.CustomerHash) == "" {
		return out, domainagg.Validation(op, "program_id and customer identity are required")
	}
	if in.Points <= 0 {
		return out, domainagg.Validation(op, "points must be > 0")
	}
	now := occurredAt(a.deps.Base, in.OccurredAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rec, err := a.deps.Customers.LockByProgramAndHash(dbc, in.ProgramID, in.CustomerHash)
		if err != nil {
			return err
		}
		if rec == nil {
			return NotFoundError("Customer not found")
		}
		version := rec.Version
		row, delta, err := apply(dbc, rec)
		if err != nil {
			return err
		}
		if err := saveCustomer(dbc, a.deps.Base.CASGuard, rec, version, now); err != nil {
			return err
		}
		row.CreatedAt = now
		written, err := appendLedger(dbc, a.deps.Transactions, rec, row)
		if err != nil {
			return err
		}
		if err := enqueueRollup(dbc, a.deps.Outbox, rec.ID, delta, now); err != nil {
			return err
		}
		out = domainagg.AdjustPointsResult{
			CustomerDataID: rec.ID,
			TransactionID:  written.ID,
			Points:         in.Points,
			NewBalance:     rec.CurrentPoints,
		}
		return nil
	})
	if err != nil {
		return domainagg.AdjustPointsResult{}, err
	}
	return out, nil
}

// ProcessReferral credits both sides through the same ledger path. A referee
// seen for the first time is created at zero and then credited, so every
// balance change has a ledger row.
func (a *loyaltyAccountAggregate) ProcessReferral(ctx context.Context, in domainagg.ProcessReferralInput) (domainagg.ProcessReferralResult, error) {
	const op = "Loyalty.Account.ProcessReferral"
	out := domainagg.ProcessReferralResult{}
	if a == nil || a.deps.Customers == nil || a.deps.Transactions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "aggregate not initialized", nil)
	}
	if in.ProgramID == uuid.Nil || strings.TrimSpace(in.ReferrerHash) == "" || strings.TrimSpace(in.RefereeHash) == "" {
		return out, domainagg.Validation(op, "program_id, referrer and referee are required")
	}
	if in.Referral.ReferrerPoints < 0 || in.Referral.RefereePoints < 0 {
		return out, domainagg.Validation(op, "referral points must be >= 0")
	}
	now := occurredAt(a.deps.Base, in.OccurredAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		referrer, err := a.deps.Customers.LockByProgramAndHash(dbc, in.ProgramID, in.ReferrerHash)
		if err != nil {
			return err
		}
		if referrer == nil {
			return NotFoundError("Referrer not found")
		}
		if !in.Referral.Enabled {
			return ValidationError("Referral program is not enabled")
		}
		if in.ReferrerHash == in.RefereeHash {
			return ValidationError("Customers cannot refer themselves")
		}

		version := referrer.Version
		credit(referrer, in.Referral.ReferrerPoints, now)
		referrer.ReferralsMade++
		if err := saveCustomer(dbc, a.deps.Base.CASGuard, referrer, version, now); err != nil {
			return err
		}
		if _, err := appendLedger(dbc, a.deps.Transactions, referrer, &types.LoyaltyTransaction{
			TransactionType: loyalty.TransactionBonus,
			PointsChange:    in.Referral.ReferrerPoints,
			Reason:          reasonReferrer,
			CreatedAt:       now,
		}); err != nil {
			return err
		}

		referee, created, err := ensureCustomer(dbc, a.deps.Customers, in.ProgramID, in.RefereeHash, func(r *types.CustomerLoyaltyRecord) {
			r.CustomerName = strings.TrimSpace(in.RefereeName)
		})
		if err != nil {
			return err
		}
		version = referee.Version
		credit(referee, in.Referral.RefereePoints, now)
		if err := saveCustomer(dbc, a.deps.Base.CASGuard, referee, version, now); err != nil {
			return err
		}
		if _, err := appendLedger(dbc, a.deps.Transactions, referee, &types.LoyaltyTransaction{
			TransactionType: loyalty.TransactionBonus,
			PointsChange:    in.Referral.RefereePoints,
			Reason:          reasonReferee,
			CreatedAt:       now,
		}); err != nil {
			return err
		}

		out = domainagg.ProcessReferralResult{
			ReferrerID:      referrer.ID,
			RefereeID:       referee.ID,
			ReferrerBonus:   in.Referral.ReferrerPoints,
			RefereeBonus:    in.Referral.RefereePoints,
			ReferrerBalance: referrer.CurrentPoints,
			RefereeBalance:  referee.CurrentPoints,
			RefereeCreated:  created,
		}
		return nil
	})
	if err != nil {
		return domainagg.ProcessReferralResult{}, err
	}
	return out, nil
}

func (a *loyaltyAccountAggregate) UpdateTier(ctx context.Context, in domainagg.UpdateTierInput) (domainagg.UpdateTierResult, error) {
	const op = "Loyalty.Account.UpdateTier"
	out := domainagg.UpdateTierResult{}
	if a == nil || a.deps.Customers == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "aggregate not initialized", nil)
	}
	if in.ProgramID == uuid.Nil || strings.TrimSpace(in.CustomerHash) == "" {
		return out, domainagg.Validation(op, "program_id and customer identity are required")
	}
	explicit := strings.ToLower(strings.TrimSpace(in.Tier))
	if explicit != "" && !loyalty.IsKnownTier(explicit) {
		return out, domainagg.Validation(op, "tier must be one of bronze, silver, gold")
	}
	now := occurredAt(a.deps.Base, in.OccurredAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rec, err := a.deps.Customers.LockByProgramAndHash(dbc, in.ProgramID, in.CustomerHash)
		if err != nil {
			return err
		}
		if rec == nil {
			return NotFoundError("Customer not found")
		}
		next := explicit
		if next == "" {
			next = loyalty.DeriveTier(rec.LifetimePoints, in.Thresholds)
		}
		out = domainagg.UpdateTierResult{
			CustomerDataID: rec.ID,
			PreviousTier:   rec.TierLevel,
			TierLevel:      next,
			Changed:        rec.TierLevel != next,
		}
		if !out.Changed {
			return nil
		}
		version := rec.Version
		rec.TierLevel = next
		rec.LastActivity = &now
		return saveCustomer(dbc, a.deps.Base.CASGuard, rec, version, now)
	})
	if err != nil {
		return domainagg.UpdateTierResult{}, err
	}
	return out, nil
}
