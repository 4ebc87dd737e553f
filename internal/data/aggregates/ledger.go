package aggregates

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainjobs "github.com/yungbote/dineops-backend/internal/domain/jobs"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

const customerTable = "customer_loyalty_data"

// ensureCustomer locks the customer record, inserting a zeroed one first when
// the (program, hash) pair is new. seed runs only on the inserted row.
func ensureCustomer(dbc dbctx.Context, customers repos.CustomerLoyaltyRepo, programID uuid.UUID, hash string, seed func(*types.CustomerLoyaltyRecord)) (*types.CustomerLoyaltyRecord, bool, error) {
	rec, err := customers.LockByProgramAndHash(dbc, programID, hash)
	if err != nil {
		return nil, false, err
	}
	if rec != nil {
		return rec, false, nil
	}
	row := loyalty.NewCustomerRecord(programID, hash)
	if seed != nil {
		seed(row)
	}
	created, err := customers.InsertIfAbsent(dbc, row)
	if err != nil {
		return nil, false, err
	}
	rec, err = customers.LockByProgramAndHash(dbc, programID, hash)
	if err != nil {
		return nil, false, err
	}
	if rec == nil {
		return nil, false, RetryableError("customer record not visible after insert")
	}
	return rec, created, nil
}

// saveCustomer writes every mutable column of rec guarded by expectedVersion.
func saveCustomer(dbc dbctx.Context, guard CASGuard, rec *types.CustomerLoyaltyRecord, expectedVersion int, now time.Time) error {
	if rec.CurrentPoints < 0 {
		return InvariantError("current_points cannot go negative")
	}
	ok, err := guard.UpdateByVersion(dbc, customerTable, rec.ID, expectedVersion, map[string]any{
		"current_points":  rec.CurrentPoints,
		"lifetime_points": rec.LifetimePoints,
		"total_spent":     rec.TotalSpent,
		"visit_count":     rec.VisitCount,
		"tier_level":      rec.TierLevel,
		"referrals_made":  rec.ReferralsMade,
		"last_activity":   rec.LastActivity,
		"last_purchase":   rec.LastPurchase,
		"updated_at":      now,
	})
	if err != nil {
		return err
	}
	if err := RequireCASSuccess(ok, "customer record changed concurrently"); err != nil {
		return err
	}
	rec.Version = expectedVersion + 1
	rec.UpdatedAt = now
	return nil
}

// credit adds points to the balance and lifetime total. Debits go through
// debit so lifetime_points never decreases.
func credit(rec *types.CustomerLoyaltyRecord, points int, now time.Time) {
	rec.CurrentPoints += points
	rec.LifetimePoints += points
	rec.LastActivity = &now
}

func debit(rec *types.CustomerLoyaltyRecord, points int, now time.Time) error {
	if points > rec.CurrentPoints {
		return ValidationError("Insufficient points")
	}
	rec.CurrentPoints -= points
	rec.LastActivity = &now
	return nil
}

// appendLedger writes one ledger row whose balance snapshot is the record's
// current_points after the change.
func appendLedger(dbc dbctx.Context, txs repos.LoyaltyTransactionRepo, rec *types.CustomerLoyaltyRecord, row *types.LoyaltyTransaction) (*types.LoyaltyTransaction, error) {
	row.ProgramID = rec.ProgramID
	row.CustomerDataID = rec.ID
	row.PointsBalance = rec.CurrentPoints
	created, err := txs.Create(dbc, []*types.LoyaltyTransaction{row})
	if err != nil {
		return nil, err
	}
	return created[0], nil
}

func enqueueRollup(dbc dbctx.Context, outbox repos.OutboxRepo, aggregateID uuid.UUID, delta loyalty.AnalyticsDelta, now time.Time) error {
	if outbox == nil || delta.IsZero() {
		return nil
	}
	payload, err := json.Marshal(delta)
	if err != nil {
		return err
	}
	_, err = outbox.Enqueue(dbc, []*types.OutboxEvent{{
		EventType:   domainjobs.EventAnalyticsRollup,
		AggregateID: aggregateID,
		Payload:     datatypes.JSON(payload),
		AvailableAt: now,
	}})
	return err
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func occurredAt(deps BaseDeps, t time.Time) time.Time {
	if t.IsZero() {
		return deps.now()
	}
	return t.UTC()
}
