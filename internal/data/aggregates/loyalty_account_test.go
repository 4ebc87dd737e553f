package aggregates_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/dineops-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/dineops-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/dineops-backend/internal/data/repos"
	repotestutil "github.com/yungbote/dineops-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	domainjobs "github.com/yungbote/dineops-backend/internal/domain/jobs"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

func (f *fixture) accountAggregate() domainagg.LoyaltyAccountAggregate {
	return aggregates.NewLoyaltyAccountAggregate(aggregates.LoyaltyAccountAggregateDeps{
		Base:         f.base(),
		Customers:    f.customers,
		Transactions: f.transactions,
		Outbox:       f.outbox,
	})
}

func spendRule(id, threshold, value string) loyalty.Rule {
	cond := decimal.RequireFromString(threshold)
	return loyalty.Rule{
		ID:        id,
		Type:      loyalty.RuleSpend,
		IsActive:  true,
		Condition: loyalty.RuleCondition{Value: &cond},
		Action:    loyalty.RuleAction{Value: decimal.RequireFromString(value)},
	}
}

func TestTrackPurchase_FirstPurchaseCreatesRecord(t *testing.T) {
	f := newFixture(t)
	agg := f.accountAggregate()
	restaurantID := uuid.New()
	program := repotestutil.SeedProgram(t, f.ctx, f.db, &restaurantID, nil)
	hash := loyalty.CustomerHash("dana@example.com", "")

	res, err := agg.TrackPurchase(f.ctx, domainagg.TrackPurchaseInput{
		ProgramID:    program.ID,
		RestaurantID: restaurantID,
		CustomerHash: hash,
		OrderAmount:  decimal.NewFromInt(25),
		OrderID:      "ord-1",
		Rules:        []loyalty.Rule{spendRule("r1", "10", "1")},
	})
	if err != nil {
		t.Fatalf("TrackPurchase: %v", err)
	}
	if res.PointsEarned != 25 || res.NewBalance != 25 || !res.Created {
		t.Fatalf("result: %+v", res)
	}

	rec := f.customer(res.CustomerDataID)
	if rec.CurrentPoints != 25 || rec.LifetimePoints != 25 || rec.VisitCount != 1 {
		t.Fatalf("record counters: %+v", rec)
	}
	if !rec.TotalSpent.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("total_spent: want=25 got=%s", rec.TotalSpent)
	}
	if rec.TierLevel != loyalty.TierBronze || rec.LastPurchase == nil || rec.Version != 1 {
		t.Fatalf("record state: %+v", rec)
	}
	f.requireReconciled(rec.ID)

	ledger, err := f.transactions.ListForCustomer(f.dbc(), rec.ID, 10)
	if err != nil || len(ledger) != 1 {
		t.Fatalf("ledger: n=%d err=%v", len(ledger), err)
	}
	if ledger[0].TransactionType != loyalty.TransactionEarn || ledger[0].Reason != "Purchase - applied rules: r1" {
		t.Fatalf("ledger row: %+v", ledger[0])
	}

	if n := f.count(&types.OutboxEvent{}, "event_type = ?", domainjobs.EventAnalyticsRollup); n != 1 {
		t.Fatalf("outbox events: want=1 got=%d", n)
	}
	if status := f.hooks.LastStatus("Loyalty.Account.TrackPurchase"); status != "success" {
		t.Fatalf("hook status: want=success got=%s", status)
	}
}

func TestTrackPurchase_SecondPurchaseAccumulates(t *testing.T) {
	f := newFixture(t)
	agg := f.accountAggregate()
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	visit := loyalty.Rule{ID: "v", Type: loyalty.RuleVisit, IsActive: true, Action: loyalty.RuleAction{Value: decimal.NewFromInt(5)}}
	in := domainagg.TrackPurchaseInput{
		ProgramID:    program.ID,
		CustomerHash: "hash-1",
		OrderAmount:  decimal.RequireFromString("12.40"),
		Rules:        []loyalty.Rule{spendRule("s", "10", "1"), visit},
	}
	if _, err := agg.TrackPurchase(f.ctx, in); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	res, err := agg.TrackPurchase(f.ctx, in)
	if err != nil {
		t.Fatalf("second purchase: %v", err)
	}
	if res.Created || res.PointsEarned != 17 || res.NewBalance != 34 {
		t.Fatalf("second result: %+v", res)
	}
	rec := f.customer(res.CustomerDataID)
	if rec.VisitCount != 2 || !rec.TotalSpent.Equal(decimal.RequireFromString("24.8")) {
		t.Fatalf("record: visits=%d spent=%s", rec.VisitCount, rec.TotalSpent)
	}
	f.requireReconciled(rec.ID)
}

func TestTrackPurchase_RejectsNegativeAmount(t *testing.T) {
	f := newFixture(t)
	_, err := f.accountAggregate().TrackPurchase(f.ctx, domainagg.TrackPurchaseInput{
		ProgramID:    uuid.New(),
		CustomerHash: "h",
		OrderAmount:  decimal.NewFromInt(-1),
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("want validation, got %v", err)
	}
}

func TestBalanceReconcilesAcrossOperations(t *testing.T) {
	f := newFixture(t)
	agg := f.accountAggregate()
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	hash := "recon"

	res, err := agg.TrackPurchase(f.ctx, domainagg.TrackPurchaseInput{
		ProgramID: program.ID, CustomerHash: hash, OrderAmount: decimal.NewFromInt(40),
		Rules: []loyalty.Rule{spendRule("s", "0", "1")},
	})
	if err != nil {
		t.Fatalf("TrackPurchase: %v", err)
	}
	id := res.CustomerDataID
	f.requireReconciled(id)

	if _, err := agg.AwardPoints(f.ctx, domainagg.AdjustPointsInput{ProgramID: program.ID, CustomerHash: hash, Points: 15}); err != nil {
		t.Fatalf("AwardPoints: %v", err)
	}
	f.requireReconciled(id)

	red, err := agg.RedeemPoints(f.ctx, domainagg.AdjustPointsInput{ProgramID: program.ID, CustomerHash: hash, Points: 30, Reason: "free dessert"})
	if err != nil {
		t.Fatalf("RedeemPoints: %v", err)
	}
	if red.NewBalance != 25 {
		t.Fatalf("balance after redeem: want=25 got=%d", red.NewBalance)
	}
	f.requireReconciled(id)

	rec := f.customer(id)
	if rec.LifetimePoints != 55 {
		t.Fatalf("lifetime points must not drop on redeem: want=55 got=%d", rec.LifetimePoints)
	}
	latest, _ := f.transactions.LatestForCustomer(f.dbc(), id)
	if latest.TransactionType != loyalty.TransactionRedeem || latest.PointsChange != -30 || latest.Reason != "free dessert" {
		t.Fatalf("redeem row: %+v", latest)
	}
}

func TestRedeemPoints_InsufficientBalance(t *testing.T) {
	f := newFixture(t)
	agg := f.accountAggregate()
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	rec := repotestutil.SeedCustomer(t, f.ctx, f.db, program.ID, "poor", 20)

	_, err := agg.RedeemPoints(f.ctx, domainagg.AdjustPointsInput{ProgramID: program.ID, CustomerHash: "poor", Points: 21})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("want validation, got %v", err)
	}
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) || aggErr.Message != "Insufficient points" {
		t.Fatalf("message: got %v", err)
	}
	after := f.customer(rec.ID)
	if after.CurrentPoints != 20 || after.Version != 0 {
		t.Fatalf("record must be untouched: %+v", after)
	}
	if n := f.count(&types.LoyaltyTransaction{}, "customer_data_id = ?", rec.ID); n != 0 {
		t.Fatalf("ledger rows: want=0 got=%d", n)
	}
	if f.hooks.RetryCount("Loyalty.Account.RedeemPoints") != 0 {
		t.Fatalf("validation failures must not retry")
	}
}

func TestAdjustPoints_Validation(t *testing.T) {
	f := newFixture(t)
	agg := f.accountAggregate()
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)

	if _, err := agg.AwardPoints(f.ctx, domainagg.AdjustPointsInput{ProgramID: program.ID, CustomerHash: "x", Points: 0}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("zero points: want validation, got %v", err)
	}
	if _, err := agg.AwardPoints(f.ctx, domainagg.AdjustPointsInput{ProgramID: program.ID, CustomerHash: "ghost", Points: 5}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown customer: want not_found, got %v", err)
	}
}

func TestProcessReferral_NewReferee(t *testing.T) {
	f := newFixture(t)
	agg := f.accountAggregate()
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	referrer := repotestutil.SeedCustomer(t, f.ctx, f.db, program.ID, "referrer", 0)

	res, err := agg.ProcessReferral(f.ctx, domainagg.ProcessReferralInput{
		ProgramID:    program.ID,
		ReferrerHash: "referrer",
		RefereeHash:  "referee",
		RefereeName:  "Sam",
		Referral:     loyalty.ReferralSettings{Enabled: true, ReferrerPoints: 50, RefereePoints: 25},
	})
	if err != nil {
		t.Fatalf("ProcessReferral: %v", err)
	}
	if !res.RefereeCreated || res.ReferrerBonus != 50 || res.RefereeBonus != 25 {
		t.Fatalf("result: %+v", res)
	}

	r := f.customer(referrer.ID)
	if r.CurrentPoints != 50 || r.ReferralsMade != 1 {
		t.Fatalf("referrer: points=%d referrals=%d", r.CurrentPoints, r.ReferralsMade)
	}
	e := f.customer(res.RefereeID)
	if e.CurrentPoints != 25 || e.LifetimePoints != 25 || e.CustomerName != "Sam" {
		t.Fatalf("referee: %+v", e)
	}
	f.requireReconciled(referrer.ID)
	f.requireReconciled(e.ID)

	latest, _ := f.transactions.LatestForCustomer(f.dbc(), e.ID)
	if latest == nil || latest.Reason != "referee welcome bonus" || latest.TransactionType != loyalty.TransactionBonus {
		t.Fatalf("referee ledger row: %+v", latest)
	}
}

func TestProcessReferral_ExistingRefereeUsesSamePath(t *testing.T) {
	f := newFixture(t)
	agg := f.accountAggregate()
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	repotestutil.SeedCustomer(t, f.ctx, f.db, program.ID, "referrer", 10)
	existing := repotestutil.SeedCustomer(t, f.ctx, f.db, program.ID, "referee", 5)

	res, err := agg.ProcessReferral(f.ctx, domainagg.ProcessReferralInput{
		ProgramID: program.ID, ReferrerHash: "referrer", RefereeHash: "referee",
		Referral: loyalty.ReferralSettings{Enabled: true, ReferrerPoints: 50, RefereePoints: 25},
	})
	if err != nil {
		t.Fatalf("ProcessReferral: %v", err)
	}
	if res.RefereeCreated || res.RefereeID != existing.ID || res.RefereeBalance != 30 || res.ReferrerBalance != 60 {
		t.Fatalf("result: %+v", res)
	}
}

func TestProcessReferral_Failures(t *testing.T) {
	f := newFixture(t)
	agg := f.accountAggregate()
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	repotestutil.SeedCustomer(t, f.ctx, f.db, program.ID, "referrer", 0)
	enabled := loyalty.ReferralSettings{Enabled: true, ReferrerPoints: 50, RefereePoints: 25}

	cases := []struct {
		name     string
		referrer string
		referee  string
		settings loyalty.ReferralSettings
		code     domainagg.ErrorCode
	}{
		{"unknown referrer", "nobody", "referee", enabled, domainagg.CodeNotFound},
		{"disabled", "referrer", "referee", loyalty.ReferralSettings{}, domainagg.CodeValidation},
		{"self referral", "referrer", "referrer", enabled, domainagg.CodeValidation},
	}
	for _, tc := range cases {
		_, err := agg.ProcessReferral(f.ctx, domainagg.ProcessReferralInput{
			ProgramID: program.ID, ReferrerHash: tc.referrer, RefereeHash: tc.referee, Referral: tc.settings,
		})
		if !domainagg.IsCode(err, tc.code) {
			t.Fatalf("%s: want=%s got=%v", tc.name, tc.code, err)
		}
	}
	if n := f.count(&types.CustomerLoyaltyRecord{}, ""); n != 1 {
		t.Fatalf("failed referrals must not create records: got=%d", n)
	}
}

func TestUpdateTier(t *testing.T) {
	f := newFixture(t)
	agg := f.accountAggregate()
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	rec := repotestutil.SeedCustomer(t, f.ctx, f.db, program.ID, "tiered", 600)
	thresholds := loyalty.MustDefaults().TierThresholds(loyalty.Settings{})

	if _, err := agg.UpdateTier(f.ctx, domainagg.UpdateTierInput{ProgramID: program.ID, CustomerHash: "tiered", Tier: "platinum"}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("unknown tier: want validation, got %v", err)
	}

	res, err := agg.UpdateTier(f.ctx, domainagg.UpdateTierInput{ProgramID: program.ID, CustomerHash: "tiered", Thresholds: thresholds})
	if err != nil {
		t.Fatalf("derived tier: %v", err)
	}
	if res.PreviousTier != loyalty.TierBronze || res.TierLevel != loyalty.TierSilver || !res.Changed {
		t.Fatalf("derived result: %+v", res)
	}

	res, err = agg.UpdateTier(f.ctx, domainagg.UpdateTierInput{ProgramID: program.ID, CustomerHash: "tiered", Tier: "Gold"})
	if err != nil {
		t.Fatalf("explicit tier: %v", err)
	}
	if res.TierLevel != loyalty.TierGold || f.customer(rec.ID).TierLevel != loyalty.TierGold {
		t.Fatalf("explicit result: %+v", res)
	}

	res, err = agg.UpdateTier(f.ctx, domainagg.UpdateTierInput{ProgramID: program.ID, CustomerHash: "tiered", Tier: "gold"})
	if err != nil || res.Changed {
		t.Fatalf("same tier should be a no-op: %+v err=%v", res, err)
	}
}

// staleCustomers hands out records whose version no longer matches the stored
// row, as if another writer committed between the read and the compare-and-set.
type staleCustomers struct {
	repos.CustomerLoyaltyRepo
}

func (s staleCustomers) LockByProgramAndHash(dbc dbctx.Context, programID uuid.UUID, hash string) (*types.CustomerLoyaltyRecord, error) {
	rec, err := s.CustomerLoyaltyRepo.LockByProgramAndHash(dbc, programID, hash)
	if rec != nil {
		rec.Version++
	}
	return rec, err
}

func TestVersionConflictIsRetryableAndNotRerun(t *testing.T) {
	f := newFixture(t)
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	rec := repotestutil.SeedCustomer(t, f.ctx, f.db, program.ID, "raced", 10)
	runner := &aggtestutil.InjectedTxRunner{DB: f.db}
	base := f.base()
	base.Runner = runner
	agg := aggregates.NewLoyaltyAccountAggregate(aggregates.LoyaltyAccountAggregateDeps{
		Base:         base,
		Customers:    staleCustomers{f.customers},
		Transactions: f.transactions,
		Outbox:       f.outbox,
	})

	_, err := agg.AwardPoints(f.ctx, domainagg.AdjustPointsInput{ProgramID: program.ID, CustomerHash: "raced", Points: 5})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
	if !domainagg.IsRetryable(err) {
		t.Fatalf("conflict should be marked retryable")
	}
	if runner.BeginCalls != 1 {
		t.Fatalf("conflicts are returned to the caller, not re-run: begins=%d", runner.BeginCalls)
	}
	if len(f.hooks.Conflicts) != 1 {
		t.Fatalf("conflict hook: got=%v", f.hooks.Conflicts)
	}
	if after := f.customer(rec.ID); after.CurrentPoints != 10 {
		t.Fatalf("balance changed on conflict: %d", after.CurrentPoints)
	}
}

func TestTransientCommitFailureIsRetriedOnce(t *testing.T) {
	f := newFixture(t)
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	rec := repotestutil.SeedCustomer(t, f.ctx, f.db, program.ID, "flaky", 0)
	runner := &aggtestutil.InjectedTxRunner{DB: f.db, FailCommit: errors.New("database is locked"), FailCommitTimes: 1}
	base := f.base()
	base.Runner = runner
	agg := aggregates.NewLoyaltyAccountAggregate(aggregates.LoyaltyAccountAggregateDeps{
		Base: base, Customers: f.customers, Transactions: f.transactions, Outbox: f.outbox,
	})

	res, err := agg.AwardPoints(f.ctx, domainagg.AdjustPointsInput{ProgramID: program.ID, CustomerHash: "flaky", Points: 7})
	if err != nil {
		t.Fatalf("AwardPoints: %v", err)
	}
	if res.NewBalance != 7 || runner.BeginCalls != 2 || runner.RollbackCalls != 1 {
		t.Fatalf("balance=%d begins=%d rollbacks=%d", res.NewBalance, runner.BeginCalls, runner.RollbackCalls)
	}
	if n := f.count(&types.LoyaltyTransaction{}, "customer_data_id = ?", rec.ID); n != 1 {
		t.Fatalf("rolled back attempt leaked a ledger row: rows=%d", n)
	}
	if f.hooks.RetryCount("Loyalty.Account.AwardPoints") != 1 {
		t.Fatalf("retry hook: %v", f.hooks.Retries)
	}
	f.requireReconciled(rec.ID)
}
