package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/dineops-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/experiments"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

func TestABTest_AssignGetConvert(t *testing.T) {
	e := newEnv(t)
	program := testutil.SeedProgram(t, e.ctx, e.db, nil, nil)
	test := testutil.SeedABTest(t, e.ctx, e.db, program.ID, 50, "")
	req := ABTestRequest{TestID: test.ID.String(), CustomerID: "guest-42"}

	_, err := e.ab.GetVariant(e.ctx, req)
	requireMessage(t, err, "Customer not assigned to this test")

	// the fixture sampler always draws 0, which lands in the variant bucket
	assigned, err := e.ab.AssignVariant(e.ctx, req)
	if err != nil {
		t.Fatalf("AssignVariant: %v", err)
	}
	if assigned.Variant != experiments.VariantTreatment || assigned.Existing {
		t.Fatalf("first assignment: %+v", assigned)
	}
	again, err := e.ab.AssignVariant(e.ctx, req)
	if err != nil || !again.Existing || again.Variant != assigned.Variant {
		t.Fatalf("second assignment: %+v err=%v", again, err)
	}

	got, err := e.ab.GetVariant(e.ctx, req)
	if err != nil || got.Variant != assigned.Variant {
		t.Fatalf("GetVariant: %+v err=%v", got, err)
	}

	req.ConversionType = "purchase"
	req.Value = decimal.RequireFromString("18.40")
	conv, err := e.ab.TrackConversion(e.ctx, req)
	if err != nil {
		t.Fatalf("TrackConversion: %v", err)
	}
	if conv.Variant != experiments.VariantTreatment || conv.TransactionID == uuid.Nil {
		t.Fatalf("conversion: %+v", conv)
	}
	// customer_id doubles as the identity when no email is sent
	if rec := e.customer(program.ID, "guest-42", ""); rec == nil || rec.CurrentPoints != 0 {
		t.Fatalf("lazy customer: %+v", rec)
	}
}

func TestABTest_ConversionWithEmailUsesLoyaltyIdentity(t *testing.T) {
	e := newEnv(t)
	program := testutil.SeedProgram(t, e.ctx, e.db, nil, nil)
	test := testutil.SeedABTest(t, e.ctx, e.db, program.ID, 50, "")
	testutil.SeedAssignment(t, e.ctx, e.db, test.ID, "c-1", experiments.VariantControl)

	_, err := e.ab.TrackConversion(e.ctx, ABTestRequest{
		TestID:        test.ID.String(),
		CustomerID:    "c-1",
		CustomerEmail: "Pat@Example.com",
		Value:         decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("TrackConversion: %v", err)
	}
	rec := e.customer(program.ID, "pat@example.com", "")
	if rec == nil {
		t.Fatalf("conversion was not filed under the email identity")
	}
	var row types.LoyaltyTransaction
	if err := e.db.Where("customer_data_id = ?", rec.ID).First(&row).Error; err != nil {
		t.Fatalf("load conversion row: %v", err)
	}
	if row.Variant == nil || *row.Variant != experiments.VariantControl {
		t.Fatalf("variant tag: %v", row.Variant)
	}
}

func TestABTest_ResultsCachedUntilNextWrite(t *testing.T) {
	e := newEnv(t)
	program := testutil.SeedProgram(t, e.ctx, e.db, nil, nil)
	test := testutil.SeedABTest(t, e.ctx, e.db, program.ID, 50, "")
	testutil.SeedAssignment(t, e.ctx, e.db, test.ID, "c-1", experiments.VariantControl)
	testutil.SeedAssignment(t, e.ctx, e.db, test.ID, "c-2", experiments.VariantTreatment)
	req := ABTestRequest{TestID: test.ID.String()}

	first, err := e.ab.CalculateResults(e.ctx, req)
	if err != nil {
		t.Fatalf("CalculateResults: %v", err)
	}
	if first.Results.TotalAssignments != 2 || first.Results.TotalConversions != 0 {
		t.Fatalf("first results: %+v", first.Results)
	}
	if first.Results.Significance != experiments.SignificanceInsufficient {
		t.Fatalf("significance: got=%s", first.Results.Significance)
	}
	stored, err := e.tests.GetByID(dbctx.Context{Ctx: e.ctx}, test.ID)
	if err != nil || len(stored.Results) == 0 {
		t.Fatalf("results not persisted: %+v err=%v", stored, err)
	}

	// an assignment written behind the service is not seen while cached
	testutil.SeedAssignment(t, e.ctx, e.db, test.ID, "c-3", experiments.VariantControl)
	cached, _ := e.ab.CalculateResults(e.ctx, req)
	if cached.Results.TotalAssignments != 2 {
		t.Fatalf("expected cached results, got %+v", cached.Results)
	}

	if _, err := e.ab.TrackConversion(e.ctx, ABTestRequest{TestID: test.ID.String(), CustomerID: "c-2", Value: decimal.NewFromInt(12)}); err != nil {
		t.Fatalf("TrackConversion: %v", err)
	}
	fresh, err := e.ab.CalculateResults(e.ctx, req)
	if err != nil {
		t.Fatalf("CalculateResults after conversion: %v", err)
	}
	if fresh.Results.TotalAssignments != 3 || fresh.Results.Variant.Conversions != 1 {
		t.Fatalf("fresh results: %+v", fresh.Results)
	}
	if !fresh.Results.Variant.TotalValue.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("variant value: got=%s", fresh.Results.Variant.TotalValue)
	}
}

func TestABTest_Errors(t *testing.T) {
	e := newEnv(t)
	program := testutil.SeedProgram(t, e.ctx, e.db, nil, nil)
	paused := testutil.SeedABTest(t, e.ctx, e.db, program.ID, 50, experiments.StatusPaused)

	_, err := e.ab.AssignVariant(e.ctx, ABTestRequest{TestID: paused.ID.String(), CustomerID: "x"})
	requireMessage(t, err, "Test is not active")

	_, err = e.ab.AssignVariant(e.ctx, ABTestRequest{TestID: paused.ID.String()})
	requireCode(t, err, domainagg.CodeValidation)

	_, err = e.ab.CalculateResults(e.ctx, ABTestRequest{TestID: uuid.NewString()})
	requireMessage(t, err, "Test not found")

	_, err = e.ab.TrackConversion(e.ctx, ABTestRequest{TestID: paused.ID.String(), CustomerID: "never"})
	requireMessage(t, err, "Customer not assigned to this test")
}

func TestABTest_ResultsNotCachedWhenWriteLandsMidComputation(t *testing.T) {
	e := newEnv(t)
	program := testutil.SeedProgram(t, e.ctx, e.db, nil, nil)
	test := testutil.SeedABTest(t, e.ctx, e.db, program.ID, 50, "")
	testutil.SeedAssignment(t, e.ctx, e.db, test.ID, "c-1", experiments.VariantControl)
	req := ABTestRequest{TestID: test.ID.String()}

	// a conversion committed while results were being counted stamps a later time
	stamp := e.clock.Now().Add(time.Hour).UnixNano()
	if err := e.cache.Set(e.ctx, abWriteKey(test.ID), stamp, 0); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	first, err := e.ab.CalculateResults(e.ctx, req)
	if err != nil || first.Results.TotalAssignments != 1 {
		t.Fatalf("CalculateResults: %+v err=%v", first, err)
	}
	var cached experiments.Results
	if hit, _ := e.cache.Get(e.ctx, abResultsKey(test.ID), &cached); hit {
		t.Fatalf("results computed before a newer write stayed cached: %+v", cached)
	}

	testutil.SeedAssignment(t, e.ctx, e.db, test.ID, "c-2", experiments.VariantTreatment)
	second, err := e.ab.CalculateResults(e.ctx, req)
	if err != nil || second.Results.TotalAssignments != 2 {
		t.Fatalf("recomputed results: %+v err=%v", second, err)
	}
}
