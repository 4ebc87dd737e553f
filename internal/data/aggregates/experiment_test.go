package aggregates_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/dineops-backend/internal/data/aggregates"
	"github.com/yungbote/dineops-backend/internal/data/repos"
	repotestutil "github.com/yungbote/dineops-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/experiments"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

func (f *fixture) experimentAggregate(assignments repos.ABAssignmentRepo, samples ...int) domainagg.ExperimentAggregate {
	i := 0
	return aggregates.NewExperimentAggregate(aggregates.ExperimentAggregateDeps{
		Base:         f.base(),
		Tests:        f.tests,
		Assignments:  assignments,
		Customers:    f.customers,
		Transactions: f.transactions,
		Sample: func() int {
			s := samples[i%len(samples)]
			i++
			return s
		},
	})
}

func TestAssignVariant_IdempotentOnce(t *testing.T) {
	f := newFixture(t)
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	test := repotestutil.SeedABTest(t, f.ctx, f.db, program.ID, 50, "")
	agg := f.experimentAggregate(f.assignments, 10, 90)
	in := domainagg.AssignVariantInput{TestID: test.ID, CustomerID: "cust-7"}

	first, err := agg.AssignVariant(f.ctx, in)
	if err != nil {
		t.Fatalf("first assign: %v", err)
	}
	if first.Variant != experiments.VariantTreatment || first.Existing {
		t.Fatalf("first: %+v", first)
	}
	second, err := agg.AssignVariant(f.ctx, in)
	if err != nil {
		t.Fatalf("second assign: %v", err)
	}
	if second.Variant != first.Variant || !second.Existing || second.AssignmentID != first.AssignmentID {
		t.Fatalf("second: %+v", second)
	}

	other, err := agg.AssignVariant(f.ctx, domainagg.AssignVariantInput{TestID: test.ID, CustomerID: "cust-8"})
	if err != nil || other.Variant != experiments.VariantControl {
		t.Fatalf("sample 90 with split 50 should be control: %+v err=%v", other, err)
	}
}

func TestAssignVariant_TestState(t *testing.T) {
	f := newFixture(t)
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	paused := repotestutil.SeedABTest(t, f.ctx, f.db, program.ID, 50, experiments.StatusPaused)
	agg := f.experimentAggregate(f.assignments, 0)

	if _, err := agg.AssignVariant(f.ctx, domainagg.AssignVariantInput{TestID: paused.ID, CustomerID: "c"}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("paused test: want validation, got %v", err)
	}
	if _, err := agg.AssignVariant(f.ctx, domainagg.AssignVariantInput{TestID: uuid.New(), CustomerID: "c"}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown test: want not_found, got %v", err)
	}
	if _, err := agg.AssignVariant(f.ctx, domainagg.AssignVariantInput{TestID: paused.ID}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("missing customer: want validation, got %v", err)
	}
}

// blindAssignments misses the first lookup, as a request racing another
// first-time assignment would.
type blindAssignments struct {
	repos.ABAssignmentRepo
	missed bool
}

func (b *blindAssignments) Get(dbc dbctx.Context, testID uuid.UUID, customerID string) (*types.ABAssignment, error) {
	if !b.missed {
		b.missed = true
		return nil, nil
	}
	return b.ABAssignmentRepo.Get(dbc, testID, customerID)
}

func TestAssignVariant_LosingInsertReturnsStoredVariant(t *testing.T) {
	f := newFixture(t)
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	test := repotestutil.SeedABTest(t, f.ctx, f.db, program.ID, 100, "")
	stored := repotestutil.SeedAssignment(t, f.ctx, f.db, test.ID, "racer", experiments.VariantControl)

	agg := f.experimentAggregate(&blindAssignments{ABAssignmentRepo: f.assignments}, 0)
	res, err := agg.AssignVariant(f.ctx, domainagg.AssignVariantInput{TestID: test.ID, CustomerID: "racer"})
	if err != nil {
		t.Fatalf("AssignVariant: %v", err)
	}
	if !res.Existing || res.Variant != experiments.VariantControl || res.AssignmentID != stored.ID {
		t.Fatalf("result: %+v", res)
	}
	if n := f.count(&types.ABAssignment{}, "test_id = ?", test.ID); n != 1 {
		t.Fatalf("assignments: want=1 got=%d", n)
	}
}

func TestRecordConversion(t *testing.T) {
	f := newFixture(t)
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	test := repotestutil.SeedABTest(t, f.ctx, f.db, program.ID, 50, "")
	agg := f.experimentAggregate(f.assignments, 0)
	hash := loyalty.CustomerHash("lee@example.com", "")

	_, err := agg.RecordConversion(f.ctx, domainagg.RecordConversionInput{TestID: test.ID, CustomerID: "lee", CustomerHash: hash, Value: decimal.NewFromInt(12)})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unassigned: want not_found, got %v", err)
	}

	existing := repotestutil.SeedCustomer(t, f.ctx, f.db, program.ID, hash, 30)
	repotestutil.SeedAssignment(t, f.ctx, f.db, test.ID, "lee", experiments.VariantTreatment)
	res, err := agg.RecordConversion(f.ctx, domainagg.RecordConversionInput{
		TestID: test.ID, CustomerID: "lee", CustomerHash: hash, ConversionType: "purchase", Value: decimal.RequireFromString("18.5"),
	})
	if err != nil {
		t.Fatalf("RecordConversion: %v", err)
	}
	if res.CustomerDataID != existing.ID || res.Variant != experiments.VariantTreatment {
		t.Fatalf("result: %+v", res)
	}

	row, err := f.transactions.LatestForCustomer(f.dbc(), existing.ID)
	if err != nil || row == nil {
		t.Fatalf("ledger: row=%v err=%v", row, err)
	}
	if row.TransactionType != loyalty.TransactionConversion || row.PointsChange != 0 || row.PointsBalance != 30 {
		t.Fatalf("conversion row: %+v", row)
	}
	if row.ABTestID == nil || *row.ABTestID != test.ID || row.Variant == nil || *row.Variant != experiments.VariantTreatment {
		t.Fatalf("conversion tags: %+v", row)
	}
	if f.customer(existing.ID).CurrentPoints != 30 {
		t.Fatalf("conversion must not move the balance")
	}

	totals, err := f.transactions.ConversionTotalsByVariant(f.dbc(), test.ID)
	if err != nil || totals[experiments.VariantTreatment].Conversions != 1 {
		t.Fatalf("totals: %+v err=%v", totals, err)
	}
}

func TestRecordConversion_CreatesCustomerLazily(t *testing.T) {
	f := newFixture(t)
	program := repotestutil.SeedProgram(t, f.ctx, f.db, nil, nil)
	test := repotestutil.SeedABTest(t, f.ctx, f.db, program.ID, 50, "")
	repotestutil.SeedAssignment(t, f.ctx, f.db, test.ID, "walk-in", experiments.VariantControl)

	res, err := f.experimentAggregate(f.assignments, 0).RecordConversion(f.ctx, domainagg.RecordConversionInput{
		TestID: test.ID, CustomerID: "walk-in", CustomerHash: loyalty.CustomerHash("walk-in", ""), Value: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("RecordConversion: %v", err)
	}
	rec := f.customer(res.CustomerDataID)
	if rec.ProgramID != program.ID || rec.CurrentPoints != 0 {
		t.Fatalf("lazy record: %+v", rec)
	}
	f.requireReconciled(rec.ID)
}
