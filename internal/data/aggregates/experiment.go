package aggregates

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/experiments"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

type ExperimentAggregateDeps struct {
	Base         BaseDeps
	Tests        repos.ABTestRepo
	Assignments  repos.ABAssignmentRepo
	Customers    repos.CustomerLoyaltyRepo
	Transactions repos.LoyaltyTransactionRepo
	// Sample returns a uniform integer in [0, 100).
	Sample func() int
}

type experimentAggregate struct {
	deps ExperimentAggregateDeps
}

func NewExperimentAggregate(deps ExperimentAggregateDeps) domainagg.ExperimentAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Sample == nil {
		deps.Sample = func() int { return rand.IntN(100) }
	}
	return &experimentAggregate{deps: deps}
}

func (a *experimentAggregate) Contract() domainagg.Contract {
	return domainagg.ExperimentAggregateContract
}

func (a *experimentAggregate) AssignVariant(ctx context.Context, in domainagg.AssignVariantInput) (domainagg.AssignVariantResult, error) {
	const op = "Loyalty.Experiment.AssignVariant"
	out := domainagg.AssignVariantResult{}
	if a == nil || a.deps.Tests == nil || a.deps.Assignments == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "aggregate not initialized", nil)
	}
	customerID := strings.TrimSpace(in.CustomerID)
	if in.TestID == uuid.Nil || customerID == "" {
		return out, domainagg.Validation(op, "test_id and customer_id are required")
	}
	now := occurredAt(a.deps.Base, in.AssignedAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		existing, err := a.deps.Assignments.Get(dbc, in.TestID, customerID)
		if err != nil {
			return err
		}
		if existing != nil {
			out = domainagg.AssignVariantResult{AssignmentID: existing.ID, Variant: existing.Variant, Existing: true}
			return nil
		}

		test, err := a.deps.Tests.GetByID(dbc, in.TestID)
		if err != nil {
			return err
		}
		if test == nil {
			return NotFoundError("Test not found")
		}
		if !test.IsActive() {
			return ValidationError("Test is not active")
		}

		row := &types.ABAssignment{
			TestID:     in.TestID,
			CustomerID: customerID,
			Variant:    experiments.PickVariant(a.deps.Sample(), test.TrafficSplit),
			AssignedAt: now,
		}
		created, err := a.deps.Assignments.InsertIfAbsent(dbc, row)
		if err != nil {
			return err
		}
		if created {
			out = domainagg.AssignVariantResult{AssignmentID: row.ID, Variant: row.Variant}
			return nil
		}
		// lost the insert race; the stored row wins
		winner, err := a.deps.Assignments.Get(dbc, in.TestID, customerID)
		if err != nil {
			return err
		}
		if winner == nil {
			return RetryableError("assignment not visible after conflict")
		}
		out = domainagg.AssignVariantResult{AssignmentID: winner.ID, Variant: winner.Variant, Existing: true}
		return nil
	})
	if err != nil {
		return domainagg.AssignVariantResult{}, err
	}
	return out, nil
}

func (a *experimentAggregate) RecordConversion(ctx context.Context, in domainagg.RecordConversionInput) (domainagg.RecordConversionResult, error) {
	const op = "Loyalty.Experiment.RecordConversion"
	out := domainagg.RecordConversionResult{}
	if a == nil || a.deps.Tests == nil || a.deps.Assignments == nil || a.deps.Customers == nil || a.deps.Transactions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "aggregate not initialized", nil)
	}
	customerID := strings.TrimSpace(in.CustomerID)
	if in.TestID == uuid.Nil || customerID == "" {
		return out, domainagg.Validation(op, "test_id and customer_id are required")
	}
	if strings.TrimSpace(in.CustomerHash) == "" {
		return out, domainagg.Validation(op, "customer identity is required")
	}
	if in.Value.IsNegative() {
		return out, domainagg.Validation(op, "value must be >= 0")
	}
	conversionType := strings.TrimSpace(in.ConversionType)
	if conversionType == "" {
		conversionType = "purchase"
	}
	now := occurredAt(a.deps.Base, in.OccurredAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		assignment, err := a.deps.Assignments.Get(dbc, in.TestID, customerID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return NotFoundError("Customer not assigned to this test")
		}
		test, err := a.deps.Tests.GetByID(dbc, in.TestID)
		if err != nil {
			return err
		}
		if test == nil {
			return NotFoundError("Test not found")
		}

		rec, _, err := ensureCustomer(dbc, a.deps.Customers, test.ProgramID, in.CustomerHash, nil)
		if err != nil {
			return err
		}
		meta, err := json.Marshal(map[string]string{"conversion_type": conversionType})
		if err != nil {
			return err
		}
		testID := test.ID
		variant := assignment.Variant
		value := in.Value
		row, err := appendLedger(dbc, a.deps.Transactions, rec, &types.LoyaltyTransaction{
			TransactionType: loyalty.TransactionConversion,
			PointsChange:    0,
			OrderAmount:     &value,
			Reason:          "A/B conversion: " + conversionType,
			ABTestID:        &testID,
			Variant:         &variant,
			Metadata:        datatypes.JSON(meta),
			CreatedAt:       now,
		})
		if err != nil {
			return err
		}
		out = domainagg.RecordConversionResult{
			TransactionID:  row.ID,
			CustomerDataID: rec.ID,
			Variant:        variant,
		}
		return nil
	})
	if err != nil {
		return domainagg.RecordConversionResult{}, err
	}
	return out, nil
}
