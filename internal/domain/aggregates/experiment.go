package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ExperimentAggregateContract = Contract{
	Name:             "Loyalty.ExperimentAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns assign-once semantics for ab_assignment (unique test/customer) and " +
		"conversion ledger rows tagged with the assigned variant.",
}

type ExperimentAggregate interface {
	Aggregate

	// AssignVariant returns the stored variant when one exists, otherwise draws one.
	// Concurrent first assignments converge on the row that won the insert.
	AssignVariant(ctx context.Context, in AssignVariantInput) (AssignVariantResult, error)

	// RecordConversion appends a zero-point conversion row tagged with the test and variant.
	RecordConversion(ctx context.Context, in RecordConversionInput) (RecordConversionResult, error)
}

type AssignVariantInput struct {
	TestID     uuid.UUID
	CustomerID string
	AssignedAt time.Time
}

type AssignVariantResult struct {
	AssignmentID uuid.UUID
	Variant      string
	Existing     bool
}

type RecordConversionInput struct {
	TestID         uuid.UUID
	CustomerID     string
	CustomerHash   string
	ConversionType string
	Value          decimal.Decimal
	OccurredAt     time.Time
}

type RecordConversionResult struct {
	TransactionID  uuid.UUID
	CustomerDataID uuid.UUID
	Variant        string
}
