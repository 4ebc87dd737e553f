package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/experiments"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/cache"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type ABTestRequest struct {
	TestID         string          `json:"test_id"`
	CustomerID     string          `json:"customer_id"`
	ConversionType string          `json:"conversion_type"`
	Value          decimal.Decimal `json:"value"`
	CustomerEmail  string          `json:"customer_email"`
	CustomerPhone  string          `json:"customer_phone"`
}

type AssignVariantResponse struct {
	Success  bool   `json:"success"`
	Variant  string `json:"variant"`
	Existing bool   `json:"existing"`
}

type GetVariantResponse struct {
	Success    bool      `json:"success"`
	Variant    string    `json:"variant"`
	AssignedAt time.Time `json:"assigned_at"`
}

type TrackConversionResponse struct {
	Success       bool      `json:"success"`
	Variant       string    `json:"variant"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

type ABResultsResponse struct {
	Success bool                `json:"success"`
	TestID  uuid.UUID           `json:"test_id"`
	Results experiments.Results `json:"results"`
}

type ABTestService interface {
	AssignVariant(ctx context.Context, req ABTestRequest) (*AssignVariantResponse, error)
	GetVariant(ctx context.Context, req ABTestRequest) (*GetVariantResponse, error)
	TrackConversion(ctx context.Context, req ABTestRequest) (*TrackConversionResponse, error)
	CalculateResults(ctx context.Context, req ABTestRequest) (*ABResultsResponse, error)
}

type abTestService struct {
	db           *gorm.DB
	log          *logger.Logger
	tests        repos.ABTestRepo
	assignments  repos.ABAssignmentRepo
	transactions repos.LoyaltyTransactionRepo
	experiments  domainagg.ExperimentAggregate
	cache        cache.Cache
	defaults     loyalty.Defaults
	clock        func() time.Time
}

type ABTestServiceDeps struct {
	Tests        repos.ABTestRepo
	Assignments  repos.ABAssignmentRepo
	Transactions repos.LoyaltyTransactionRepo
	Experiments  domainagg.ExperimentAggregate
	Cache        cache.Cache
	Defaults     loyalty.Defaults
	Clock        func() time.Time
}

func NewABTestService(db *gorm.DB, baseLog *logger.Logger, deps ABTestServiceDeps) ABTestService {
	if deps.Cache == nil {
		deps.Cache = cache.NewMemory()
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &abTestService{
		db:           db,
		log:          baseLog.With("service", "ABTestService"),
		tests:        deps.Tests,
		assignments:  deps.Assignments,
		transactions: deps.Transactions,
		experiments:  deps.Experiments,
		cache:        deps.Cache,
		defaults:     deps.Defaults,
		clock:        deps.Clock,
	}
}

func abResultsKey(testID uuid.UUID) string {
	return fmt.Sprintf("loyalty:ab:%s:results", testID)
}

// abWriteKey holds the time of the last committed assignment or conversion.
// It sits outside the results pattern so invalidation leaves it in place.
func abWriteKey(testID uuid.UUID) string {
	return fmt.Sprintf("loyalty:ab-write:%s", testID)
}

// invalidate stamps the write and drops every cached view of the test.
// The stamp goes first: a results computation that started before this
// write sees it and discards its own cache entry.
func (s *abTestService) invalidate(ctx context.Context, testID uuid.UUID) {
	if err := s.cache.Set(ctx, abWriteKey(testID), s.clock().UnixNano(), s.writeStampTTL()); err != nil {
		s.log.Warn("ab write stamp failed", "test_id", testID, "error", err)
	}
	if _, err := s.cache.Invalidate(ctx, fmt.Sprintf("loyalty:ab:%s*", testID)); err != nil {
		s.log.Warn("ab cache invalidate failed", "test_id", testID, "error", err)
	}
}

// writeStampTTL outlives any results entry written before the stamp.
func (s *abTestService) writeStampTTL() time.Duration {
	ttl := s.defaults.ABResultsTTL()
	if ttl <= 0 {
		return 0
	}
	return 2 * ttl
}

// cacheResults stores results computed from reads that began at started, then
// drops them again if a write was stamped at or after started.
func (s *abTestService) cacheResults(ctx context.Context, testID uuid.UUID, started time.Time, results experiments.Results) {
	key := abResultsKey(testID)
	if err := s.cache.Set(ctx, key, results, s.defaults.ABResultsTTL()); err != nil {
		s.log.Warn("ab results cache write failed", "test_id", testID, "error", err)
		return
	}
	var stamp int64
	hit, err := s.cache.Get(ctx, abWriteKey(testID), &stamp)
	if err != nil {
		s.log.Warn("ab write stamp read failed", "test_id", testID, "error", err)
	}
	if err != nil || (hit && stamp >= started.UnixNano()) {
		if _, err := s.cache.Invalidate(ctx, key); err != nil {
			s.log.Warn("ab results cache invalidate failed", "test_id", testID, "error", err)
		}
	}
}

func requireCustomerID(op, customerID string) (string, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", domainagg.Validation(op, "customer_id is required")
	}
	return customerID, nil
}

func (s *abTestService) AssignVariant(ctx context.Context, req ABTestRequest) (_ *AssignVariantResponse, err error) {
	const op = "Loyalty.ABTest.AssignVariant"
	ctx, span := startSpan(ctx, "loyalty.ab.assign_variant", attribute.String("dineops.test_id", req.TestID))
	defer func() { endSpan(span, err) }()

	testID, err := parseID(op, "test_id", req.TestID)
	if err != nil {
		return nil, err
	}
	customerID, err := requireCustomerID(op, req.CustomerID)
	if err != nil {
		return nil, err
	}
	res, err := s.experiments.AssignVariant(ctx, domainagg.AssignVariantInput{TestID: testID, CustomerID: customerID})
	if err != nil {
		return nil, err
	}
	if !res.Existing {
		s.invalidate(ctx, testID)
	}
	span.SetAttributes(attribute.String("dineops.variant", res.Variant), attribute.Bool("dineops.existing", res.Existing))
	return &AssignVariantResponse{Success: true, Variant: res.Variant, Existing: res.Existing}, nil
}

func (s *abTestService) GetVariant(ctx context.Context, req ABTestRequest) (*GetVariantResponse, error) {
	const op = "Loyalty.ABTest.GetVariant"
	testID, err := parseID(op, "test_id", req.TestID)
	if err != nil {
		return nil, err
	}
	customerID, err := requireCustomerID(op, req.CustomerID)
	if err != nil {
		return nil, err
	}
	a, err := s.assignments.Get(dbctx.Context{Ctx: ctx}, testID, customerID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "internal error", err)
	}
	if a == nil {
		return nil, domainagg.NotFound(op, "Customer not assigned to this test")
	}
	return &GetVariantResponse{Success: true, Variant: a.Variant, AssignedAt: a.AssignedAt}, nil
}

// TrackConversion files the conversion under the customer's loyalty record,
// identified by email and phone when given and by customer_id otherwise.
func (s *abTestService) TrackConversion(ctx context.Context, req ABTestRequest) (_ *TrackConversionResponse, err error) {
	const op = "Loyalty.ABTest.TrackConversion"
	ctx, span := startSpan(ctx, "loyalty.ab.track_conversion", attribute.String("dineops.test_id", req.TestID))
	defer func() { endSpan(span, err) }()

	testID, err := parseID(op, "test_id", req.TestID)
	if err != nil {
		return nil, err
	}
	customerID, err := requireCustomerID(op, req.CustomerID)
	if err != nil {
		return nil, err
	}
	hash := loyalty.CustomerHash(customerID, "")
	if loyalty.NormalizeEmail(req.CustomerEmail) != "" {
		hash = loyalty.CustomerHash(req.CustomerEmail, req.CustomerPhone)
	}

	res, err := s.experiments.RecordConversion(ctx, domainagg.RecordConversionInput{
		TestID:         testID,
		CustomerID:     customerID,
		CustomerHash:   hash,
		ConversionType: strings.TrimSpace(req.ConversionType),
		Value:          req.Value,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, testID)
	return &TrackConversionResponse{Success: true, Variant: res.Variant, TransactionID: res.TransactionID}, nil
}

func (s *abTestService) CalculateResults(ctx context.Context, req ABTestRequest) (_ *ABResultsResponse, err error) {
	const op = "Loyalty.ABTest.CalculateResults"
	ctx, span := startSpan(ctx, "loyalty.ab.calculate_results", attribute.String("dineops.test_id", req.TestID))
	defer func() { endSpan(span, err) }()

	testID, err := parseID(op, "test_id", req.TestID)
	if err != nil {
		return nil, err
	}
	key := abResultsKey(testID)
	var cached experiments.Results
	hit, cerr := s.cache.Get(ctx, key, &cached)
	if cerr != nil {
		s.log.Warn("ab results cache read failed", "test_id", testID, "error", cerr)
	}
	if hit {
		span.SetAttributes(attribute.Bool("dineops.cache_hit", true))
		return &ABResultsResponse{Success: true, TestID: testID, Results: cached}, nil
	}

	started := s.clock()
	dbc := dbctx.Context{Ctx: ctx}
	test, err := s.tests.GetByID(dbc, testID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "internal error", err)
	}
	if test == nil {
		return nil, domainagg.NotFound(op, "Test not found")
	}
	assigned, err := s.assignments.CountByVariant(dbc, testID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "internal error", err)
	}
	conversions, err := s.transactions.ConversionTotalsByVariant(dbc, testID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "internal error", err)
	}

	bucket := func(variant string) experiments.Counts {
		c := conversions[variant]
		return experiments.Counts{Assignments: assigned[variant], Conversions: c.Conversions, Value: c.Value}
	}
	results := experiments.Analyze(bucket(experiments.VariantControl), bucket(experiments.VariantTreatment), s.clock())

	raw, err := jsonBytes(results)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "internal error", err)
	}
	if err := s.tests.SaveResults(dbc, testID, datatypes.JSON(raw)); err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "internal error", err)
	}
	s.cacheResults(ctx, testID, started, results)
	span.SetAttributes(attribute.String("dineops.significance", results.Significance))
	return &ABResultsResponse{Success: true, TestID: testID, Results: results}, nil
}
