package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	types "github.com/yungbote/dineops-backend/internal/domain"
	"github.com/yungbote/dineops-backend/internal/domain/experiments"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func mustJSON(tb testing.TB, v any) datatypes.JSON {
	tb.Helper()
	if v == nil {
		return datatypes.JSON([]byte("{}"))
	}
	if raw, ok := v.(string); ok {
		return datatypes.JSON([]byte(raw))
	}
	b, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal fixture: %v", err)
	}
	return datatypes.JSON(b)
}

// SeedProgram creates an active program. settings may be a loyalty.Settings,
// a raw JSON string or nil.
func SeedProgram(tb testing.TB, ctx context.Context, tx *gorm.DB, restaurantID *uuid.UUID, settings any) *types.LoyaltyProgram {
	tb.Helper()
	p := &types.LoyaltyProgram{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Name:         "House Rewards",
		Settings:     mustJSON(tb, settings),
		IsActive:     true,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed program: %v", err)
	}
	return p
}

func SeedCustomer(tb testing.TB, ctx context.Context, tx *gorm.DB, programID uuid.UUID, hash string, points int) *types.CustomerLoyaltyRecord {
	tb.Helper()
	c := loyalty.NewCustomerRecord(programID, hash)
	c.CurrentPoints = points
	c.LifetimePoints = points
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed customer: %v", err)
	}
	return c
}

type CampaignOpts struct {
	Type      string
	Reward    any
	Limits    any
	StartsAt  *time.Time
	ExpiresAt *time.Time
	Inactive  bool
}

func SeedCampaign(tb testing.TB, ctx context.Context, tx *gorm.DB, programID, restaurantID uuid.UUID, opts CampaignOpts) *types.QRCampaign {
	tb.Helper()
	if opts.Type == "" {
		opts.Type = loyalty.CampaignPointsReward
	}
	c := &types.QRCampaign{
		ID:             uuid.New(),
		ProgramID:      programID,
		RestaurantID:   restaurantID,
		Name:           "Table tent",
		CampaignType:   opts.Type,
		RewardSettings: mustJSON(tb, opts.Reward),
		UsageLimits:    mustJSON(tb, opts.Limits),
		StartsAt:       opts.StartsAt,
		ExpiresAt:      opts.ExpiresAt,
		IsActive:       !opts.Inactive,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed campaign: %v", err)
	}
	return c
}

func SeedABTest(tb testing.TB, ctx context.Context, tx *gorm.DB, programID uuid.UUID, split int, status string) *types.ABTest {
	tb.Helper()
	if status == "" {
		status = experiments.StatusActive
	}
	t := &types.ABTest{
		ID:           uuid.New(),
		ProgramID:    programID,
		Name:         "double points tuesday",
		TrafficSplit: split,
		Status:       status,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed ab test: %v", err)
	}
	return t
}

func SeedAssignment(tb testing.TB, ctx context.Context, tx *gorm.DB, testID uuid.UUID, customerID, variant string) *types.ABAssignment {
	tb.Helper()
	a := &types.ABAssignment{
		ID:         uuid.New(),
		TestID:     testID,
		CustomerID: customerID,
		Variant:    variant,
		AssignedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

func SeedRestaurant(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, active bool) *types.Restaurant {
	tb.Helper()
	r := &types.Restaurant{ID: uuid.New(), Name: name, IsActive: active}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed restaurant: %v", err)
	}
	return r
}

func SeedOrder(tb testing.TB, ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, amount string, at time.Time) *types.Order {
	tb.Helper()
	o := &types.Order{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		OrderNumber:  "A-" + uuid.NewString()[:6],
		TotalAmount:  decimal.RequireFromString(amount),
		Status:       "completed",
		CreatedAt:    at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	return o
}

func SeedPayment(tb testing.TB, ctx context.Context, tx *gorm.DB, restaurantID uuid.UUID, amount, status, provider string, at time.Time) *types.Payment {
	tb.Helper()
	p := &types.Payment{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Amount:       decimal.RequireFromString(amount),
		Status:       status,
		Provider:     provider,
		CreatedAt:    at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed payment: %v", err)
	}
	return p
}
