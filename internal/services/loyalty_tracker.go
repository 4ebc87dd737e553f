package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type TrackPurchaseRequest struct {
	ProgramID     string          `json:"program_id"`
	RestaurantID  string          `json:"restaurant_id"`
	CustomerEmail string          `json:"customer_email"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerName  string          `json:"customer_name"`
	OrderAmount   decimal.Decimal `json:"order_amount"`
	OrderID       string          `json:"order_id"`
}

type TrackPurchaseResponse struct {
	Success      bool      `json:"success"`
	PointsEarned int       `json:"points_earned"`
	NewBalance   int       `json:"new_balance"`
	AppliedRules []string  `json:"applied_rules"`
	CustomerID   uuid.UUID `json:"customer_id"`
}

// AdjustPointsRequest is shared by award_points and redeem_points.
type AdjustPointsRequest struct {
	ProgramID     string `json:"program_id"`
	RestaurantID  string `json:"restaurant_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Points        int    `json:"points"`
	Reason        string `json:"reason"`
}

type AwardPointsResponse struct {
	Success       bool      `json:"success"`
	PointsAwarded int       `json:"points_awarded"`
	NewBalance    int       `json:"new_balance"`
	CustomerID    uuid.UUID `json:"customer_id"`
}

type RedeemPointsResponse struct {
	Success        bool      `json:"success"`
	PointsRedeemed int       `json:"points_redeemed"`
	NewBalance     int       `json:"new_balance"`
	CustomerID     uuid.UUID `json:"customer_id"`
}

type ReferralRequest struct {
	ProgramID     string `json:"program_id"`
	RestaurantID  string `json:"restaurant_id"`
	ReferrerEmail string `json:"referrer_email"`
	ReferrerPhone string `json:"referrer_phone"`
	RefereeEmail  string `json:"referee_email"`
	RefereePhone  string `json:"referee_phone"`
	RefereeName   string `json:"referee_name"`
}

type ReferralResponse struct {
	Success       bool `json:"success"`
	ReferrerBonus int  `json:"referrer_bonus"`
	RefereeBonus  int  `json:"referee_bonus"`
}

type UpdateTierRequest struct {
	ProgramID     string `json:"program_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Tier          string `json:"tier"`
}

type UpdateTierResponse struct {
	Success      bool      `json:"success"`
	TierLevel    string    `json:"tier_level"`
	PreviousTier string    `json:"previous_tier"`
	Changed      bool      `json:"changed"`
	CustomerID   uuid.UUID `json:"customer_id"`
}

// LoyaltyTrackerService backs the five loyalty-tracker actions. It resolves the
// program, hashes the customer's identity and hands the write to the account
// aggregate.
type LoyaltyTrackerService interface {
	TrackPurchase(ctx context.Context, req TrackPurchaseRequest) (*TrackPurchaseResponse, error)
	AwardPoints(ctx context.Context, req AdjustPointsRequest) (*AwardPointsResponse, error)
	RedeemPoints(ctx context.Context, req AdjustPointsRequest) (*RedeemPointsResponse, error)
	ProcessReferral(ctx context.Context, req ReferralRequest) (*ReferralResponse, error)
	UpdateTier(ctx context.Context, req UpdateTierRequest) (*UpdateTierResponse, error)
}

type loyaltyTrackerService struct {
	db       *gorm.DB
	log      *logger.Logger
	programs ProgramSettingsService
	accounts domainagg.LoyaltyAccountAggregate
	defaults loyalty.Defaults
}

func NewLoyaltyTrackerService(db *gorm.DB, baseLog *logger.Logger, programs ProgramSettingsService, accounts domainagg.LoyaltyAccountAggregate, defaults loyalty.Defaults) LoyaltyTrackerService {
	return &loyaltyTrackerService{
		db:       db,
		log:      baseLog.With("service", "LoyaltyTrackerService"),
		programs: programs,
		accounts: accounts,
		defaults: defaults,
	}
}

// customerIdentity hashes the caller-supplied contact details. Email is required.
func customerIdentity(op, email, phone string) (string, error) {
	if loyalty.NormalizeEmail(email) == "" {
		return "", domainagg.Validation(op, "customer_email is required")
	}
	return loyalty.CustomerHash(email, phone), nil
}

func (s *loyaltyTrackerService) TrackPurchase(ctx context.Context, req TrackPurchaseRequest) (_ *TrackPurchaseResponse, err error) {
	const op = "Loyalty.Tracker.TrackPurchase"
	ctx, span := startSpan(ctx, "loyalty.track_purchase", attribute.String("dineops.program_id", req.ProgramID))
	defer func() { endSpan(span, err) }()

	programID, err := parseID(op, "program_id", req.ProgramID)
	if err != nil {
		return nil, err
	}
	restaurantID, err := parseOptionalID(op, "restaurant_id", req.RestaurantID)
	if err != nil {
		return nil, err
	}
	hash, err := customerIdentity(op, req.CustomerEmail, req.CustomerPhone)
	if err != nil {
		return nil, err
	}
	program, err := s.programs.Active(ctx, programID)
	if err != nil {
		return nil, err
	}
	if restaurantID == uuid.Nil {
		restaurantID = program.Program.RestaurantOrNil()
	}

	res, err := s.accounts.TrackPurchase(ctx, domainagg.TrackPurchaseInput{
		ProgramID:    programID,
		RestaurantID: restaurantID,
		CustomerHash: hash,
		CustomerName: strings.TrimSpace(req.CustomerName),
		OrderAmount:  req.OrderAmount,
		OrderID:      strings.TrimSpace(req.OrderID),
		Rules:        program.Settings.Rules,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("dineops.points_earned", res.PointsEarned))
	if res.Created {
		s.log.Info("loyalty customer enrolled", "program_id", programID, "customer_data_id", res.CustomerDataID)
	}
	applied := res.AppliedRules
	if applied == nil {
		applied = []string{}
	}
	return &TrackPurchaseResponse{
		Success:      true,
		PointsEarned: res.PointsEarned,
		NewBalance:   res.NewBalance,
		AppliedRules: applied,
		CustomerID:   res.CustomerDataID,
	}, nil
}

func (s *loyaltyTrackerService) adjustInput(ctx context.Context, op string, req AdjustPointsRequest) (domainagg.AdjustPointsInput, error) {
	programID, err := parseID(op, "program_id", req.ProgramID)
	if err != nil {
		return domainagg.AdjustPointsInput{}, err
	}
	restaurantID, err := parseOptionalID(op, "restaurant_id", req.RestaurantID)
	if err != nil {
		return domainagg.AdjustPointsInput{}, err
	}
	hash, err := customerIdentity(op, req.CustomerEmail, req.CustomerPhone)
	if err != nil {
		return domainagg.AdjustPointsInput{}, err
	}
	program, err := s.programs.Active(ctx, programID)
	if err != nil {
		return domainagg.AdjustPointsInput{}, err
	}
	if restaurantID == uuid.Nil {
		restaurantID = program.Program.RestaurantOrNil()
	}
	return domainagg.AdjustPointsInput{
		ProgramID:    programID,
		RestaurantID: restaurantID,
		CustomerHash: hash,
		Points:       req.Points,
		Reason:       strings.TrimSpace(req.Reason),
	}, nil
}

func (s *loyaltyTrackerService) AwardPoints(ctx context.Context, req AdjustPointsRequest) (_ *AwardPointsResponse, err error) {
	const op = "Loyalty.Tracker.AwardPoints"
	ctx, span := startSpan(ctx, "loyalty.award_points", attribute.String("dineops.program_id", req.ProgramID))
	defer func() { endSpan(span, err) }()

	in, err := s.adjustInput(ctx, op, req)
	if err != nil {
		return nil, err
	}
	res, err := s.accounts.AwardPoints(ctx, in)
	if err != nil {
		return nil, err
	}
	return &AwardPointsResponse{
		Success:       true,
		PointsAwarded: res.Points,
		NewBalance:    res.NewBalance,
		CustomerID:    res.CustomerDataID,
	}, nil
}

func (s *loyaltyTrackerService) RedeemPoints(ctx context.Context, req AdjustPointsRequest) (_ *RedeemPointsResponse, err error) {
	const op = "Loyalty.Tracker.RedeemPoints"
	ctx, span := startSpan(ctx, "loyalty.redeem_points", attribute.String("dineops.program_id", req.ProgramID))
	defer func() { endSpan(span, err) }()

	in, err := s.adjustInput(ctx, op, req)
	if err != nil {
		return nil, err
	}
	res, err := s.accounts.RedeemPoints(ctx, in)
	if err != nil {
		return nil, err
	}
	return &RedeemPointsResponse{
		Success:        true,
		PointsRedeemed: res.Points,
		NewBalance:     res.NewBalance,
		CustomerID:     res.CustomerDataID,
	}, nil
}

// ProcessReferral hashes each party the same way the tracker does, so a phone
// must be sent when the customer enrolled with one.
func (s *loyaltyTrackerService) ProcessReferral(ctx context.Context, req ReferralRequest) (_ *ReferralResponse, err error) {
	const op = "Loyalty.Tracker.ProcessReferral"
	ctx, span := startSpan(ctx, "loyalty.process_referral", attribute.String("dineops.program_id", req.ProgramID))
	defer func() { endSpan(span, err) }()

	programID, err := parseID(op, "program_id", req.ProgramID)
	if err != nil {
		return nil, err
	}
	if loyalty.NormalizeEmail(req.ReferrerEmail) == "" {
		return nil, domainagg.Validation(op, "referrer_email is required")
	}
	if loyalty.NormalizeEmail(req.RefereeEmail) == "" {
		return nil, domainagg.Validation(op, "referee_email is required")
	}
	program, err := s.programs.Active(ctx, programID)
	if err != nil {
		return nil, err
	}

	res, err := s.accounts.ProcessReferral(ctx, domainagg.ProcessReferralInput{
		ProgramID:    programID,
		ReferrerHash: loyalty.CustomerHash(req.ReferrerEmail, req.ReferrerPhone),
		RefereeHash:  loyalty.CustomerHash(req.RefereeEmail, req.RefereePhone),
		RefereeName:  strings.TrimSpace(req.RefereeName),
		Referral:     s.defaults.ReferralFor(program.Settings),
	})
	if err != nil {
		return nil, err
	}
	return &ReferralResponse{
		Success:       true,
		ReferrerBonus: res.ReferrerBonus,
		RefereeBonus:  res.RefereeBonus,
	}, nil
}

func (s *loyaltyTrackerService) UpdateTier(ctx context.Context, req UpdateTierRequest) (_ *UpdateTierResponse, err error) {
	const op = "Loyalty.Tracker.UpdateTier"
	ctx, span := startSpan(ctx, "loyalty.update_tier", attribute.String("dineops.program_id", req.ProgramID))
	defer func() { endSpan(span, err) }()

	programID, err := parseID(op, "program_id", req.ProgramID)
	if err != nil {
		return nil, err
	}
	hash, err := customerIdentity(op, req.CustomerEmail, req.CustomerPhone)
	if err != nil {
		return nil, err
	}
	program, err := s.programs.Active(ctx, programID)
	if err != nil {
		return nil, err
	}
	res, err := s.accounts.UpdateTier(ctx, domainagg.UpdateTierInput{
		ProgramID:    programID,
		CustomerHash: hash,
		Tier:         req.Tier,
		Thresholds:   s.defaults.TierThresholds(program.Settings),
	})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		s.log.Info("loyalty tier changed", "program_id", programID, "customer_data_id", res.CustomerDataID, "from", res.PreviousTier, "to", res.TierLevel)
	}
	return &UpdateTierResponse{
		Success:      true,
		TierLevel:    res.TierLevel,
		PreviousTier: res.PreviousTier,
		Changed:      res.Changed,
		CustomerID:   res.CustomerDataID,
	}, nil
}
