package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/ctxutil"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type QRClaimRequest struct {
	CampaignID   string         `json:"campaignId"`
	CustomerData QRCustomerData `json:"customerData"`
}

type QRCustomerData struct {
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Name     string  `json:"name"`
	Birthday *string `json:"birthday"`
}

type QRClaimResponse struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	Reward         loyalty.Reward `json:"reward"`
	PointsAwarded  int            `json:"pointsAwarded"`
	CustomerPoints int            `json:"customerPoints"`
}

type QRClaimService interface {
	Claim(ctx context.Context, req QRClaimRequest) (*QRClaimResponse, error)
}

type qrClaimService struct {
	db       *gorm.DB
	log      *logger.Logger
	claims   domainagg.QRClaimAggregate
	defaults loyalty.Defaults
}

func NewQRClaimService(db *gorm.DB, baseLog *logger.Logger, claims domainagg.QRClaimAggregate, defaults loyalty.Defaults) QRClaimService {
	return &qrClaimService{
		db:       db,
		log:      baseLog.With("service", "QRClaimService"),
		claims:   claims,
		defaults: defaults,
	}
}

func (s *qrClaimService) Claim(ctx context.Context, req QRClaimRequest) (_ *QRClaimResponse, err error) {
	const op = "Loyalty.QR.Claim"
	ctx, span := startSpan(ctx, "loyalty.qr_claim", attribute.String("dineops.campaign_id", req.CampaignID))
	defer func() { endSpan(span, err) }()

	campaignID, err := parseID(op, "campaignId", req.CampaignID)
	if err != nil {
		return nil, err
	}
	cd := req.CustomerData
	if loyalty.NormalizeEmail(cd.Email) == "" && loyalty.NormalizePhone(cd.Phone) == "" {
		return nil, domainagg.Validation(op, "customer email or phone is required")
	}
	hash := loyalty.CustomerHash(cd.Email, cd.Phone)
	birthday, err := normalizeBirthday(op, cd.Birthday)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"source": "qr"}
	if client := ctxutil.GetClientData(ctx); client != nil {
		if client.IP != "" {
			metadata["ip"] = client.IP
		}
		if client.UserAgent != "" {
			metadata["user_agent"] = client.UserAgent
		}
	}

	res, err := s.claims.Claim(ctx, domainagg.ClaimQRCampaignInput{
		CampaignID:    campaignID,
		CustomerHash:  hash,
		CustomerName:  strings.TrimSpace(cd.Name),
		Birthday:      birthday,
		DefaultPoints: s.defaults.QRDefaultPoints(),
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("dineops.reward_type", res.Reward.Type),
		attribute.Int("dineops.points_awarded", res.PointsAwarded),
	)
	s.log.Info("qr campaign claimed", "campaign_id", campaignID, "customer_data_id", res.CustomerDataID, "reward_type", res.Reward.Type)
	return &QRClaimResponse{
		Success:        true,
		Message:        res.Message,
		Reward:         res.Reward,
		PointsAwarded:  res.PointsAwarded,
		CustomerPoints: res.CustomerPoints,
	}, nil
}

// normalizeBirthday accepts YYYY-MM-DD; blank reads as absent.
func normalizeBirthday(op string, raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*raw)
	if _, err := time.Parse("2006-01-02", v); err != nil {
		return nil, domainagg.Validation(op, "birthday must be YYYY-MM-DD")
	}
	return &v, nil
}
