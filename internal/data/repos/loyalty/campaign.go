package loyalty

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dineops-backend/internal/domain"
	domainloyalty "github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type QRCampaignRepo interface {
	Create(dbc dbctx.Context, rows []*types.QRCampaign) ([]*types.QRCampaign, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QRCampaign, error)
	// LockByID reads the campaign FOR UPDATE. It requires dbc.Tx.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.QRCampaign, error)
}

type qrCampaignRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQRCampaignRepo(db *gorm.DB, baseLog *logger.Logger) QRCampaignRepo {
	return &qrCampaignRepo{
		db:  db,
		log: baseLog.With("repo", "QRCampaignRepo"),
	}
}

func (r *qrCampaignRepo) Create(dbc dbctx.Context, rows []*types.QRCampaign) ([]*types.QRCampaign, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.QRCampaign{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *qrCampaignRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.QRCampaign, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return findCampaign(transaction.WithContext(dbc.Ctx), id)
}

func (r *qrCampaignRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.QRCampaign, error) {
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByID requires a transaction")
	}
	return findCampaign(dbc.Tx.WithContext(dbc.Ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func findCampaign(q *gorm.DB, id uuid.UUID) (*types.QRCampaign, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.QRCampaign
	if err := q.Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

type QRCampaignUsageRepo interface {
	Create(dbc dbctx.Context, rows []*types.QRCampaignUsage) ([]*types.QRCampaignUsage, error)
	// Counts returns the usage counts the claim limits are checked against.
	// The customer-day window is the UTC day containing at.
	Counts(dbc dbctx.Context, campaignID, customerDataID uuid.UUID, at time.Time) (domainloyalty.UsageCounts, error)
}

type qrCampaignUsageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQRCampaignUsageRepo(db *gorm.DB, baseLog *logger.Logger) QRCampaignUsageRepo {
	return &qrCampaignUsageRepo{
		db:  db,
		log: baseLog.With("repo", "QRCampaignUsageRepo"),
	}
}

func (r *qrCampaignUsageRepo) Create(dbc dbctx.Context, rows []*types.QRCampaignUsage) ([]*types.QRCampaignUsage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.QRCampaignUsage{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *qrCampaignUsageRepo) Counts(dbc dbctx.Context, campaignID, customerDataID uuid.UUID, at time.Time) (domainloyalty.UsageCounts, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out domainloyalty.UsageCounts
	db := transaction.WithContext(dbc.Ctx)
	dayStart, dayEnd := domainloyalty.UTCDayBounds(at)

	if err := db.Model(&types.QRCampaignUsage{}).
		Where("campaign_id = ? AND customer_data_id = ?", campaignID, customerDataID).
		Count(&out.Customer).Error; err != nil {
		return out, err
	}
	if err := db.Model(&types.QRCampaignUsage{}).
		Where("campaign_id = ?", campaignID).
		Count(&out.Campaign).Error; err != nil {
		return out, err
	}
	if err := db.Model(&types.QRCampaignUsage{}).
		Where("campaign_id = ? AND customer_data_id = ? AND claimed_at >= ? AND claimed_at < ?",
			campaignID, customerDataID, dayStart, dayEnd).
		Count(&out.CustomerToday).Error; err != nil {
		return out, err
	}
	return out, nil
}
