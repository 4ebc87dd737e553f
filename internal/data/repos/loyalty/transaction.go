package loyalty

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/dineops-backend/internal/domain"
	domainloyalty "github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

// ConversionTotals is the conversion count and summed value for one variant.
type ConversionTotals struct {
	Conversions int64
	Value       decimal.Decimal
}

type LoyaltyTransactionRepo interface {
	Create(dbc dbctx.Context, rows []*types.LoyaltyTransaction) ([]*types.LoyaltyTransaction, error)
	LatestForCustomer(dbc dbctx.Context, customerDataID uuid.UUID) (*types.LoyaltyTransaction, error)
	ListForCustomer(dbc dbctx.Context, customerDataID uuid.UUID, limit int) ([]*types.LoyaltyTransaction, error)
	ConversionTotalsByVariant(dbc dbctx.Context, abTestID uuid.UUID) (map[string]ConversionTotals, error)
}

type loyaltyTransactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLoyaltyTransactionRepo(db *gorm.DB, baseLog *logger.Logger) LoyaltyTransactionRepo {
	return &loyaltyTransactionRepo{
		db:  db,
		log: baseLog.With("repo", "LoyaltyTransactionRepo"),
	}
}

func (r *loyaltyTransactionRepo) Create(dbc dbctx.Context, rows []*types.LoyaltyTransaction) ([]*types.LoyaltyTransaction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.LoyaltyTransaction{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LatestForCustomer returns nil when the customer has no ledger rows yet.
func (r *loyaltyTransactionRepo) LatestForCustomer(dbc dbctx.Context, customerDataID uuid.UUID) (*types.LoyaltyTransaction, error) {
	rows, err := r.ListForCustomer(dbc, customerDataID, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// ListForCustomer returns the newest rows first.
func (r *loyaltyTransactionRepo) ListForCustomer(dbc dbctx.Context, customerDataID uuid.UUID, limit int) ([]*types.LoyaltyTransaction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.LoyaltyTransaction
	if customerDataID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 50
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("customer_data_id = ?", customerDataID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *loyaltyTransactionRepo) ConversionTotalsByVariant(dbc dbctx.Context, abTestID uuid.UUID) (map[string]ConversionTotals, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string]ConversionTotals{}
	if abTestID == uuid.Nil {
		return out, nil
	}
	type row struct {
		Variant     string
		Conversions int64
		Value       decimal.Decimal
	}
	var rows []row
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.LoyaltyTransaction{}).
		Select("variant, COUNT(*) AS conversions, COALESCE(SUM(order_amount), 0) AS value").
		Where("ab_test_id = ? AND transaction_type = ?", abTestID, domainloyalty.TransactionConversion).
		Group("variant").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, rw := range rows {
		out[rw.Variant] = ConversionTotals{Conversions: rw.Conversions, Value: rw.Value}
	}
	return out, nil
}
