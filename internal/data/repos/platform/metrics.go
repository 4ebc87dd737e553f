package platform

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/dineops-backend/internal/domain"
	domainplatform "github.com/yungbote/dineops-backend/internal/domain/platform"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

// Range is a half-open [From, To) window. Zero bounds are open.
type Range struct {
	From time.Time
	To   time.Time
}

// MetricsRepo reads the cross-restaurant tables for the platform snapshot.
type MetricsRepo interface {
	CountActiveRestaurants(dbc dbctx.Context) (int64, error)
	SumCompletedRevenue(dbc dbctx.Context, rng Range) (decimal.Decimal, error)
	CountOrders(dbc dbctx.Context, rng Range) (int64, error)
	RecentOrders(dbc dbctx.Context, limit int) ([]domainplatform.Activity, error)
	RevenueByProvider(dbc dbctx.Context) ([]domainplatform.ProviderRevenue, error)
	Ping(dbc dbctx.Context) error
}

type metricsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMetricsRepo(db *gorm.DB, baseLog *logger.Logger) MetricsRepo {
	return &metricsRepo{
		db:  db,
		log: baseLog.With("repo", "PlatformMetricsRepo"),
	}
}

func (r *metricsRepo) conn(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func applyRange(q *gorm.DB, column string, rng Range) *gorm.DB {
	if !rng.From.IsZero() {
		q = q.Where(column+" >= ?", rng.From.UTC())
	}
	if !rng.To.IsZero() {
		q = q.Where(column+" < ?", rng.To.UTC())
	}
	return q
}

func (r *metricsRepo) CountActiveRestaurants(dbc dbctx.Context) (int64, error) {
	var n int64
	err := r.conn(dbc).Model(&types.Restaurant{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}

func (r *metricsRepo) SumCompletedRevenue(dbc dbctx.Context, rng Range) (decimal.Decimal, error) {
	var out struct{ Total decimal.Decimal }
	q := r.conn(dbc).Model(&types.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", domainplatform.PaymentCompleted)
	if err := applyRange(q, "created_at", rng).Scan(&out).Error; err != nil {
		return decimal.Zero, err
	}
	return out.Total, nil
}

func (r *metricsRepo) CountOrders(dbc dbctx.Context, rng Range) (int64, error) {
	var n int64
	q := applyRange(r.conn(dbc).Model(&types.Order{}), "created_at", rng)
	err := q.Count(&n).Error
	return n, err
}

func (r *metricsRepo) RecentOrders(dbc dbctx.Context, limit int) ([]domainplatform.Activity, error) {
	if limit <= 0 {
		limit = 10
	}
	type row struct {
		ID             uuid.UUID
		OrderNumber    string
		RestaurantID   uuid.UUID
		RestaurantName string
		TotalAmount    decimal.Decimal
		Status         string
		CreatedAt      time.Time
	}
	var rows []row
	err := r.conn(dbc).
		Table("orders AS o").
		Select("o.id, COALESCE(o.order_number, '') AS order_number, o.restaurant_id, COALESCE(r.name, '') AS restaurant_name, o.total_amount, o.status, o.created_at").
		Joins("LEFT JOIN restaurants AS r ON r.id = o.restaurant_id").
		Order("o.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domainplatform.Activity, 0, len(rows))
	for _, rw := range rows {
		out = append(out, domainplatform.Activity{
			OrderID:        rw.ID,
			OrderNumber:    rw.OrderNumber,
			RestaurantID:   rw.RestaurantID,
			RestaurantName: rw.RestaurantName,
			TotalAmount:    rw.TotalAmount,
			Status:         rw.Status,
			CreatedAt:      rw.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *metricsRepo) RevenueByProvider(dbc dbctx.Context) ([]domainplatform.ProviderRevenue, error) {
	type row struct {
		Provider     string
		Revenue      decimal.Decimal
		Transactions int64
	}
	var rows []row
	err := r.conn(dbc).Model(&types.Payment{}).
		Select("COALESCE(NULLIF(provider, ''), 'unknown') AS provider, COALESCE(SUM(amount), 0) AS revenue, COUNT(*) AS transactions").
		Where("status = ?", domainplatform.PaymentCompleted).
		Group("COALESCE(NULLIF(provider, ''), 'unknown')").
		Order("revenue DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domainplatform.ProviderRevenue, 0, len(rows))
	for _, rw := range rows {
		out = append(out, domainplatform.ProviderRevenue{
			Provider:     rw.Provider,
			Revenue:      rw.Revenue,
			Transactions: rw.Transactions,
		})
	}
	return out, nil
}

func (r *metricsRepo) Ping(dbc dbctx.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(dbc.Ctx)
}
