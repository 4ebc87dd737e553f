package experiments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/dineops-backend/internal/domain"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type ABTestRepo interface {
	Create(dbc dbctx.Context, rows []*types.ABTest) ([]*types.ABTest, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ABTest, error)
	SaveResults(dbc dbctx.Context, id uuid.UUID, results datatypes.JSON) error
}

type abTestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewABTestRepo(db *gorm.DB, baseLog *logger.Logger) ABTestRepo {
	return &abTestRepo{
		db:  db,
		log: baseLog.With("repo", "ABTestRepo"),
	}
}

func (r *abTestRepo) Create(dbc dbctx.Context, rows []*types.ABTest) ([]*types.ABTest, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.ABTest{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *abTestRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ABTest, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.ABTest
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *abTestRepo) SaveResults(dbc dbctx.Context, id uuid.UUID, results datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ABTest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"results":    results,
			"updated_at": time.Now().UTC(),
		}).Error
}
