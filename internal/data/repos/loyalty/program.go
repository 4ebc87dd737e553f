package loyalty

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/dineops-backend/internal/domain"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type LoyaltyProgramRepo interface {
	Create(dbc dbctx.Context, programs []*types.LoyaltyProgram) ([]*types.LoyaltyProgram, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LoyaltyProgram, error)
	UpdateSettings(dbc dbctx.Context, id uuid.UUID, settings datatypes.JSON) (bool, error)
}

type loyaltyProgramRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLoyaltyProgramRepo(db *gorm.DB, baseLog *logger.Logger) LoyaltyProgramRepo {
	return &loyaltyProgramRepo{
		db:  db,
		log: baseLog.With("repo", "LoyaltyProgramRepo"),
	}
}

func (r *loyaltyProgramRepo) Create(dbc dbctx.Context, programs []*types.LoyaltyProgram) ([]*types.LoyaltyProgram, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(programs) == 0 {
		return []*types.LoyaltyProgram{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&programs).Error; err != nil {
		return nil, err
	}
	return programs, nil
}

// GetByID returns nil when the program does not exist.
func (r *loyaltyProgramRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.LoyaltyProgram, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var p types.LoyaltyProgram
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

func (r *loyaltyProgramRepo) UpdateSettings(dbc dbctx.Context, id uuid.UUID, settings datatypes.JSON) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.LoyaltyProgram{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"settings":   settings,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
