package loyalty

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dineops-backend/internal/domain"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type CustomerLoyaltyRepo interface {
	Create(dbc dbctx.Context, rows []*types.CustomerLoyaltyRecord) ([]*types.CustomerLoyaltyRecord, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CustomerLoyaltyRecord, error)
	GetByProgramAndHash(dbc dbctx.Context, programID uuid.UUID, customerHash string) (*types.CustomerLoyaltyRecord, error)
	// LockByProgramAndHash reads the record FOR UPDATE. It requires dbc.Tx.
	LockByProgramAndHash(dbc dbctx.Context, programID uuid.UUID, customerHash string) (*types.CustomerLoyaltyRecord, error)
	// InsertIfAbsent inserts row unless (program_id, customer_hash) already
	// exists and reports whether this call created it.
	InsertIfAbsent(dbc dbctx.Context, row *types.CustomerLoyaltyRecord) (bool, error)
	ListPage(dbc dbctx.Context, programID *uuid.UUID, afterID uuid.UUID, limit int) ([]*types.CustomerLoyaltyRecord, error)
}

type customerLoyaltyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomerLoyaltyRepo(db *gorm.DB, baseLog *logger.Logger) CustomerLoyaltyRepo {
	return &customerLoyaltyRepo{
		db:  db,
		log: baseLog.With("repo", "CustomerLoyaltyRepo"),
	}
}

func (r *customerLoyaltyRepo) Create(dbc dbctx.Context, rows []*types.CustomerLoyaltyRecord) ([]*types.CustomerLoyaltyRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.CustomerLoyaltyRecord{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *customerLoyaltyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CustomerLoyaltyRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.CustomerLoyaltyRecord
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

func (r *customerLoyaltyRepo) GetByProgramAndHash(dbc dbctx.Context, programID uuid.UUID, customerHash string) (*types.CustomerLoyaltyRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return findByProgramAndHash(transaction.WithContext(dbc.Ctx), programID, customerHash)
}

func (r *customerLoyaltyRepo) LockByProgramAndHash(dbc dbctx.Context, programID uuid.UUID, customerHash string) (*types.CustomerLoyaltyRecord, error) {
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByProgramAndHash requires a transaction")
	}
	q := dbc.Tx.WithContext(dbc.Ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return findByProgramAndHash(q, programID, customerHash)
}

func findByProgramAndHash(q *gorm.DB, programID uuid.UUID, customerHash string) (*types.CustomerLoyaltyRecord, error) {
	customerHash = strings.TrimSpace(customerHash)
	if programID == uuid.Nil || customerHash == "" {
		return nil, nil
	}
	var row types.CustomerLoyaltyRecord
	if err := q.
		Where("program_id = ? AND customer_hash = ?", programID, customerHash).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *customerLoyaltyRepo) InsertIfAbsent(dbc dbctx.Context, row *types.CustomerLoyaltyRecord) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "program_id"}, {Name: "customer_hash"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListPage returns up to limit records ordered by id, starting after afterID.
func (r *customerLoyaltyRepo) ListPage(dbc dbctx.Context, programID *uuid.UUID, afterID uuid.UUID, limit int) ([]*types.CustomerLoyaltyRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 500
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.CustomerLoyaltyRecord{})
	if programID != nil && *programID != uuid.Nil {
		q = q.Where("program_id = ?", *programID)
	}
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	var out []*types.CustomerLoyaltyRecord
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
