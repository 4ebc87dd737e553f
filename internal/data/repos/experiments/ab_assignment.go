package experiments

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dineops-backend/internal/domain"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type ABAssignmentRepo interface {
	Get(dbc dbctx.Context, testID uuid.UUID, customerID string) (*types.ABAssignment, error)
	// InsertIfAbsent relies on the unique (test_id, customer_id) index and
	// reports false when another writer got there first.
	InsertIfAbsent(dbc dbctx.Context, row *types.ABAssignment) (bool, error)
	CountByVariant(dbc dbctx.Context, testID uuid.UUID) (map[string]int64, error)
}

type abAssignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewABAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) ABAssignmentRepo {
	return &abAssignmentRepo{
		db:  db,
		log: baseLog.With("repo", "ABAssignmentRepo"),
	}
}

func (r *abAssignmentRepo) Get(dbc dbctx.Context, testID uuid.UUID, customerID string) (*types.ABAssignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	customerID = strings.TrimSpace(customerID)
	if testID == uuid.Nil || customerID == "" {
		return nil, nil
	}
	var row types.ABAssignment
	if err := transaction.WithContext(dbc.Ctx).
		Where("test_id = ? AND customer_id = ?", testID, customerID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *abAssignmentRepo) InsertIfAbsent(dbc dbctx.Context, row *types.ABAssignment) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "test_id"}, {Name: "customer_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *abAssignmentRepo) CountByVariant(dbc dbctx.Context, testID uuid.UUID) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string]int64{}
	type row struct {
		Variant string
		N       int64
	}
	var rows []row
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.ABAssignment{}).
		Select("variant, COUNT(*) AS n").
		Where("test_id = ?", testID).
		Group("variant").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, rw := range rows {
		out[rw.Variant] = rw.N
	}
	return out, nil
}
