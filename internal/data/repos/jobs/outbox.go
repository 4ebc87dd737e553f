package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/dineops-backend/internal/domain"
	domainjobs "github.com/yungbote/dineops-backend/internal/domain/jobs"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type OutboxRepo interface {
	Enqueue(dbc dbctx.Context, events []*types.OutboxEvent) ([]*types.OutboxEvent, error)
	ClaimNext(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.OutboxEvent, error)
	MarkSucceeded(dbc dbctx.Context, id uuid.UUID) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, cause error) error
	CountByStatus(dbc dbctx.Context) (map[string]int64, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.OutboxEvent, error)
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	return &outboxRepo{
		db:  db,
		log: baseLog.With("repo", "OutboxRepo"),
	}
}

func (r *outboxRepo) Enqueue(dbc dbctx.Context, events []*types.OutboxEvent) ([]*types.OutboxEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return []*types.OutboxEvent{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// ClaimNext picks the oldest runnable event and marks it running. Runnable
// means queued, or failed or stale running with attempts left (failed rows
// wait out retryDelay; running rows count as stale once locked longer than
// staleRunning). Stale running rows with no attempts left are parked as failed.
func (r *outboxRepo) ClaimNext(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.OutboxEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.OutboxEvent
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		parked := txx.Model(&types.OutboxEvent{}).
			Where("status = ? AND locked_at IS NOT NULL AND locked_at < ? AND attempts >= ?",
				domainjobs.OutboxRunning, staleCutoff, maxAttempts).
			Updates(map[string]interface{}{
				"status":        domainjobs.OutboxFailed,
				"error":         "abandoned while running; no attempts left",
				"last_error_at": now,
				"locked_at":     nil,
				"updated_at":    now,
			})
		if parked.Error != nil {
			return parked.Error
		}
		if parked.RowsAffected > 0 {
			r.log.Warn("parked stale outbox events", "count", parked.RowsAffected, "max_attempts", maxAttempts)
		}

		var ev types.OutboxEvent
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        available_at <= ?
        AND (
          status = ?
          OR (
            status = ?
            AND attempts < ?
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND attempts < ?
            AND locked_at IS NOT NULL
            AND locked_at < ?
          )
        )
      `, now, domainjobs.OutboxQueued, domainjobs.OutboxFailed, maxAttempts, retryCutoff,
				domainjobs.OutboxRunning, maxAttempts, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&ev).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.OutboxEvent{}).
			Where("id = ?", ev.ID).
			Updates(map[string]interface{}{
				"status":     domainjobs.OutboxRunning,
				"attempts":   gorm.Expr("attempts + 1"),
				"locked_at":  now,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		ev.Status = domainjobs.OutboxRunning
		ev.Attempts++
		ev.LockedAt = &now
		claimed = &ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *outboxRepo) MarkSucceeded(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       domainjobs.OutboxSucceeded,
			"error":        "",
			"processed_at": now,
			"locked_at":    nil,
			"updated_at":   now,
		}).Error
}

func (r *outboxRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, cause error) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	now := time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        domainjobs.OutboxFailed,
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		}).Error
}

func (r *outboxRepo) CountByStatus(dbc dbctx.Context) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.OutboxEvent{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rw := range rows {
		out[rw.Status] = rw.N
	}
	return out, nil
}

func (r *outboxRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.OutboxEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ev types.OutboxEvent
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&ev).Error; err != nil {
		return nil, err
	}
	if ev.ID == uuid.Nil {
		return nil, nil
	}
	return &ev, nil
}
