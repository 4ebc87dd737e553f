package testutil

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/dineops-backend/internal/data/aggregates"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

var errInjectedCommit = errors.New("injected commit failure")

// InjectedTxRunner runs aggregate writes and injects failures around them.
// With DB set the body runs inside a real transaction, and an injected commit
// failure rolls that transaction back. Without DB the body sees no Tx.
type InjectedTxRunner struct {
	DB *gorm.DB

	mu sync.Mutex

	FailBegin  error
	FailCommit error
	// FailCommitTimes limits FailCommit to the first n attempts. Zero means every attempt.
	FailCommitTimes int

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	attempt := r.BeginCalls
	failBegin := r.FailBegin
	failCommit := r.FailCommit
	if r.FailCommitTimes > 0 && attempt > r.FailCommitTimes {
		failCommit = nil
	}
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}

	var err error
	if r.DB == nil {
		err = r.body(ctx, nil, fn, failCommit)
	} else {
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return r.body(ctx, tx, fn, failCommit)
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
		if errors.Is(err, errInjectedCommit) {
			return failCommit
		}
		return err
	}
	r.CommitCalls++
	return nil
}

func (r *InjectedTxRunner) body(ctx context.Context, tx *gorm.DB, fn func(dbc dbctx.Context) error, failCommit error) error {
	if fn != nil {
		if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
			return err
		}
	}
	if failCommit != nil {
		return errInjectedCommit
	}
	return nil
}
