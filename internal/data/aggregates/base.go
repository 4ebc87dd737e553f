package aggregates

import (
	"context"
	"strings"
	"time"

	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
	"gorm.io/gorm"
)

const defaultMaxAttempts = 3

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
	Clock    func() time.Time
	// MaxAttempts bounds re-runs of a write whose transaction failed with a
	// retryable store error. Version conflicts are never re-run.
	MaxAttempts int
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = defaultMaxAttempts
	}
	return d
}

func (d BaseDeps) now() time.Time {
	if d.Clock == nil {
		return time.Now().UTC()
	}
	return d.Clock().UTC()
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}

	var mapped error
	for attempt := 1; attempt <= deps.MaxAttempts; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if mapped == nil || !domainagg.IsCode(mapped, domainagg.CodeRetryable) || ctx.Err() != nil {
			break
		}
		deps.Hooks.IncRetry(op)
		if attempt < deps.MaxAttempts {
			deps.Log.Warn("aggregate write retrying", "op", op, "attempt", attempt, "error", mapped)
		}
	}

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeInternal) {
			deps.Log.Error("aggregate write failed", "op", op, "error", mapped)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
