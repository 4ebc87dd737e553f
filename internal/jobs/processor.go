package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainjobs "github.com/yungbote/dineops-backend/internal/domain/jobs"
	"github.com/yungbote/dineops-backend/internal/jobs/runtime"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

// Observer receives one call per processed event.
type Observer interface {
	ObserveOutboxEvent(eventType, status string, dur time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveOutboxEvent(string, string, time.Duration) {}

// Processor claims outbox events and dispatches them to registered handlers.
// Both the in-process worker pool and the Temporal drain activity drive it.
type Processor struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.OutboxRepo
	registry *runtime.Registry
	policy   Policy
	observer Observer
}

func NewProcessor(db *gorm.DB, baseLog *logger.Logger, repo repos.OutboxRepo, registry *runtime.Registry, policy Policy, observer Observer) *Processor {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Processor{
		db:       db,
		log:      baseLog.With("component", "OutboxProcessor"),
		repo:     repo,
		registry: registry,
		policy:   policy.withDefaults(),
		observer: observer,
	}
}

// ProcessNext handles at most one event and reports whether one was claimed.
// Handler failures are recorded on the event, not returned.
func (p *Processor) ProcessNext(ctx context.Context) (bool, error) {
	ev, err := p.repo.ClaimNext(dbctx.Context{Ctx: ctx}, p.policy.MaxAttempts, p.policy.RetryDelay, p.policy.StaleRunning)
	if err != nil {
		return false, err
	}
	if ev == nil {
		return false, nil
	}

	start := time.Now()
	runErr := p.dispatch(ctx, ev)
	status := domainjobs.OutboxSucceeded
	if runErr != nil {
		status = domainjobs.OutboxFailed
		p.log.Warn("outbox event failed",
			"event_id", ev.ID,
			"event_type", ev.EventType,
			"attempt", ev.Attempts,
			"error", runErr,
		)
		if err := p.repo.MarkFailed(dbctx.Context{Ctx: ctx}, ev.ID, runErr); err != nil {
			p.log.Error("outbox MarkFailed failed", "event_id", ev.ID, "error", err)
		}
		if ev.Attempts >= p.policy.MaxAttempts {
			p.log.Error("outbox event exhausted retries", "event_id", ev.ID, "event_type", ev.EventType, "attempts", ev.Attempts)
		}
	}
	p.observer.ObserveOutboxEvent(ev.EventType, status, time.Since(start))
	return true, nil
}

func (p *Processor) dispatch(ctx context.Context, ev *types.OutboxEvent) (err error) {
	h, ok := p.registry.Get(ev.EventType)
	if !ok {
		return &missingHandlerError{EventType: ev.EventType}
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("outbox handler panic", "event_id", ev.ID, "event_type", ev.EventType, "panic", r)
			err = errFromRecover(r)
		}
	}()
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := h.Run(runtime.NewContext(ctx, tx, ev, p.log)); err != nil {
			return err
		}
		return p.repo.MarkSucceeded(dbctx.Context{Ctx: ctx, Tx: tx}, ev.ID)
	})
}

// DrainOnce processes events until the queue is empty or max is reached.
func (p *Processor) DrainOnce(ctx context.Context, max int) (int, error) {
	if max <= 0 {
		max = 100
	}
	n := 0
	for n < max {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		claimed, err := p.ProcessNext(ctx)
		if err != nil {
			return n, err
		}
		if !claimed {
			break
		}
		n++
	}
	return n, nil
}

type missingHandlerError struct{ EventType string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for event_type=" + e.EventType
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return "panic: unexpected error" }
