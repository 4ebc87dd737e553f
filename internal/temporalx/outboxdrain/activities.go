package outboxdrain

import (
	"context"
	"fmt"

	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

// Drainer is satisfied by *jobs.Processor.
type Drainer interface {
	DrainOnce(ctx context.Context, max int) (int, error)
}

type Activities struct {
	Log     *logger.Logger
	Drainer Drainer
}

func (a *Activities) Drain(ctx context.Context, batch int) (DrainResult, error) {
	if a == nil || a.Drainer == nil {
		return DrainResult{}, fmt.Errorf("outboxdrain: activity not configured")
	}
	n, err := a.Drainer.DrainOnce(ctx, batch)
	if err != nil {
		return DrainResult{Processed: n}, err
	}
	if n > 0 && a.Log != nil {
		a.Log.Debug("Outbox batch drained", "processed", n)
	}
	return DrainResult{Processed: n}, nil
}
