package app

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/dineops-backend/internal/platform/cache"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
	"github.com/yungbote/dineops-backend/internal/temporalx"
)

type Clients struct {
	Cache       cache.Cache
	Temporal    temporalsdkclient.Client
	TemporalCfg temporalx.Config
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	c, err := cache.New(ctx, log, cfg.Cache)
	if err != nil {
		return Clients{}, fmt.Errorf("init cache: %w", err)
	}

	tcfg := temporalx.LoadConfig()
	var tc temporalsdkclient.Client
	if cfg.RunWorker {
		tc, err = temporalx.NewClient(ctx, log, tcfg)
		if err != nil {
			closeCache(c)
			return Clients{}, fmt.Errorf("init temporal client: %w", err)
		}
	}

	return Clients{Cache: c, Temporal: tc, TemporalCfg: tcfg}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	closeCache(c.Cache)
}

func closeCache(c cache.Cache) {
	if rc, ok := c.(*cache.Redis); ok {
		_ = rc.Close()
	}
}
