package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dineops-backend/internal/data/db"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	apphttp "github.com/yungbote/dineops-backend/internal/http"
	"github.com/yungbote/dineops-backend/internal/observability"
	"github.com/yungbote/dineops-backend/internal/platform/cache"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *apphttp.Server

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfigFromEnv(cfg.ServiceName))
	metrics := observability.Init(log)

	defaults, err := loyalty.LoadDefaults(cfg.LoyaltyDefaultsPath)
	if err != nil {
		log.Sync()
		return nil, err
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if cfg.AutoMigrate {
		if err := pg.AutoMigrateAll(); err != nil {
			_ = pg.Close()
			log.Sync()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	theDB := pg.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, defaults, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		pg:           pg,
		otelShutdown: otelShutdown,
	}
	if cfg.RunServer {
		handlers := wireHandlers(log, serviceset, pg.Ping)
		middleware := wireMiddleware(log, cfg, clients, metrics)
		a.Server = wireServer(log, cfg, handlers, middleware, metrics, otelShutdown != nil)
	}
	return a, nil
}

// Start launches the background loops: collectors, the SLO evaluator and the
// outbox driver. It returns once they are running.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.Metrics.StartOutboxCollector(ctx, a.Log, a.DB)
		if rc, ok := a.Clients.Cache.(*cache.Redis); ok {
			a.Metrics.StartRedisCollector(ctx, a.Log, rc.Client())
		}
		a.Metrics.StartSLOEvaluator(ctx, a.Log)
	}

	switch {
	case a.Services.TemporalWorker != nil:
		if err := a.Services.TemporalWorker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
	case a.Services.OutboxWorker != nil:
		a.Services.OutboxWorker.Start(ctx)
	}
	return nil
}

// Run serves HTTP until Shutdown, or blocks until ctx is done in worker-only
// deployments.
func (a *App) Run(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Server == nil {
		a.Log.Info("RUN_SERVER disabled; running background workers only")
		<-ctx.Done()
		return nil
	}
	a.Log.Info("Server listening", "port", a.Cfg.Port)
	return a.Server.Run()
}

func (a *App) Shutdown(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.OutboxWorker != nil {
		done := make(chan struct{})
		go func() {
			a.Services.OutboxWorker.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("outbox worker: %w", ctx.Err()))
		}
	}
	a.Services.TemporalWorker.Stop()
	a.Clients.Close()
	if a.otelShutdown != nil {
		otelCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := a.otelShutdown(otelCtx); err != nil {
			errs = append(errs, fmt.Errorf("otel shutdown: %w", err))
		}
		cancel()
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	a.Log.Sync()
	return errors.Join(errs...)
}
