package app

import (
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/yungbote/dineops-backend/internal/data/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/jobs"
	"github.com/yungbote/dineops-backend/internal/jobs/worker"
	"github.com/yungbote/dineops-backend/internal/observability"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
	"github.com/yungbote/dineops-backend/internal/services"
	"github.com/yungbote/dineops-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Programs        services.ProgramSettingsService
	Tracker         services.LoyaltyTrackerService
	QRClaims        services.QRClaimService
	ABTests         services.ABTestService
	PlatformMetrics services.PlatformMetricsService

	// Outbox drivers. At most one of OutboxWorker and TemporalWorker is set.
	OutboxProcessor *jobs.Processor
	OutboxWorker    *worker.Worker
	TemporalWorker  *temporalworker.Runner
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, defaults loyalty.Defaults, repos Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	base := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics),
	}
	accounts := aggregates.NewLoyaltyAccountAggregate(aggregates.LoyaltyAccountAggregateDeps{
		Base:         base,
		Customers:    repos.Customers,
		Transactions: repos.Transactions,
		Outbox:       repos.Outbox,
	})
	claims := aggregates.NewQRClaimAggregate(aggregates.QRClaimAggregateDeps{
		Base:         base,
		Campaigns:    repos.Campaigns,
		Usage:        repos.CampaignUse,
		Customers:    repos.Customers,
		Transactions: repos.Transactions,
		Outbox:       repos.Outbox,
	})
	experimentsAgg := aggregates.NewExperimentAggregate(aggregates.ExperimentAggregateDeps{
		Base:         base,
		Tests:        repos.ABTests,
		Assignments:  repos.Assignments,
		Customers:    repos.Customers,
		Transactions: repos.Transactions,
	})

	programs := services.NewProgramSettingsService(db, log, repos.Programs, clients.Cache, defaults)
	tracker := services.NewLoyaltyTrackerService(db, log, programs, accounts, defaults)
	qrClaims := services.NewQRClaimService(db, log, claims, defaults)
	abTests := services.NewABTestService(db, log, services.ABTestServiceDeps{
		Tests:        repos.ABTests,
		Assignments:  repos.Assignments,
		Transactions: repos.Transactions,
		Experiments:  experimentsAgg,
		Cache:        clients.Cache,
		Defaults:     defaults,
	})
	platformMetrics := services.NewPlatformMetricsService(db, log, services.PlatformMetricsServiceDeps{
		Metrics:    repos.Platform,
		Cache:      clients.Cache,
		Config:     cfg.PlatformMetrics,
		HTTPClient: &http.Client{},
	})

	out := Services{
		Programs:        programs,
		Tracker:         tracker,
		QRClaims:        qrClaims,
		ABTests:         abTests,
		PlatformMetrics: platformMetrics,
	}

	if !cfg.RunWorker {
		return out, nil
	}

	registry, err := jobs.NewDefaultRegistry(repos.Analytics)
	if err != nil {
		return Services{}, fmt.Errorf("init outbox registry: %w", err)
	}
	var observer jobs.Observer
	if metrics != nil {
		observer = metrics
	}
	out.OutboxProcessor = jobs.NewProcessor(db, log, repos.Outbox, registry, cfg.OutboxPolicy, observer)

	if clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, clients.TemporalCfg, clients.Temporal, out.OutboxProcessor)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
		out.TemporalWorker = runner
		return out, nil
	}
	out.OutboxWorker = worker.NewWorker(log, out.OutboxProcessor, worker.Config{
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: cfg.WorkerPollInterval,
	})
	return out, nil
}
