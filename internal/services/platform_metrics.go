package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	domainplatform "github.com/yungbote/dineops-backend/internal/domain/platform"
	"github.com/yungbote/dineops-backend/internal/platform/cache"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

const (
	defaultProbeTimeout = 3 * time.Second
	recentActivityLimit = 10
	platformSnapshotKey = "platform:metrics:snapshot"

	defaultStripeProbeURL = "https://api.stripe.com/v1/balance"
	defaultSumUpProbeURL  = "https://api.sumup.com/v0.1/me"
)

type PlatformMetricsConfig struct {
	ProbeTimeout time.Duration
	// SnapshotTTL caches the whole snapshot. Zero recomputes on every call.
	SnapshotTTL    time.Duration
	StripeProbeURL string
	SumUpProbeURL  string
}

type PlatformMetricsService interface {
	Snapshot(ctx context.Context) (*domainplatform.Snapshot, error)
}

type platformMetricsService struct {
	db      *gorm.DB
	log     *logger.Logger
	metrics repos.PlatformMetricsRepo
	cache   cache.Cache
	cfg     PlatformMetricsConfig
	client  *http.Client
	getenv  func(string) string
	clock   func() time.Time
}

type PlatformMetricsServiceDeps struct {
	Metrics    repos.PlatformMetricsRepo
	Cache      cache.Cache
	Config     PlatformMetricsConfig
	HTTPClient *http.Client
	// Getenv reads provider keys at call time; defaults to os.Getenv.
	Getenv func(string) string
	Clock  func() time.Time
}

func NewPlatformMetricsService(db *gorm.DB, baseLog *logger.Logger, deps PlatformMetricsServiceDeps) PlatformMetricsService {
	cfg := deps.Config
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if strings.TrimSpace(cfg.StripeProbeURL) == "" {
		cfg.StripeProbeURL = defaultStripeProbeURL
	}
	if strings.TrimSpace(cfg.SumUpProbeURL) == "" {
		cfg.SumUpProbeURL = defaultSumUpProbeURL
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{}
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &platformMetricsService{
		db:      db,
		log:     baseLog.With("service", "PlatformMetricsService"),
		metrics: deps.Metrics,
		cache:   deps.Cache,
		cfg:     cfg,
		client:  deps.HTTPClient,
		getenv:  deps.Getenv,
		clock:   deps.Clock,
	}
}

func (s *platformMetricsService) Snapshot(ctx context.Context) (_ *domainplatform.Snapshot, err error) {
	const op = "Platform.Metrics.Snapshot"
	ctx, span := startSpan(ctx, "platform.metrics.snapshot")
	defer func() { endSpan(span, err) }()

	if s.cache != nil && s.cfg.SnapshotTTL > 0 {
		var cached domainplatform.Snapshot
		if hit, cerr := s.cache.Get(ctx, platformSnapshotKey, &cached); cerr != nil {
			s.log.Warn("platform snapshot cache read failed", "error", cerr)
		} else if hit {
			return &cached, nil
		}
	}

	now := s.clock()
	curStart, priorStart := domainplatform.Windows(now)
	current := repos.MetricsRange{From: curStart, To: now}
	prior := repos.MetricsRange{From: priorStart, To: curStart}

	var (
		snap                     = &domainplatform.Snapshot{GeneratedAt: now}
		curRevenue, priorRevenue float64
		curOrders, priorOrders   int64
		probes                   []domainplatform.ProbeResult
	)

	// Probes run beside the queries; a failing probe degrades health but
	// never fails the snapshot.
	probesDone := make(chan struct{})
	go func() {
		defer close(probesDone)
		probes = s.runProbes(ctx)
	}()

	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}
	g.Go(func() error {
		n, err := s.metrics.CountActiveRestaurants(dbc)
		snap.ActiveBusinesses = n
		return err
	})
	g.Go(func() error {
		total, err := s.metrics.SumCompletedRevenue(dbc, repos.MetricsRange{})
		snap.TotalRevenue = total
		return err
	})
	g.Go(func() error {
		n, err := s.metrics.CountOrders(dbc, repos.MetricsRange{})
		snap.TotalTransactions = n
		return err
	})
	g.Go(func() error {
		v, err := s.metrics.SumCompletedRevenue(dbc, current)
		curRevenue = v.InexactFloat64()
		return err
	})
	g.Go(func() error {
		v, err := s.metrics.SumCompletedRevenue(dbc, prior)
		priorRevenue = v.InexactFloat64()
		return err
	})
	g.Go(func() error {
		n, err := s.metrics.CountOrders(dbc, current)
		curOrders = n
		return err
	})
	g.Go(func() error {
		n, err := s.metrics.CountOrders(dbc, prior)
		priorOrders = n
		return err
	})
	g.Go(func() error {
		rows, err := s.metrics.RecentOrders(dbc, recentActivityLimit)
		snap.RecentActivity = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.metrics.RevenueByProvider(dbc)
		snap.ProviderBreakdown = rows
		return err
	})
	qerr := g.Wait()
	<-probesDone
	if qerr != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "failed to compute platform metrics", qerr)
	}

	snap.RevenueGrowth = domainplatform.Growth(curRevenue, priorRevenue)
	snap.TransactionGrowth = domainplatform.Growth(float64(curOrders), float64(priorOrders))
	if snap.RecentActivity == nil {
		snap.RecentActivity = []domainplatform.Activity{}
	}
	if snap.ProviderBreakdown == nil {
		snap.ProviderBreakdown = []domainplatform.ProviderRevenue{}
	}
	snap.SystemHealth = domainplatform.SummarizeHealth(probes)
	span.SetAttributes(attribute.String("dineops.health", snap.SystemHealth.Status))
	if snap.SystemHealth.Status != domainplatform.HealthHealthy {
		s.log.Warn("platform health degraded", "probes", snap.SystemHealth.Probes)
	}

	if s.cache != nil && s.cfg.SnapshotTTL > 0 {
		if err := s.cache.Set(ctx, platformSnapshotKey, snap, s.cfg.SnapshotTTL); err != nil {
			s.log.Warn("platform snapshot cache write failed", "error", err)
		}
	}
	return snap, nil
}

type probe struct {
	name string
	run  func(ctx context.Context) error
	// skip reports the probe as skipped without running it.
	skip bool
}

func (s *platformMetricsService) probes() []probe {
	stripeKey := strings.TrimSpace(s.getenv("STRIPE_SECRET_KEY"))
	sumupKey := strings.TrimSpace(s.getenv("SUMUP_API_KEY"))
	return []probe{
		{name: "database", run: func(ctx context.Context) error {
			return s.metrics.Ping(dbctx.Context{Ctx: ctx})
		}},
		{name: "stripe", skip: stripeKey == "", run: func(ctx context.Context) error {
			return s.httpProbe(ctx, s.cfg.StripeProbeURL, stripeKey)
		}},
		{name: "sumup", skip: sumupKey == "", run: func(ctx context.Context) error {
			return s.httpProbe(ctx, s.cfg.SumUpProbeURL, sumupKey)
		}},
	}
}

func (s *platformMetricsService) runProbes(ctx context.Context) []domainplatform.ProbeResult {
	list := s.probes()
	out := make([]domainplatform.ProbeResult, len(list))
	var g errgroup.Group
	for i, p := range list {
		if p.skip {
			out[i] = domainplatform.ProbeResult{Name: p.name, Status: domainplatform.ProbeSkipped}
			continue
		}
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
			defer cancel()
			start := time.Now()
			err := p.run(pctx)
			res := domainplatform.ProbeResult{
				Name:      p.name,
				Status:    domainplatform.ProbeOK,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				res.Status = domainplatform.ProbeError
				res.Error = err.Error()
			}
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *platformMetricsService) httpProbe(ctx context.Context, url, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
