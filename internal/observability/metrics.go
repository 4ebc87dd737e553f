package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/dineops-backend/internal/domain"
	domainjobs "github.com/yungbote/dineops-backend/internal/domain/jobs"
	"github.com/yungbote/dineops-backend/internal/platform/envutil"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec

	aggregateOps       *CounterVec
	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	outboxEvents   *CounterVec
	outboxDuration *HistogramVec
	outboxDepth    *GaugeVec

	rateLimited *CounterVec

	pgStats   *GaugeVec
	redisUp   *GaugeVec
	redisPing *GaugeVec

	sloCompliance *GaugeVec
	sloBudget     *GaugeVec
	sloBurn       *GaugeVec

	// unlabeled totals feeding the SLO evaluator
	apiTotal, apiErrors       *CounterVec
	aggTotal, aggFailed       *CounterVec
	outboxTotal, outboxFailed *CounterVec

	all []collector
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init returns the process-wide registry, or nil when metrics are disabled.
// Every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	m := &Metrics{
		apiRequests: NewCounterVec("dineops_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"dineops_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGaugeVec("dineops_api_inflight_requests", "In-flight API requests.", nil),

		aggregateOps: NewCounterVec("dineops_aggregate_operations_total", "Aggregate write operations by operation/status.", []string{"operation", "status"}),
		aggregateLatency: NewHistogramVec(
			"dineops_aggregate_operation_duration_seconds",
			"Aggregate write latency including retries.",
			[]string{"operation", "status"},
			nil,
		),
		aggregateConflicts: NewCounterVec("dineops_aggregate_conflicts_total", "Version or uniqueness conflicts by operation.", []string{"operation"}),
		aggregateRetries:   NewCounterVec("dineops_aggregate_retries_total", "Retried aggregate transactions by operation.", []string{"operation"}),

		outboxEvents: NewCounterVec("dineops_outbox_events_total", "Processed outbox events by type/status.", []string{"event_type", "status"}),
		outboxDuration: NewHistogramVec(
			"dineops_outbox_event_duration_seconds",
			"Outbox handler duration in seconds.",
			[]string{"event_type", "status"},
			nil,
		),
		outboxDepth: NewGaugeVec("dineops_outbox_depth", "Outbox rows by status.", []string{"status"}),

		rateLimited: NewCounterVec("dineops_rate_limited_total", "Requests rejected by a rate limiter.", []string{"route"}),

		pgStats:   NewGaugeVec("dineops_postgres_stats", "Postgres connection pool stats.", []string{"metric"}),
		redisUp:   NewGaugeVec("dineops_redis_up", "Redis connectivity (1=up, 0=down).", nil),
		redisPing: NewGaugeVec("dineops_redis_ping_seconds", "Redis ping latency in seconds.", nil),

		sloCompliance: NewGaugeVec("dineops_slo_compliance", "SLO compliance (SLI) over window.", []string{"slo", "window"}),
		sloBudget:     NewGaugeVec("dineops_slo_error_budget_remaining", "Error budget remaining (0-1).", []string{"slo", "window"}),
		sloBurn:       NewGaugeVec("dineops_slo_burn_rate", "Error budget burn rate.", []string{"slo", "window"}),

		apiTotal:     NewCounterVec("dineops_api_requests_all_total", "API requests (all).", nil),
		apiErrors:    NewCounterVec("dineops_api_requests_error_total", "API requests answered with 5xx.", nil),
		aggTotal:     NewCounterVec("dineops_aggregate_operations_all_total", "Aggregate operations (all).", nil),
		aggFailed:    NewCounterVec("dineops_aggregate_operations_failed_total", "Aggregate operations that ended in an internal or retryable error.", nil),
		outboxTotal:  NewCounterVec("dineops_outbox_events_all_total", "Outbox events processed (all).", nil),
		outboxFailed: NewCounterVec("dineops_outbox_events_failed_total", "Outbox events whose handler failed.", nil),
	}
	m.all = []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.outboxEvents, m.outboxDuration, m.outboxDepth,
		m.rateLimited,
		m.pgStats, m.redisUp, m.redisPing,
		m.sloCompliance, m.sloBudget, m.sloBurn,
		m.apiTotal, m.apiErrors, m.aggTotal, m.aggFailed, m.outboxTotal, m.outboxFailed,
	}
	return m
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.all {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiTotal.Inc()
	if strings.HasPrefix(status, "5") {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Inc(op, status)
	m.aggregateLatency.Observe(dur.Seconds(), op, status)
	m.aggTotal.Inc()
	if status == "internal" || status == "retryable" {
		m.aggFailed.Inc()
	}
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.Inc(op)
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.Inc(op)
}

// ObserveOutboxEvent satisfies jobs.Observer.
func (m *Metrics) ObserveOutboxEvent(eventType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.outboxEvents.Inc(eventType, status)
	m.outboxDuration.Observe(dur.Seconds(), eventType, status)
	m.outboxTotal.Inc()
	if status != domainjobs.OutboxSucceeded {
		m.outboxFailed.Inc()
	}
}

func (m *Metrics) IncRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.Inc(route)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	m.every(ctx, func() {
		sqlDB, err := db.DB()
		if err != nil {
			if log != nil {
				log.Warn("metrics: postgres stats unavailable", "error", err)
			}
			return
		}
		stats := sqlDB.Stats()
		m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
		m.pgStats.Set(float64(stats.InUse), "in_use")
		m.pgStats.Set(float64(stats.Idle), "idle")
		m.pgStats.Set(float64(stats.WaitCount), "wait_count")
		m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
		m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
	})
}

// StartRedisCollector pings the shared client; it does not own or close it.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	m.every(ctx, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

func (m *Metrics) StartOutboxCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	m.every(ctx, func() {
		if err := m.CollectOutboxDepth(ctx, db); err != nil && log != nil {
			log.Warn("metrics: outbox depth query failed", "error", err)
		}
	})
}

// CollectOutboxDepth refreshes the per-status outbox gauge once.
func (m *Metrics) CollectOutboxDepth(ctx context.Context, db *gorm.DB) error {
	if m == nil {
		return nil
	}
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).
		Model(&types.OutboxEvent{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, s := range []string{domainjobs.OutboxQueued, domainjobs.OutboxRunning, domainjobs.OutboxSucceeded, domainjobs.OutboxFailed} {
		m.outboxDepth.Set(0, s)
	}
	for _, row := range rows {
		m.outboxDepth.Set(float64(row.Count), strings.TrimSpace(row.Status))
	}
	return nil
}

func (m *Metrics) every(ctx context.Context, fn func()) {
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// StatusLabel renders an HTTP status for metric labels.
func StatusLabel(code int) string {
	if code <= 0 {
		return "0"
	}
	return strconv.Itoa(code)
}
