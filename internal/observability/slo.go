package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/yungbote/dineops-backend/internal/platform/envutil"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type rollingSum struct {
	values []float64
	idx    int
	total  float64
}

func newRollingSum(size int) *rollingSum {
	if size < 1 {
		size = 1
	}
	return &rollingSum{values: make([]float64, size)}
}

func (r *rollingSum) add(v float64) {
	r.total += v - r.values[r.idx]
	r.values[r.idx] = v
	r.idx = (r.idx + 1) % len(r.values)
}

// sloSource pairs a total counter with its bad-event counter.
type sloSource struct {
	name   string
	target float64
	total  *CounterVec
	bad    *CounterVec

	prevTotal, prevBad float64
	winTotal, winBad   *rollingSum
}

type SLOEvaluator struct {
	metrics     *Metrics
	log         *logger.Logger
	interval    time.Duration
	windowLabel string
	burnWarn    float64
	sources     []*sloSource
}

func (m *Metrics) StartSLOEvaluator(ctx context.Context, log *logger.Logger) {
	if m == nil || !envutil.Bool("SLO_ENABLED", false) {
		return
	}
	interval := envutil.Seconds("SLO_EVAL_INTERVAL_SECONDS", 60)
	window := time.Duration(envutil.Float("SLO_WINDOW_HOURS", 168) * float64(time.Hour))
	eval := newSLOEvaluator(m, log, interval, window)
	go eval.run(ctx)
	if log != nil {
		log.Info("SLO evaluator started", "window", eval.windowLabel, "interval", interval.String())
	}
}

func newSLOEvaluator(m *Metrics, log *logger.Logger, interval, window time.Duration) *SLOEvaluator {
	if interval <= 0 {
		interval = time.Minute
	}
	if window < time.Hour {
		window = 24 * time.Hour
	}
	size := int(window / interval)
	src := func(name string, target float64, total, bad *CounterVec) *sloSource {
		return &sloSource{
			name:     name,
			target:   clamp01(target),
			total:    total,
			bad:      bad,
			winTotal: newRollingSum(size),
			winBad:   newRollingSum(size),
		}
	}
	return &SLOEvaluator{
		metrics:     m,
		log:         log,
		interval:    interval,
		windowLabel: formatWindowLabel(window),
		burnWarn:    envutil.Float("SLO_ALERT_BURN_RATE_WARN", 2),
		sources: []*sloSource{
			src("api_availability", envutil.Float("SLO_API_AVAIL_TARGET", 0.995), m.apiTotal, m.apiErrors),
			src("loyalty_write_success", envutil.Float("SLO_AGGREGATE_SUCCESS_TARGET", 0.999), m.aggTotal, m.aggFailed),
			src("outbox_success", envutil.Float("SLO_OUTBOX_SUCCESS_TARGET", 0.99), m.outboxTotal, m.outboxFailed),
		},
	}
}

func (e *SLOEvaluator) run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.evaluate()
		}
	}
}

func (e *SLOEvaluator) evaluate() {
	for _, s := range e.sources {
		total, bad := s.total.Value(), s.bad.Value()
		s.winTotal.add(delta(total, s.prevTotal))
		s.winBad.add(delta(bad, s.prevBad))
		s.prevTotal, s.prevBad = total, bad
		e.evalSLO(s.name, s.winTotal.total, s.winBad.total, s.target)
	}
}

func (e *SLOEvaluator) evalSLO(name string, total, bad, target float64) {
	if total <= 0 {
		e.metrics.sloCompliance.Set(1, name, e.windowLabel)
		e.metrics.sloBudget.Set(1, name, e.windowLabel)
		e.metrics.sloBurn.Set(0, name, e.windowLabel)
		return
	}
	sli := clamp01(1 - bad/total)
	burn := 0.0
	if target < 1 {
		burn = (1 - sli) / (1 - target)
	}
	e.metrics.sloCompliance.Set(sli, name, e.windowLabel)
	e.metrics.sloBudget.Set(clamp01(1-burn), name, e.windowLabel)
	e.metrics.sloBurn.Set(burn, name, e.windowLabel)
	if e.log != nil && e.burnWarn > 0 && burn >= e.burnWarn {
		e.log.Warn("slo burn rate high", "slo", name, "window", e.windowLabel, "sli", sli, "burn_rate", burn)
	}
}

// delta tolerates counter resets.
func delta(current, prev float64) float64 {
	if current < prev {
		return current
	}
	return current - prev
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func formatWindowLabel(window time.Duration) string {
	hours := int(window.Hours())
	if hours >= 24 && hours%24 == 0 {
		return strconv.Itoa(hours/24) + "d"
	}
	if hours >= 1 {
		return strconv.Itoa(hours) + "h"
	}
	return strconv.Itoa(int(window.Minutes())) + "m"
}
