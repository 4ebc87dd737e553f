package platform

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"

	ProbeOK      = "ok"
	ProbeError   = "error"
	ProbeSkipped = "skipped"
)

// Snapshot is computed on demand and never stored.
type Snapshot struct {
	ActiveBusinesses  int64             `json:"active_businesses"`
	TotalRevenue      decimal.Decimal   `json:"total_revenue"`
	TotalTransactions int64             `json:"total_transactions"`
	RevenueGrowth     float64           `json:"revenue_growth"`
	TransactionGrowth float64           `json:"transaction_growth"`
	RecentActivity    []Activity        `json:"recent_activity"`
	ProviderBreakdown []ProviderRevenue `json:"provider_breakdown"`
	SystemHealth      Health            `json:"system_health"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

type Activity struct {
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number,omitempty"`
	RestaurantID   uuid.UUID       `json:"restaurant_id"`
	RestaurantName string          `json:"restaurant_name,omitempty"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ProviderRevenue struct {
	Provider     string          `json:"provider"`
	Revenue      decimal.Decimal `json:"revenue"`
	Transactions int64           `json:"transactions"`
}

type Health struct {
	Status string        `json:"status"`
	Probes []ProbeResult `json:"probes"`
}

type ProbeResult struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// SummarizeHealth is degraded when any probe failed. Skipped probes count as healthy.
func SummarizeHealth(probes []ProbeResult) Health {
	h := Health{Status: HealthHealthy, Probes: probes}
	if h.Probes == nil {
		h.Probes = []ProbeResult{}
	}
	for _, p := range probes {
		if p.Status == ProbeError {
			h.Status = HealthDegraded
			break
		}
	}
	return h
}

// Growth is the percentage change from prior to current, rounded to two
// places. A zero prior window yields 100 when there is any current activity.
func Growth(current, prior float64) float64 {
	if prior == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	g := (current - prior) / prior * 100
	return math.Round(g*100) / 100
}

// Windows returns the current [now-30d, now) and prior [now-60d, now-30d) windows.
func Windows(now time.Time) (curStart, priorStart time.Time) {
	now = now.UTC()
	curStart = now.AddDate(0, 0, -30)
	priorStart = now.AddDate(0, 0, -60)
	return curStart, priorStart
}
