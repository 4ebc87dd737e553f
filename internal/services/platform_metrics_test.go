package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	"github.com/yungbote/dineops-backend/internal/data/repos/testutil"
	domainplatform "github.com/yungbote/dineops-backend/internal/domain/platform"
	"github.com/yungbote/dineops-backend/internal/platform/cache"
)

func envVars(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func probeByName(t *testing.T, h domainplatform.Health, name string) domainplatform.ProbeResult {
	t.Helper()
	for _, p := range h.Probes {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("probe %s missing from %+v", name, h.Probes)
	return domainplatform.ProbeResult{}
}

func TestPlatformMetrics_SnapshotAndGrowth(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	open := testutil.SeedRestaurant(t, ctx, db, "Bistro", true)
	testutil.SeedRestaurant(t, ctx, db, "Closed", false)
	testutil.SeedPayment(t, ctx, db, open.ID, "120.00", domainplatform.PaymentCompleted, "stripe", now.AddDate(0, 0, -2))
	testutil.SeedPayment(t, ctx, db, open.ID, "80.00", domainplatform.PaymentCompleted, "sumup", now.AddDate(0, 0, -40))
	testutil.SeedPayment(t, ctx, db, open.ID, "999.00", "failed", "stripe", now.AddDate(0, 0, -1))
	testutil.SeedOrder(t, ctx, db, open.ID, "120.00", now.AddDate(0, 0, -2))
	testutil.SeedOrder(t, ctx, db, open.ID, "15.00", now.AddDate(0, 0, -1))

	svc := NewPlatformMetricsService(db, log, PlatformMetricsServiceDeps{
		Metrics: repos.NewPlatformMetricsRepo(db, log),
		Getenv:  envVars(nil),
		Clock:   func() time.Time { return now },
	})
	snap, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.ActiveBusinesses != 1 {
		t.Fatalf("active businesses: want=1 got=%d", snap.ActiveBusinesses)
	}
	if !snap.TotalRevenue.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("total revenue: want=200 got=%s", snap.TotalRevenue)
	}
	if snap.TotalTransactions != 2 {
		t.Fatalf("transactions: want=2 got=%d", snap.TotalTransactions)
	}
	// 120 current vs 80 prior
	if snap.RevenueGrowth != 50 {
		t.Fatalf("revenue growth: want=50 got=%v", snap.RevenueGrowth)
	}
	// two orders now, none before
	if snap.TransactionGrowth != 100 {
		t.Fatalf("transaction growth: want=100 got=%v", snap.TransactionGrowth)
	}
	if len(snap.RecentActivity) != 2 || snap.RecentActivity[0].RestaurantName != "Bistro" {
		t.Fatalf("recent activity: %+v", snap.RecentActivity)
	}
	if len(snap.ProviderBreakdown) != 2 {
		t.Fatalf("providers: %+v", snap.ProviderBreakdown)
	}
	if snap.SystemHealth.Status != domainplatform.HealthHealthy {
		t.Fatalf("health: %+v", snap.SystemHealth)
	}
	if p := probeByName(t, snap.SystemHealth, "database"); p.Status != domainplatform.ProbeOK {
		t.Fatalf("database probe: %+v", p)
	}
	if p := probeByName(t, snap.SystemHealth, "stripe"); p.Status != domainplatform.ProbeSkipped {
		t.Fatalf("stripe probe without key: %+v", p)
	}
}

func TestPlatformMetrics_ProviderProbes(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)

	var gotAuth string
	stripe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer stripe.Close()
	sumup := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer sumup.Close()

	svc := NewPlatformMetricsService(db, log, PlatformMetricsServiceDeps{
		Metrics: repos.NewPlatformMetricsRepo(db, log),
		Config:  PlatformMetricsConfig{StripeProbeURL: stripe.URL, SumUpProbeURL: sumup.URL},
		Getenv:  envVars(map[string]string{"STRIPE_SECRET_KEY": "sk_test_1", "SUMUP_API_KEY": "sup_1"}),
	})
	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if gotAuth != "Bearer sk_test_1" {
		t.Fatalf("stripe auth header: got=%q", gotAuth)
	}
	if p := probeByName(t, snap.SystemHealth, "stripe"); p.Status != domainplatform.ProbeOK {
		t.Fatalf("stripe probe: %+v", p)
	}
	if p := probeByName(t, snap.SystemHealth, "sumup"); p.Status != domainplatform.ProbeError || p.Error != "status 401" {
		t.Fatalf("sumup probe: %+v", p)
	}
	if snap.SystemHealth.Status != domainplatform.HealthDegraded {
		t.Fatalf("health: want=degraded got=%s", snap.SystemHealth.Status)
	}
	if snap.RevenueGrowth != 0 || snap.TransactionGrowth != 0 {
		t.Fatalf("empty growth: %v %v", snap.RevenueGrowth, snap.TransactionGrowth)
	}
}

func TestPlatformMetrics_ProbeTimeout(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	svc := NewPlatformMetricsService(db, log, PlatformMetricsServiceDeps{
		Metrics: repos.NewPlatformMetricsRepo(db, log),
		Config:  PlatformMetricsConfig{ProbeTimeout: 50 * time.Millisecond, StripeProbeURL: slow.URL},
		Getenv:  envVars(map[string]string{"STRIPE_SECRET_KEY": "sk"}),
	})
	start := time.Now()
	snap, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("probe timeout not enforced: %v", time.Since(start))
	}
	if p := probeByName(t, snap.SystemHealth, "stripe"); p.Status != domainplatform.ProbeError {
		t.Fatalf("slow probe: %+v", p)
	}
}

func TestPlatformMetrics_SnapshotCache(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	svc := NewPlatformMetricsService(db, log, PlatformMetricsServiceDeps{
		Metrics: repos.NewPlatformMetricsRepo(db, log),
		Cache:   cache.NewMemory(),
		Config:  PlatformMetricsConfig{SnapshotTTL: time.Minute},
		Getenv:  envVars(nil),
	})
	first, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	testutil.SeedRestaurant(t, ctx, db, "Late", true)
	second, _ := svc.Snapshot(ctx)
	if second.ActiveBusinesses != first.ActiveBusinesses {
		t.Fatalf("expected cached snapshot: %d vs %d", second.ActiveBusinesses, first.ActiveBusinesses)
	}
}
