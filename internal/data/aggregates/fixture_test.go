package aggregates_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/dineops-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/dineops-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/dineops-backend/internal/data/repos"
	repotestutil "github.com/yungbote/dineops-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dineops-backend/internal/domain"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

// stepClock advances one second per reading so ledger rows of consecutive
// writes never share a created_at.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	hooks *aggtestutil.HooksRecorder
	clock *stepClock

	customers    repos.CustomerLoyaltyRepo
	transactions repos.LoyaltyTransactionRepo
	outbox       repos.OutboxRepo
	campaigns    repos.QRCampaignRepo
	usage        repos.QRCampaignUsageRepo
	tests        repos.ABTestRepo
	assignments  repos.ABAssignmentRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := repotestutil.SQLite(t)
	log := repotestutil.Logger(t)
	return &fixture{
		t:            t,
		ctx:          context.Background(),
		db:           db,
		hooks:        &aggtestutil.HooksRecorder{},
		clock:        &stepClock{cur: time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)},
		customers:    repos.NewCustomerLoyaltyRepo(db, log),
		transactions: repos.NewLoyaltyTransactionRepo(db, log),
		outbox:       repos.NewOutboxRepo(db, log),
		campaigns:    repos.NewQRCampaignRepo(db, log),
		usage:        repos.NewQRCampaignUsageRepo(db, log),
		tests:        repos.NewABTestRepo(db, log),
		assignments:  repos.NewABAssignmentRepo(db, log),
	}
}

func (f *fixture) base() aggregates.BaseDeps {
	return aggregates.BaseDeps{
		DB:    f.db,
		Log:   repotestutil.Logger(f.t),
		Hooks: f.hooks,
		Clock: f.clock.Now,
	}
}

func (f *fixture) dbc() dbctx.Context {
	return dbctx.Context{Ctx: f.ctx}
}

func (f *fixture) customer(id uuid.UUID) *types.CustomerLoyaltyRecord {
	f.t.Helper()
	rec, err := f.customers.GetByID(f.dbc(), id)
	if err != nil || rec == nil {
		f.t.Fatalf("load customer %s: rec=%v err=%v", id, rec, err)
	}
	return rec
}

func (f *fixture) count(model any, where string, args ...any) int64 {
	f.t.Helper()
	var n int64
	q := f.db.WithContext(f.ctx).Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		f.t.Fatalf("count: %v", err)
	}
	return n
}

// requireReconciled checks current_points against the newest ledger row.
func (f *fixture) requireReconciled(id uuid.UUID) {
	f.t.Helper()
	rec := f.customer(id)
	latest, err := f.transactions.LatestForCustomer(f.dbc(), id)
	if err != nil {
		f.t.Fatalf("latest ledger row: %v", err)
	}
	if latest == nil {
		if rec.CurrentPoints != 0 {
			f.t.Fatalf("customer %s has %d points and no ledger rows", id, rec.CurrentPoints)
		}
		return
	}
	if latest.PointsBalance != rec.CurrentPoints {
		f.t.Fatalf("reconciliation: current_points=%d latest points_balance=%d", rec.CurrentPoints, latest.PointsBalance)
	}
}
