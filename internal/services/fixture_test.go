package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/dineops-backend/internal/data/aggregates"
	"github.com/yungbote/dineops-backend/internal/data/repos"
	"github.com/yungbote/dineops-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/cache"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

type tickClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// env wires the services over one private SQLite database the same way the
// app container does.
type env struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	cache    *cache.Memory
	clock    *tickClock
	defaults loyalty.Defaults

	programRepo  repos.LoyaltyProgramRepo
	customers    repos.CustomerLoyaltyRepo
	transactions repos.LoyaltyTransactionRepo
	assignments  repos.ABAssignmentRepo
	tests        repos.ABTestRepo

	programs ProgramSettingsService
	tracker  LoyaltyTrackerService
	qr       QRClaimService
	ab       ABTestService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	e := &env{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		cache:    cache.NewMemory(),
		clock:    &tickClock{cur: time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)},
		defaults: loyalty.MustDefaults(),

		programRepo:  repos.NewLoyaltyProgramRepo(db, log),
		customers:    repos.NewCustomerLoyaltyRepo(db, log),
		transactions: repos.NewLoyaltyTransactionRepo(db, log),
		assignments:  repos.NewABAssignmentRepo(db, log),
		tests:        repos.NewABTestRepo(db, log),
	}
	outbox := repos.NewOutboxRepo(db, log)
	base := aggregates.BaseDeps{DB: db, Log: log, Clock: e.clock.Now}

	accounts := aggregates.NewLoyaltyAccountAggregate(aggregates.LoyaltyAccountAggregateDeps{
		Base:         base,
		Customers:    e.customers,
		Transactions: e.transactions,
		Outbox:       outbox,
	})
	claims := aggregates.NewQRClaimAggregate(aggregates.QRClaimAggregateDeps{
		Base:         base,
		Campaigns:    repos.NewQRCampaignRepo(db, log),
		Usage:        repos.NewQRCampaignUsageRepo(db, log),
		Customers:    e.customers,
		Transactions: e.transactions,
		Outbox:       outbox,
	})
	experiments := aggregates.NewExperimentAggregate(aggregates.ExperimentAggregateDeps{
		Base:         base,
		Tests:        e.tests,
		Assignments:  e.assignments,
		Customers:    e.customers,
		Transactions: e.transactions,
		Sample:       func() int { return 0 },
	})

	e.programs = NewProgramSettingsService(db, log, e.programRepo, e.cache, e.defaults)
	e.tracker = NewLoyaltyTrackerService(db, log, e.programs, accounts, e.defaults)
	e.qr = NewQRClaimService(db, log, claims, e.defaults)
	e.ab = NewABTestService(db, log, ABTestServiceDeps{
		Tests:        e.tests,
		Assignments:  e.assignments,
		Transactions: e.transactions,
		Experiments:  experiments,
		Cache:        e.cache,
		Defaults:     e.defaults,
		Clock:        e.clock.Now,
	})
	return e
}

func (e *env) customer(programID uuid.UUID, email, phone string) *types.CustomerLoyaltyRecord {
	e.t.Helper()
	rec, err := e.customers.GetByProgramAndHash(dbctx.Context{Ctx: e.ctx}, programID, loyalty.CustomerHash(email, phone))
	if err != nil {
		e.t.Fatalf("load customer: %v", err)
	}
	return rec
}

func requireCode(t *testing.T, err error, want domainagg.ErrorCode) {
	t.Helper()
	if got := domainagg.CodeOf(err); got != want {
		t.Fatalf("error code: want=%s got=%s (err=%v)", want, got, err)
	}
}

func requireMessage(t *testing.T, err error, want string) {
	t.Helper()
	var aggErr *domainagg.Error
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if !errors.As(err, &aggErr) || aggErr.Message != want {
		t.Fatalf("error message: want=%q got=%v", want, err)
	}
}
