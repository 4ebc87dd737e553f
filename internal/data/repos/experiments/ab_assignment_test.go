package experiments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/dineops-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainexp "github.com/yungbote/dineops-backend/internal/domain/experiments"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
)

func TestABAssignmentRepo_InsertIfAbsentKeepsFirstVariant(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	repo := NewABAssignmentRepo(db, testutil.Logger(t))
	program := testutil.SeedProgram(t, ctx, db, nil, nil)
	test := testutil.SeedABTest(t, ctx, db, program.ID, 50, "")
	dbc := dbctx.Context{Ctx: ctx}

	first := &types.ABAssignment{TestID: test.ID, CustomerID: "cust-1", Variant: domainexp.VariantTreatment, AssignedAt: time.Now().UTC()}
	created, err := repo.InsertIfAbsent(dbc, first)
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	dup := &types.ABAssignment{TestID: test.ID, CustomerID: "cust-1", Variant: domainexp.VariantControl, AssignedAt: time.Now().UTC()}
	created, err = repo.InsertIfAbsent(dbc, dup)
	if err != nil || created {
		t.Fatalf("duplicate insert: created=%v err=%v", created, err)
	}

	got, err := repo.Get(dbc, test.ID, "cust-1")
	if err != nil || got == nil {
		t.Fatalf("Get: row=%v err=%v", got, err)
	}
	if got.Variant != domainexp.VariantTreatment {
		t.Fatalf("variant: want=%s got=%s", domainexp.VariantTreatment, got.Variant)
	}

	if none, err := repo.Get(dbc, uuid.New(), "cust-1"); err != nil || none != nil {
		t.Fatalf("unknown test: row=%v err=%v", none, err)
	}
}

func TestABAssignmentRepo_CountByVariant(t *testing.T) {
	db := testutil.SQLite(t)
	ctx := context.Background()
	repo := NewABAssignmentRepo(db, testutil.Logger(t))
	program := testutil.SeedProgram(t, ctx, db, nil, nil)
	test := testutil.SeedABTest(t, ctx, db, program.ID, 50, "")
	other := testutil.SeedABTest(t, ctx, db, program.ID, 50, "")

	testutil.SeedAssignment(t, ctx, db, test.ID, "a", domainexp.VariantControl)
	testutil.SeedAssignment(t, ctx, db, test.ID, "b", domainexp.VariantTreatment)
	testutil.SeedAssignment(t, ctx, db, test.ID, "c", domainexp.VariantTreatment)
	testutil.SeedAssignment(t, ctx, db, other.ID, "a", domainexp.VariantTreatment)

	counts, err := repo.CountByVariant(dbctx.Context{Ctx: ctx}, test.ID)
	if err != nil {
		t.Fatalf("CountByVariant: %v", err)
	}
	if counts[domainexp.VariantControl] != 1 || counts[domainexp.VariantTreatment] != 2 {
		t.Fatalf("counts: %v", counts)
	}
}
