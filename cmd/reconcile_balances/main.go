package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/dineops-backend/internal/data/db"
	"github.com/yungbote/dineops-backend/internal/data/repos"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/envutil"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type mismatch struct {
	CustomerID    uuid.UUID
	ProgramID     uuid.UUID
	CurrentPoints int
	LedgerBalance int
	HasLedger     bool
}

func main() {
	var programFlag string
	var pageSize int
	flag.StringVar(&programFlag, "program", "", "only check customers of this loyalty program id")
	flag.IntVar(&pageSize, "page-size", 500, "customer records read per page")
	flag.Parse()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var programID *uuid.UUID
	if s := strings.TrimSpace(programFlag); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			fmt.Printf("invalid -program %q: %v\n", s, err)
			os.Exit(2)
		}
		programID = &id
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		fmt.Printf("init postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	customers := repos.NewCustomerLoyaltyRepo(pg.DB(), log)
	ledger := repos.NewLoyaltyTransactionRepo(pg.DB(), log)

	checked, bad, err := reconcile(context.Background(), customers, ledger, programID, pageSize, os.Stdout)
	if err != nil {
		fmt.Printf("reconcile: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("done; checked=%d mismatched=%d\n", checked, len(bad))
	if len(bad) > 0 {
		os.Exit(3)
	}
}

// reconcile walks customer records in id order and compares current_points
// with the points_balance of each record's newest ledger row. A record with
// no ledger rows must hold zero points.
func reconcile(ctx context.Context, customers repos.CustomerLoyaltyRepo, ledger repos.LoyaltyTransactionRepo, programID *uuid.UUID, pageSize int, out io.Writer) (int, []mismatch, error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	dbc := dbctx.Context{Ctx: ctx}
	var bad []mismatch
	checked := 0
	after := uuid.Nil
	for {
		page, err := customers.ListPage(dbc, programID, after, pageSize)
		if err != nil {
			return checked, bad, fmt.Errorf("list customers after %s: %w", after, err)
		}
		for _, rec := range page {
			checked++
			latest, err := ledger.LatestForCustomer(dbc, rec.ID)
			if err != nil {
				return checked, bad, fmt.Errorf("latest transaction for %s: %w", rec.ID, err)
			}
			m := mismatch{CustomerID: rec.ID, ProgramID: rec.ProgramID, CurrentPoints: rec.CurrentPoints}
			if latest != nil {
				m.HasLedger = true
				m.LedgerBalance = latest.PointsBalance
			}
			if m.CurrentPoints != m.LedgerBalance {
				bad = append(bad, m)
				fmt.Fprintf(out, "mismatch customer=%s program=%s current_points=%d ledger_balance=%d has_ledger=%t\n",
					m.CustomerID, m.ProgramID, m.CurrentPoints, m.LedgerBalance, m.HasLedger)
			}
		}
		if len(page) < pageSize {
			return checked, bad, nil
		}
		after = page[len(page)-1].ID
	}
}
