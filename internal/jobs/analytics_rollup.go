package jobs

import (
	"fmt"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	domainjobs "github.com/yungbote/dineops-backend/internal/domain/jobs"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/jobs/runtime"
)

// AnalyticsRollupHandler folds one loyalty.AnalyticsDelta into the daily rollup.
type AnalyticsRollupHandler struct {
	analytics repos.LoyaltyAnalyticsRepo
}

func NewAnalyticsRollupHandler(analytics repos.LoyaltyAnalyticsRepo) *AnalyticsRollupHandler {
	return &AnalyticsRollupHandler{analytics: analytics}
}

func (h *AnalyticsRollupHandler) Type() string { return domainjobs.EventAnalyticsRollup }

func (h *AnalyticsRollupHandler) Run(ctx *runtime.Context) error {
	var delta loyalty.AnalyticsDelta
	if err := ctx.Decode(&delta); err != nil {
		return err
	}
	if delta.IsZero() {
		return nil
	}
	if err := h.analytics.ApplyDelta(ctx.DBC(), delta); err != nil {
		return fmt.Errorf("apply analytics delta: %w", err)
	}
	ctx.Log.Debug("analytics rollup applied", "program_id", delta.ProgramID, "day", delta.Day)
	return nil
}

// NewDefaultRegistry registers every outbox handler the service runs.
func NewDefaultRegistry(analytics repos.LoyaltyAnalyticsRepo) (*runtime.Registry, error) {
	reg := runtime.NewRegistry()
	if err := reg.Register(NewAnalyticsRollupHandler(analytics)); err != nil {
		return nil, err
	}
	return reg, nil
}
