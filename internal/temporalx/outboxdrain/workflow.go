package outboxdrain

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow drains the outbox in batches for as long as it runs. A full batch
// is followed immediately by the next one; an empty batch sleeps IdleInterval.
// Activity failures never end the workflow.
func Workflow(ctx workflow.Context, in DrainInput) error {
	in = in.withDefaults()
	log := workflow.GetLogger(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    int32(in.ActivityAttempts),
		},
	})

	for tick := 1; ; tick++ {
		var out DrainResult
		err := workflow.ExecuteActivity(ctx, ActivityDrain, in.Batch).Get(ctx, &out)
		if err != nil {
			log.Warn("outbox drain batch failed", "tick", tick, "error", err)
		}
		if err != nil || out.Processed < in.Batch {
			if serr := workflow.Sleep(ctx, in.IdleInterval); serr != nil {
				return serr
			}
		}
		if shouldContinueAsNew(ctx, tick, in.MaxTicks) {
			return workflow.NewContinueAsNewError(ctx, WorkflowName, in)
		}
	}
}

func shouldContinueAsNew(ctx workflow.Context, ticks, maxTicks int) bool {
	if ticks >= maxTicks {
		return true
	}
	info := workflow.GetInfo(ctx)
	return info != nil && info.GetCurrentHistoryLength() >= 15000
}
