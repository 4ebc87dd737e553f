package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/dineops-backend/internal/platform/envutil"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
	"github.com/yungbote/dineops-backend/internal/temporalx"
	"github.com/yungbote/dineops-backend/internal/temporalx/outboxdrain"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type Runner struct {
	log     *logger.Logger
	cfg     temporalx.Config
	tc      temporalsdkclient.Client
	drainer outboxdrain.Drainer
	input   outboxdrain.DrainInput
	w       worker.Worker
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, drainer outboxdrain.Drainer) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if drainer == nil {
		return nil, fmt.Errorf("temporal worker missing outbox drainer")
	}
	return &Runner{
		log:     log.With("component", "TemporalWorker"),
		cfg:     cfg,
		tc:      tc,
		drainer: drainer,
		input: outboxdrain.DrainInput{
			Batch:        envutil.Int("OUTBOX_DRAIN_BATCH", 50),
			IdleInterval: envutil.Millis("OUTBOX_POLL_INTERVAL_MS", 1000),
		},
	}, nil
}

// Start polls the task queue and makes sure exactly one drain workflow is
// running. Call Stop before closing the client.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	maxWait := envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60)
	deadline := time.Now().Add(maxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			r.w = w
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return r.ensureDrainWorkflow(ctx)
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}
		if maxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		time.Sleep(250 * time.Millisecond * time.Duration(attempt))
	}
}

func (r *Runner) Stop() {
	if r == nil || r.w == nil {
		return
	}
	r.w.Stop()
	r.w = nil
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := envutil.Int("OUTBOX_WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &outboxdrain.Activities{Log: r.log, Drainer: r.drainer}
	w.RegisterWorkflowWithOptions(outboxdrain.Workflow, workflow.RegisterOptions{Name: outboxdrain.WorkflowName})
	w.RegisterActivityWithOptions(acts.Drain, activity.RegisterOptions{Name: outboxdrain.ActivityDrain})
	return w
}

func (r *Runner) ensureDrainWorkflow(ctx context.Context) error {
	run, err := r.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                       outboxdrain.WorkflowID,
		TaskQueue:                r.cfg.TaskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}, outboxdrain.WorkflowName, r.input)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return nil
		}
		return fmt.Errorf("start outbox drain workflow: %w", err)
	}
	r.log.Info("Outbox drain workflow running", "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
