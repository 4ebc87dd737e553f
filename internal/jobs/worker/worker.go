package worker

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/dineops-backend/internal/jobs"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
}

// Worker is the in-process outbox driver: a fixed pool of polling loops over
// one shared Processor.
type Worker struct {
	log       *logger.Logger
	processor *jobs.Processor
	cfg       Config
	wg        sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, processor *jobs.Processor, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Worker{
		log:       baseLog.With("component", "OutboxWorker"),
		processor: processor,
		cfg:       cfg,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting outbox worker pool", "concurrency", w.cfg.Concurrency, "poll_interval", w.cfg.PollInterval)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop has exited after ctx is cancelled.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Keep claiming while there is work; go back to the ticker when idle.
			for ctx.Err() == nil {
				claimed, err := w.processor.ProcessNext(ctx)
				if err != nil {
					w.log.Warn("outbox claim failed", "worker_id", workerID, "error", err)
					break
				}
				if !claimed {
					break
				}
			}
		}
	}
}
