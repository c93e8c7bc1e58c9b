package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonbook/services/retention"
	"salonbook/services/tasks"
	"salonbook/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// SiteLister lists every tenant the fan-out should reach.
type SiteLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Enqueuer is the part of asynq.Client the fan-out uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// CleanupWorker periodically enqueues one ensure-daily task per tenant and
// processes them.
type CleanupWorker struct {
	Sites     SiteLister
	Retention retention.RetentionService
	Queue     Enqueuer
	Logger    *zap.Logger

	server    *asynq.Server
	scheduler *asynq.Scheduler
	client    *asynq.Client
	cronSpec  string
}

// NewCleanupWorker builds the worker on the given Redis queue.
func NewCleanupWorker(redisOpts asynq.RedisClientOpt, cronSpec string, sites SiteLister, rs retention.RetentionService, logger *zap.Logger) *CleanupWorker {
	client := asynq.NewClient(redisOpts)
	return &CleanupWorker{
		Sites:     sites,
		Retention: rs,
		Queue:     client,
		Logger:    logger,
		client:    client,
		cronSpec:  cronSpec,
		server: asynq.NewServer(redisOpts, asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
		}),
		scheduler: asynq.NewScheduler(redisOpts, &asynq.SchedulerOpts{Location: time.UTC}),
	}
}

// Start registers the periodic fan-out and starts processing, retrying the
// server start with a linear backoff.
func (w *CleanupWorker) Start() error {
	if _, err := w.scheduler.Register(w.cronSpec, tasks.NewCleanupFanOutTask()); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", w.cronSpec, err)
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCleanupFanOut, w.HandleFanOut)
	mux.HandleFunc(tasks.TypeCleanupEnsureDaily, w.HandleEnsureDaily)

	const maxAttempts = 5
	var err error
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = w.server.Start(mux); err == nil {
			break
		}
		w.Logger.Warn("Cleanup worker failed to start",
			zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
		time.Sleep(time.Duration(attempts*2) * time.Second)
	}
	if err != nil {
		return fmt.Errorf("cleanup worker: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("cleanup scheduler: %w", err)
	}
	w.Logger.Info("Cleanup worker started", zap.String("schedule", w.cronSpec))
	return nil
}

func (w *CleanupWorker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
	if err := w.client.Close(); err != nil {
		w.Logger.Warn("Failed to close queue client", zap.Error(err))
	}
}

// HandleFanOut enqueues an ensure-daily task for every tenant. One failed
// enqueue does not stop the others.
func (w *CleanupWorker) HandleFanOut(ctx context.Context, _ *asynq.Task) error {
	ids, err := w.Sites.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing sites: %w", err)
	}
	var failed int
	for _, id := range ids {
		task, opts, err := tasks.NewEnsureDailyTask(id)
		if err != nil {
			return err
		}
		if _, err := w.Queue.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
			failed++
			w.Logger.Error("Failed to enqueue daily cleanup", zap.String("tenantID", id), zap.Error(err))
		}
	}
	w.Logger.Info("Daily cleanup fan-out", zap.Int("sites", len(ids)), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d cleanup tasks not enqueued", failed, len(ids))
	}
	return nil
}

// HandleEnsureDaily runs one tenant's daily cleanup. Validation and missing
// tenants are not retried.
func (w *CleanupWorker) HandleEnsureDaily(ctx context.Context, task *asynq.Task) error {
	p, err := tasks.ParseEnsureDailyPayload(task)
	if err != nil {
		w.Logger.Error("Invalid cleanup payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	res, err := w.Retention.EnsureDaily(ctx, p.TenantID)
	switch {
	case errors.Is(err, utils.ErrValidation), errors.Is(err, utils.ErrNotFound):
		w.Logger.Warn("Skipping daily cleanup", zap.String("tenantID", p.TenantID), zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case err != nil:
		return err
	}
	if !res.Ran {
		w.Logger.Debug("Daily cleanup not needed", zap.String("tenantID", p.TenantID), zap.String("reason", res.Reason))
	}
	return nil
}
