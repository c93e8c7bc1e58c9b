package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeCleanupFanOut      = "cleanup:fan_out"
	TypeCleanupEnsureDaily = "cleanup:ensure_daily"
)

// EnsureDailyPayload names the tenant whose daily cleanup should run.
type EnsureDailyPayload struct {
	TenantID string `json:"tenantId"`
}

func NewCleanupFanOutTask() *asynq.Task {
	return asynq.NewTask(TypeCleanupFanOut, nil, asynq.MaxRetry(1), asynq.Timeout(5*time.Minute))
}

func NewEnsureDailyTask(tenantID string) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(EnsureDailyPayload{TenantID: tenantID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeCleanupEnsureDaily, b)
	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(10 * time.Minute),
		// Duplicate fan-outs within the window collapse into one task.
		asynq.Unique(30 * time.Minute),
	}
	return task, opts, nil
}

func ParseEnsureDailyPayload(task *asynq.Task) (EnsureDailyPayload, error) {
	var p EnsureDailyPayload
	err := json.Unmarshal(task.Payload(), &p)
	return p, err
}
