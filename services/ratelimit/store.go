package ratelimit

import (
	"context"
	"time"

	"salonbook/database/repository"
	"salonbook/models"
	"salonbook/utils"
)

// StoreLimiter keeps counters in the document store and increments them in
// a store transaction.
type StoreLimiter struct {
	counters repository.CounterRepository
	now      func() time.Time
}

func NewStoreLimiter(counters repository.CounterRepository) *StoreLimiter {
	return &StoreLimiter{counters: counters, now: time.Now}
}

// WithClock replaces the time source.
func (l *StoreLimiter) WithClock(now func() time.Time) *StoreLimiter {
	l.now = now
	return l
}

func (l *StoreLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (models.RateLimitDecision, error) {
	if limit <= 0 || window <= 0 {
		return models.RateLimitDecision{}, utils.NewValidationError("invalid_rate_limit", "limit and window must be positive")
	}
	var decision models.RateLimitDecision
	err := l.counters.Update(ctx, hashKey(key), func(c *models.RateLimitCounter) bool {
		var write bool
		decision, write = step(c, l.now().UnixMilli(), limit, window)
		return write
	})
	if err != nil {
		return models.RateLimitDecision{}, utils.NewStorageError("rate_limit_unavailable", err)
	}
	return decision, nil
}
