package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"salonbook/models"
	"salonbook/utils"

	"github.com/go-redis/redis/v8"
)

const (
	redisKeyPrefix = "ratelimit:"
	maxTxRetries   = 10
)

// RedisLimiter keeps counters in a Redis hash and increments them with
// WATCH/MULTI so concurrent callers never lose an update.
type RedisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

func (l *RedisLimiter) WithClock(now func() time.Time) *RedisLimiter {
	l.now = now
	return l
}

func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (models.RateLimitDecision, error) {
	if limit <= 0 || window <= 0 {
		return models.RateLimitDecision{}, utils.NewValidationError("invalid_rate_limit", "limit and window must be positive")
	}
	redisKey := redisKeyPrefix + hashKey(key)

	var decision models.RateLimitDecision
	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, redisKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		c := models.RateLimitCounter{Key: redisKey}
		c.Count, _ = strconv.ParseInt(fields["count"], 10, 64)
		c.WindowStart, _ = strconv.ParseInt(fields["windowStart"], 10, 64)

		var write bool
		decision, write = step(&c, l.now().UnixMilli(), limit, window)
		if !write {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, redisKey, "count", c.Count, "windowStart", c.WindowStart)
			pipe.PExpire(ctx, redisKey, 2*window)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := l.client.Watch(ctx, txf, redisKey)
		if err == nil {
			return decision, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return models.RateLimitDecision{}, utils.NewStorageError("rate_limit_unavailable", err)
	}
	return models.RateLimitDecision{}, utils.NewStorageError("rate_limit_unavailable", errors.New("too much contention on rate limit key"))
}
