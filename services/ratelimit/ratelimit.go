// Package ratelimit implements a fixed-window request counter keyed by a
// hashed composite key such as "ip:1.2.3.4" or "booking:site:id".
package ratelimit

import (
	"context"
	"time"

	"salonbook/models"
	"salonbook/utils"
)

// Limiter decides whether one more request for key fits in the window.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (models.RateLimitDecision, error)
}

// step applies one request to a counter. It reports whether the counter
// changed and must be written back.
func step(c *models.RateLimitCounter, nowMs int64, limit int, window time.Duration) (models.RateLimitDecision, bool) {
	windowMs := window.Milliseconds()
	elapsed := nowMs - c.WindowStart
	if c.Count == 0 || elapsed > windowMs || elapsed < 0 {
		c.Count = 1
		c.WindowStart = nowMs
		return models.RateLimitDecision{Allowed: true}, true
	}
	if c.Count >= int64(limit) {
		retry := windowMs - elapsed
		if retry < 1 {
			retry = 1
		}
		return models.RateLimitDecision{Allowed: false, RetryAfterMs: retry}, false
	}
	c.Count++
	return models.RateLimitDecision{Allowed: true}, true
}

func hashKey(key string) string {
	return utils.HashKey(key)
}
