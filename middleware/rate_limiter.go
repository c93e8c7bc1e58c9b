package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"salonbook/services/metrics"
	"salonbook/services/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiterStore holds a map of IP addresses to their rate limiters.
type rateLimiterStore struct {
	limiters map[string]*rate.Limiter
	perMin   int
	mu       sync.Mutex
}

func newRateLimiterStore(perMin int) *rateLimiterStore {
	if perMin <= 0 {
		perMin = 200
	}
	return &rateLimiterStore{limiters: make(map[string]*rate.Limiter), perMin: perMin}
}

// getLimiter returns the rate limiter for a given IP, creating one if it doesn't exist.
func (s *rateLimiterStore) getLimiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMin)), s.perMin)
		s.limiters[ip] = limiter
	}
	return limiter
}

// RateLimitMiddleware is a coarse in-process throttle of perMin requests per
// minute per client IP.
func RateLimitMiddleware(perMin int) gin.HandlerFunc {
	store := newRateLimiterStore(perMin)
	return func(c *gin.Context) {
		ip := getClientIP(c)
		if !store.getLimiter(ip).Allow() {
			zap.L().Warn("Rate limit exceeded", zap.String("ip", ip))
			metrics.IncRateLimitDenied("global")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}

// SharedRateLimit applies a limiter shared by every instance of the service,
// keyed by scope and client IP. Storage failures let the request through.
func SharedRateLimit(limiter ratelimit.Limiter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := getClientIP(c)
		decision, err := limiter.Check(c.Request.Context(), scope+":ip:"+ip, limit, window)
		if err != nil {
			zap.L().Error("Rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if !decision.Allowed {
			metrics.IncRateLimitDenied(scope)
			c.Header("Retry-After", strconv.FormatInt((decision.RetryAfterMs+999)/1000, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":        "Rate limit exceeded. Try again later.",
				"retryAfterMs": decision.RetryAfterMs,
			})
			return
		}
		c.Next()
	}
}
