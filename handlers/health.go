package handlers

import (
	"net/http"
	"time"

	"salonbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// NewHealthHandler serves the health monitor's last snapshot, probing the
// backends itself only when that snapshot is missing or older than maxAge.
func NewHealthHandler(store utils.Pinger, redisClient *redis.Client, maxAge time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := utils.GetHealthStatus()
		if status.CheckedAt.IsZero() || time.Since(status.CheckedAt) > maxAge {
			status = utils.CheckHealth(c.Request.Context(), store, redisClient)
		}
		code := http.StatusOK
		state := "ok"
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
			state = "degraded"
		}
		c.JSON(code, gin.H{"status": state, "backends": status})
	}
}
