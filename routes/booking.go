package routes

import (
	"time"

	"salonbook/handlers"
	"salonbook/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers the public per-site booking endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	sites := r.Group("/api/sites/:siteId")
	{
		sites.GET("/availability", hb.GetAvailabilityHandler) // Slots for one date
		sites.POST("/bookings",
			middleware.SharedRateLimit(hb.Limiter, "booking", hb.BookingsPerMin, time.Minute),
			hb.CreateBookingHandler) // Commit anchor + follow-ups
	}
}
