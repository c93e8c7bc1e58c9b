// File: salonbook/handlers/bundle.go
package handlers

import (
	"salonbook/services/ratelimit"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the endpoint handlers and what the routes need to
// guard them.
type HandlerBundle struct {
	Limiter         ratelimit.Limiter
	AdminJWTSecret  string
	TwilioAuthToken string
	PublicBaseURL   string
	BookingsPerMin  int

	// Health and metrics
	HealthHandler gin.HandlerFunc

	// Booking endpoints
	GetAvailabilityHandler gin.HandlerFunc
	CreateBookingHandler   gin.HandlerFunc

	// Cleanup endpoints
	EnsureDailyCleanupHandler gin.HandlerFunc
	RunCleanupHandler         gin.HandlerFunc

	// Webhooks
	WhatsAppWebhookHandler gin.HandlerFunc
}
