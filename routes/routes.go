package routes

import (
	"time"

	"salonbook/handlers"
	"salonbook/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterHealthRoute registers the health-check and metrics endpoints.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterCleanupRoutes sets up the operator cleanup triggers.
func RegisterCleanupRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	cleanupGroup := r.Group("/cleanup")
	{
		cleanupGroup.Use(middleware.JWTAuthAdminMiddleware(hb.AdminJWTSecret))
		cleanupGroup.POST("/ensure-daily", hb.EnsureDailyCleanupHandler)
		cleanupGroup.POST("/run", hb.RunCleanupHandler)
	}
}

// RegisterWebhookRoutes sets up inbound messaging webhooks.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/whatsapp", middleware.TwilioAuthMiddleware(hb.TwilioAuthToken, hb.PublicBaseURL), hb.WhatsAppWebhookHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterCleanupRoutes(r, hb)
	RegisterWebhookRoutes(r, hb)
}
