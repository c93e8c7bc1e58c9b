package handlers

import (
	"net/http"
	"time"

	"salonbook/services/confirmation"
	"salonbook/services/metrics"
	"salonbook/services/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

const (
	replyLimit  = 5
	replyWindow = time.Minute
)

// WhatsAppHandler turns inbound WhatsApp replies into booking confirmations.
type WhatsAppHandler struct {
	Confirmations confirmation.ConfirmationService
	Limiter       ratelimit.Limiter
}

func NewWhatsAppHandler(cs confirmation.ConfirmationService, limiter ratelimit.Limiter) *WhatsAppHandler {
	return &WhatsAppHandler{Confirmations: cs, Limiter: limiter}
}

// WebhookHandler answers with a TwiML message. Failures still answer 200 so
// the provider does not retry a reply that may already have been applied.
func (h *WhatsAppHandler) WebhookHandler(c *gin.Context) {
	logger := getLogger(c)
	from := c.PostForm("From")
	body := c.PostForm("Body")
	if from == "" {
		reply(c, "")
		return
	}

	if h.Limiter != nil {
		decision, err := h.Limiter.Check(c.Request.Context(), "whatsapp:from:"+from, replyLimit, replyWindow)
		if err != nil {
			logger.Error("Rate limiter unavailable for webhook", zap.Error(err))
		} else if !decision.Allowed {
			metrics.IncRateLimitDenied("whatsapp")
			logger.Warn("Dropping webhook reply over rate limit", zap.Int64("retryAfterMs", decision.RetryAfterMs))
			reply(c, "")
			return
		}
	}

	result, err := h.Confirmations.HandleReply(c.Request.Context(), from, body)
	if err != nil {
		logger.Error("Failed to handle confirmation reply", zap.Error(err))
		reply(c, "Something went wrong. Please try again in a few minutes.")
		return
	}

	fields := []zap.Field{zap.String("outcome", string(result.Outcome))}
	if result.Booking != nil {
		fields = append(fields, zap.String("tenantID", result.Booking.TenantID), zap.String("bookingID", result.Booking.ID))
	}
	logger.Info("Confirmation reply handled", fields...)
	reply(c, result.Message)
}

// reply writes a TwiML messaging response; an empty message sends no reply.
func reply(c *gin.Context, message string) {
	var verbs []twiml.Element
	if message != "" {
		verbs = append(verbs, &twiml.MessagingMessage{Body: message})
	}
	doc, err := twiml.Messages(verbs)
	if err != nil {
		getLogger(c).Error("Failed to render TwiML", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(doc))
}
