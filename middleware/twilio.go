package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	twilio "github.com/twilio/twilio-go/client"
	"go.uber.org/zap"
)

const twilioSignatureHeader = "X-Twilio-Signature"

// TwilioAuthMiddleware rejects webhook calls whose signature does not match.
// An empty authToken disables the check. publicBaseURL, when set, replaces
// the scheme and host the request arrived on.
func TwilioAuthMiddleware(authToken, publicBaseURL string) gin.HandlerFunc {
	validator := twilio.NewRequestValidator(authToken)
	return func(c *gin.Context) {
		if authToken == "" {
			c.Next()
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form body"})
			return
		}

		params := make(map[string]string, len(c.Request.PostForm))
		for k := range c.Request.PostForm {
			params[k] = c.Request.PostForm.Get(k)
		}
		got := c.GetHeader(twilioSignatureHeader)
		if got == "" || !validator.Validate(requestURL(c, publicBaseURL), params, got) {
			zap.L().Warn("Rejected webhook with bad signature", zap.String("ip", getClientIP(c)))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}

func requestURL(c *gin.Context, publicBaseURL string) string {
	if publicBaseURL != "" {
		return strings.TrimRight(publicBaseURL, "/") + c.Request.URL.RequestURI()
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}
