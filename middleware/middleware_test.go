package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"salonbook/models"
	"salonbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func TestJWTAuthAdminMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/admin", JWTAuthAdminMiddleware("s3cret"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("adminSubject"))
	})

	valid, err := utils.GenerateAdminToken("s3cret", "ops@salon", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateAdminToken("s3cret", "ops@salon", -time.Minute)
	require.NoError(t, err)
	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"no admin role", "Bearer " + noRole, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "ops@salon", w.Body.String())
			}
		})
	}
}

func sign(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := fullURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestTwilioAuthMiddleware(t *testing.T) {
	const token = "auth-token"
	r := gin.New()
	r.POST("/hook", TwilioAuthMiddleware(token, "https://example.com/"), func(c *gin.Context) {
		c.String(http.StatusOK, c.PostForm("Body"))
	})

	form := url.Values{"From": {"whatsapp:+972501234567"}, "Body": {"YES"}, "To": {"whatsapp:+14155238886"}}
	send := func(signature string, f url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/hook?x=1", strings.NewReader(f.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Twilio-Signature", signature)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	good := sign(token, "https://example.com/hook?x=1", form)
	w := send(good, form)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "YES", w.Body.String())

	tampered := url.Values{"From": form["From"], "Body": {"NO"}, "To": form["To"]}
	assert.Equal(t, http.StatusForbidden, send(good, tampered).Code)
	assert.Equal(t, http.StatusForbidden, send(sign("other", "https://example.com/hook?x=1", form), form).Code)
}

func TestTwilioAuthMiddleware_BodyOrderDoesNotMatter(t *testing.T) {
	const token = "tok"
	r := gin.New()
	r.POST("/hook", TwilioAuthMiddleware(token, "https://example.com"), okHandler)

	form := url.Values{"From": {"whatsapp:+972501234567"}, "Body": {"YES"}}
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("From=whatsapp%3A%2B972501234567&Body=YES"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sign(token, "https://example.com/hook", form))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTwilioAuthMiddleware_DisabledWithoutToken(t *testing.T) {
	r := gin.New()
	r.POST("/hook", TwilioAuthMiddleware("", ""), okHandler)
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("Body=YES"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_PerIP(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimitMiddleware(2), okHandler)

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, call("203.0.113.5"))
	assert.Equal(t, http.StatusOK, call("203.0.113.5"))
	assert.Equal(t, http.StatusTooManyRequests, call("203.0.113.5"))
	assert.Equal(t, http.StatusOK, call("203.0.113.6"))
}

type stubLimiter struct {
	decision models.RateLimitDecision
	err      error
	keys     []string
}

func (s *stubLimiter) Check(_ context.Context, key string, _ int, _ time.Duration) (models.RateLimitDecision, error) {
	s.keys = append(s.keys, key)
	return s.decision, s.err
}

func TestSharedRateLimit(t *testing.T) {
	run := func(l *stubLimiter) *httptest.ResponseRecorder {
		r := gin.New()
		r.POST("/", SharedRateLimit(l, "booking", 5, time.Minute), okHandler)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Real-IP", "198.51.100.7")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	allowed := &stubLimiter{decision: models.RateLimitDecision{Allowed: true}}
	assert.Equal(t, http.StatusOK, run(allowed).Code)
	assert.Equal(t, []string{"booking:ip:198.51.100.7"}, allowed.keys)

	denied := run(&stubLimiter{decision: models.RateLimitDecision{RetryAfterMs: 1500}})
	assert.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Equal(t, "2", denied.Header().Get("Retry-After"))

	// A broken limiter does not take the endpoint down.
	assert.Equal(t, http.StatusOK, run(&stubLimiter{err: errors.New("store down")}).Code)
}

func TestGetClientIP(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", getClientIP(c))

	c.Request.Header.Set("X-Real-IP", " 192.0.2.11 ")
	assert.Equal(t, "192.0.2.11", getClientIP(c))

	c.Request.Header.Set("X-Forwarded-For", "192.0.2.12, 10.0.0.1")
	assert.Equal(t, "192.0.2.12", getClientIP(c))

	c.Request.Header.Set("X-Forwarded-For", "unknown, 192.0.2.13")
	assert.Equal(t, "192.0.2.13", getClientIP(c))
}
