package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"petii/services"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/who", func(c *gin.Context) {
		id, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusOK, gin.H{"user": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": id})
	})
	return r
}

func serve(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	tokens := services.NewTokenIssuer("secret", time.Hour)
	token, err := tokens.Issue(42)
	require.NoError(t, err)
	r := newEngine(AuthMiddleware(tokens))

	tests := []struct {
		name   string
		path   string
		auth   string
		status int
	}{
		{"bearer", "/who", "Bearer " + token, http.StatusOK},
		{"raw header", "/who", token, http.StatusOK},
		{"query is not a header", "/who?token=" + token, "", http.StatusUnauthorized},
		{"missing", "/who", "", http.StatusUnauthorized},
		{"garbage", "/who", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, tt.path, tt.auth)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user":42}`, w.Body.String())
			}
		})
	}

	assert.JSONEq(t, `{"error":"No token, authorization denied"}`, serve(r, "/who", "").Body.String())
	assert.JSONEq(t, `{"error":"Token is not valid"}`, serve(r, "/who", "Bearer nope").Body.String())
}

func TestOptionalAuthMiddleware(t *testing.T) {
	tokens := services.NewTokenIssuer("secret", time.Hour)
	token, err := tokens.Issue(7)
	require.NoError(t, err)
	r := newEngine(OptionalAuthMiddleware(tokens))

	assert.JSONEq(t, `{"user":7}`, serve(r, "/who", "Bearer "+token).Body.String())
	assert.JSONEq(t, `{"user":null}`, serve(r, "/who", "").Body.String())
	assert.JSONEq(t, `{"user":null}`, serve(r, "/who?token="+token, "").Body.String())

	w := serve(r, "/who", "Bearer expired-or-forged")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())
}

func TestWSAuthMiddlewareAcceptsQueryToken(t *testing.T) {
	tokens := services.NewTokenIssuer("secret", time.Hour)
	token, err := tokens.Issue(9)
	require.NoError(t, err)
	r := newEngine(WSAuthMiddleware(tokens))

	assert.JSONEq(t, `{"user":9}`, serve(r, "/who?token="+token, "").Body.String())
	assert.JSONEq(t, `{"user":9}`, serve(r, "/who", "Bearer "+token).Body.String())
	assert.JSONEq(t, `{"user":null}`, serve(r, "/who?token=forged", "").Body.String())
}

func TestAccessLoggerMasksToken(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(AccessLogger(&buf))
	serve(r, "/who?token=secret-value&x=1", "")

	assert.NotContains(t, buf.String(), "secret-value")
	assert.Contains(t, buf.String(), "token=REDACTED")
	assert.Equal(t, "/ws", redactToken("/ws"))
	assert.Equal(t, "/ws?x=1", redactToken("/ws?x=1"))
}

func TestRateLimitMiddleware(t *testing.T) {
	l, err := NewRateLimiter(nil, 2, time.Minute)
	require.NoError(t, err)
	r := newEngine(RateLimitMiddleware(l, "test"))

	for i := 0; i < 2; i++ {
		w := serve(r, "/who", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}
	w := serve(r, "/who", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	assert.JSONEq(t, `{"error":"Too many requests from this IP, please try again later"}`, w.Body.String())
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("redis down")
}

func (brokenStore) Peek(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("redis down")
}

func (brokenStore) Reset(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("redis down")
}

func (brokenStore) Increment(context.Context, string, int64, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	l := limiter.New(brokenStore{}, limiter.Rate{Period: time.Minute, Limit: 1})
	r := newEngine(RateLimitMiddleware(l, "test"))
	for i := 0; i < 3; i++ {
		w := serve(r, "/who", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user":null}`, w.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := newEngine(SecurityHeaders())
	w := serve(r, "/who", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=31536000; includeSubdomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestPrometheusMiddlewarePassesThrough(t *testing.T) {
	r := newEngine(PrometheusMiddleware("test"))
	assert.Equal(t, http.StatusOK, serve(r, "/who", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, "/missing", "").Code)
}
