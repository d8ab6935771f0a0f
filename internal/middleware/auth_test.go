package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/middleware"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		upgrade    bool
		query      string
		wantCode   int
	}{
		{name: "valid token", authHeader: "Bearer good-key", wantCode: http.StatusOK},
		{name: "missing header", wantCode: http.StatusUnauthorized},
		{name: "invalid token", authHeader: "Bearer bad-key", wantCode: http.StatusUnauthorized},
		{name: "no bearer prefix", authHeader: "good-key", wantCode: http.StatusUnauthorized},
		{name: "websocket query token", upgrade: true, query: "?token=good-key", wantCode: http.StatusOK},
		{name: "query token without upgrade", query: "?token=good-key", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.APIKeyAuth("good-key", quietLogger(), nil))
			r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test"+tt.query, http.NoBody)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("got %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestAPIKeyAuth_DisabledWithoutKey(t *testing.T) {
	r := gin.New()
	r.Use(middleware.APIKeyAuth("", quietLogger(), nil))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with auth disabled, got %d", w.Code)
	}
}

func TestAPIKeyAuth_RecordsFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	guard := middleware.NewLockoutGuard(ctx, quietLogger())

	r := gin.New()
	r.Use(middleware.LockoutMiddleware(guard))
	r.Use(middleware.APIKeyAuth("good-key", quietLogger(), guard))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(key string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
		req.RemoteAddr = "9.9.9.9:1000"
		req.Header.Set("Authorization", "Bearer "+key)
		r.ServeHTTP(w, req)
		return w.Code
	}

	for range 5 {
		if code := send("wrong"); code != http.StatusUnauthorized {
			t.Fatalf("bad key: got %d, want 401", code)
		}
	}

	if code := send("good-key"); code != http.StatusTooManyRequests {
		t.Fatalf("locked out client: got %d, want 429", code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"abc123", ""},
		{"", ""},
		{"Bearer ", ""},
		{"bearer abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			got := middleware.ExtractBearerToken(c)
			if got != tt.want {
				t.Errorf("ExtractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
