package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/friendgraph/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		burst int
		ips   []string
		want  []int
	}{
		{
			name: "within limit", rate: 10, burst: 5,
			ips:  []string{"1.2.3.4"},
			want: []int{http.StatusOK},
		},
		{
			name: "burst exhausted", rate: 1, burst: 2,
			ips:  []string{"1.2.3.4", "1.2.3.4", "1.2.3.4"},
			want: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name: "independent clients", rate: 1, burst: 1,
			ips:  []string{"1.1.1.1", "2.2.2.2", "1.1.1.1"},
			want: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name: "fast refill", rate: 1_000_000, burst: 2,
			ips:  []string{"5.5.5.5", "5.5.5.5", "5.5.5.5"},
			want: []int{http.StatusOK, http.StatusOK, http.StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			rl := middleware.NewRateLimiter(ctx, tt.rate, tt.burst)

			r := gin.New()
			r.Use(rl.Handler())
			r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			for i, ip := range tt.ips {
				w := httptest.NewRecorder()
				req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
				req.RemoteAddr = ip + ":1234"
				r.ServeHTTP(w, req)

				if w.Code != tt.want[i] {
					t.Fatalf("request %d from %s: got %d, want %d", i, ip, w.Code, tt.want[i])
				}
			}
		})
	}
}
