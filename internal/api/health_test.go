package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/friendgraph/internal/api"
)

type staticJobs map[string]int

func (s staticJobs) JobCounts() map[string]int { return s }

func TestLiveness_ReturnsOK(t *testing.T) {
	t.Parallel()

	h := api.NewHealthHandler(nil, nil, staticJobs{"running": 1}, testLogger(), "test-v1", nil)

	r := gin.New()
	r.GET("/health", h.Liveness)

	w := doRequest(r, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", body["status"])
	}
	if body["version"] != "test-v1" {
		t.Errorf("expected version 'test-v1', got %v", body["version"])
	}
	if body["database"] != "not_configured" {
		t.Errorf("expected database 'not_configured', got %v", body["database"])
	}
	if jobs, _ := body["jobs"].(map[string]any); jobs["running"] != float64(1) {
		t.Errorf("jobs = %v", body["jobs"])
	}
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		checks   map[string]api.ReadinessCheck
		wantCode int
		want     map[string]string
	}{
		{name: "no probes", wantCode: http.StatusOK, want: map[string]string{}},
		{
			name:     "healthy cache",
			checks:   map[string]api.ReadinessCheck{"cache": func(context.Context) error { return nil }},
			wantCode: http.StatusOK,
			want:     map[string]string{"cache": "ok"},
		},
		{
			name: "failing cache",
			checks: map[string]api.ReadinessCheck{
				"cache":  func(context.Context) error { return errors.New("connection refused") },
				"source": func(context.Context) error { return nil },
			},
			wantCode: http.StatusServiceUnavailable,
			want:     map[string]string{"cache": "error", "source": "ok"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := api.NewHealthHandler(nil, nil, nil, testLogger(), "v", tc.checks)
			r := gin.New()
			r.GET("/ready", h.Readiness)

			w := doRequest(r, http.MethodGet, "/ready", "")
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, w.Code)
			}

			var body struct {
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(body.Checks) != len(tc.want) {
				t.Fatalf("checks = %v, want %v", body.Checks, tc.want)
			}
			for k, v := range tc.want {
				if body.Checks[k] != v {
					t.Errorf("check %s = %q, want %q", k, body.Checks[k], v)
				}
			}
		})
	}
}
