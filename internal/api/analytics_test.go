package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/friendgraph/internal/analytics"
	"github.com/persistorai/friendgraph/internal/api"
	"github.com/persistorai/friendgraph/internal/models"
)

func TestAnalyticsReport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    string
		err      error
		wantCode int
		check    func(t *testing.T, opts analytics.Options)
	}{
		{
			name: "defaults", wantCode: http.StatusOK,
			check: func(t *testing.T, opts analytics.Options) {
				if opts.Betweenness.Normalized || opts.Top != 0 {
					t.Errorf("opts = %+v, want zero options", opts)
				}
			},
		},
		{
			name: "normalized top", query: "?normalized=true&top=3&damping=0.9", wantCode: http.StatusOK,
			check: func(t *testing.T, opts analytics.Options) {
				if !opts.Betweenness.Normalized || opts.Top != 3 || opts.PageRank.Damping != 0.9 {
					t.Errorf("opts = %+v", opts)
				}
			},
		},
		{name: "bad top", query: "?top=x", wantCode: http.StatusBadRequest},
		{name: "damping out of range", query: "?damping=1.5", wantCode: http.StatusBadRequest},
		{name: "unknown run", err: models.ErrRunNotFound, wantCode: http.StatusNotFound},
		{name: "empty graph", err: models.ErrEmptyGraph, wantCode: http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockAnalyticsService{
				reportFn: func(_ context.Context, _ string, opts analytics.Options) (*models.Report, error) {
					if tc.check != nil {
						tc.check(t, opts)
					}
					if tc.err != nil {
						return nil, tc.err
					}
					return &models.Report{NodeCount: 1}, nil
				},
			}

			r := gin.New()
			r.GET("/crawls/:id/analytics", api.NewAnalyticsHandler(svc, testLogger()).Report)

			w := doRequest(r, http.MethodGet, "/crawls/r1/analytics"+tc.query, "")
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, w.Code, w.Body.String())
			}
		})
	}
}
