// Package api provides HTTP handlers for the friendgraph service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/db"
	"github.com/persistorai/friendgraph/internal/dbpool"
	"github.com/persistorai/friendgraph/internal/ws"
)

// JobCounter reports asynchronous crawl jobs by status.
type JobCounter interface {
	JobCounts() map[string]int
}

// ReadinessCheck probes one dependency. A nil error means healthy.
type ReadinessCheck func(ctx context.Context) error

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	pool      *dbpool.Pool
	hub       *ws.Hub
	jobs      JobCounter
	checks    map[string]ReadinessCheck
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. pool, hub and jobs may be nil.
// extra holds additional readiness probes keyed by the name they report under.
func NewHealthHandler(
	pool *dbpool.Pool, hub *ws.Hub, jobs JobCounter, log *logrus.Logger, version string, extra map[string]ReadinessCheck,
) *HealthHandler {
	checks := make(map[string]ReadinessCheck, len(extra)+1)
	for name, fn := range extra {
		checks[name] = fn
	}

	h := &HealthHandler{
		pool:      pool,
		hub:       hub,
		jobs:      jobs,
		checks:    checks,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}

	if pool != nil {
		checks["database"] = h.checkSchema
	}

	return h
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	Database      string         `json:"database"`
	SchemaVersion int            `json:"schema_version"`
	WSClients     int            `json:"websocket_clients"`
	Jobs          map[string]int `json:"jobs,omitempty"`
	UptimeSeconds float64        `json:"uptime_seconds"`
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      "connected",
		SchemaVersion: db.SchemaVersion(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	// Best-effort database ping (non-fatal for liveness).
	if h.pool != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.pool.HealthCheck(ctx); err != nil {
			resp.Database = "disconnected"
		}
	} else {
		resp.Database = "not_configured"
	}

	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}

	if h.jobs != nil {
		resp.Jobs = h.jobs.JobCounts()
	}

	c.JSON(http.StatusOK, resp)
}

// Readiness handles GET /api/v1/ready and runs every registered probe.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := readinessResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	statusCode := http.StatusOK

	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.log.WithError(err).WithField("check", name).Error("readiness check failed")
			resp.Checks[name] = "error"
			resp.Status = "not_ready"
			statusCode = http.StatusServiceUnavailable

			continue
		}

		resp.Checks[name] = "ok"
	}

	c.JSON(statusCode, resp)
}

// checkSchema verifies connectivity and that migrations have created crawl_runs.
func (h *HealthHandler) checkSchema(ctx context.Context) error {
	if err := h.pool.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database health: %w", err)
	}

	var present bool
	if err := h.pool.QueryRow(ctx, "SELECT to_regclass('crawl_runs') IS NOT NULL").Scan(&present); err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	if !present {
		return fmt.Errorf("schema check: crawl_runs table missing")
	}

	return nil
}
