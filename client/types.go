package client

import "github.com/persistorai/friendgraph/internal/models"

// Request and response shapes shared with the server.
type (
	CrawlRequest = models.CrawlRequest
	CrawlRun     = models.CrawlRun
	Report       = models.Report
	NodeLink     = models.NodeLink
)

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status           string         `json:"status"`
	Version          string         `json:"version"`
	Database         string         `json:"database"`
	SchemaVersion    int            `json:"schema_version"`
	WebsocketClients int            `json:"websocket_clients"`
	Jobs             map[string]int `json:"jobs,omitempty"`
	UptimeSeconds    float64        `json:"uptime_seconds"`
}

// ReadyResponse is the response from the readiness endpoint. Checks maps each
// probe name to "ok" or "error".
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// GraphExport is a stored snapshot in node-link form.
type GraphExport struct {
	RunID         string `json:"run_id"`
	SchemaVersion int    `json:"schema_version"`
	models.NodeLink
}

// AnalyticsOptions are the query parameters of the analytics endpoint.
type AnalyticsOptions struct {
	Normalized bool
	// Top is the ranked list length; 0 keeps the server default.
	Top     int
	Damping float64
}
