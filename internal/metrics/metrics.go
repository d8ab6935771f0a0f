// Package metrics defines Prometheus metrics for friendgraph.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "friendgraph_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendgraph_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendgraph_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	CrawlExpansions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "friendgraph_crawl_expansions_total",
			Help: "Nodes whose friend lists were fetched and applied",
		},
	)

	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendgraph_fetch_failures_total",
			Help: "Friend source failures by kind",
		},
		[]string{"kind"},
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "friendgraph_fetch_duration_seconds",
			Help:    "Friend list fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	NodesDiscovered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "friendgraph_nodes_discovered_total",
			Help: "Unique nodes added across all crawls",
		},
	)

	CacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendgraph_source_cache_total",
			Help: "Friend source cache lookups by result",
		},
		[]string{"result"},
	)

	AnalyticsDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "friendgraph_analytics_duration_seconds",
			Help:    "Graph analytics computation time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"metric"},
	)

	CrawlRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friendgraph_crawl_runs_total",
			Help: "Finished crawl runs by halt reason or failure",
		},
		[]string{"outcome"},
	)

	CrawlQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "friendgraph_crawl_queue_depth",
			Help: "Asynchronous crawls waiting to run",
		},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "friendgraph_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		CrawlExpansions, FetchFailures, FetchDuration, NodesDiscovered,
		CacheResults, AnalyticsDuration, CrawlRuns, CrawlQueueDepth, WSConnections,
	)
}
