package models

import "time"

// Halt reasons recorded for a finished crawl.
const (
	HaltBudget    = "budget"
	HaltFrontier  = "frontier"
	HaltCancelled = "cancelled"
)

// Run statuses. Only StatusDone runs are persisted; the others describe
// asynchronous crawls that are still in flight or never produced a snapshot.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// CrawlRequest is the payload for starting a crawl.
type CrawlRequest struct {
	Seed       ID     `json:"seed"`
	MaxNodes   int    `json:"max_nodes"`
	MaxFriends int    `json:"max_friends,omitempty"`
	Workers    int    `json:"workers,omitempty"`
	Order      string `json:"order,omitempty"`
	RandSeed   uint64 `json:"rand_seed,omitempty"`
}

// Validate checks required fields and bounds on CrawlRequest.
func (r *CrawlRequest) Validate() error {
	if r.Seed == "" {
		return ErrMissingSeed
	}

	if len(r.Seed) > 255 {
		return ErrFieldTooLong("seed", 255)
	}

	if r.MaxNodes <= 0 {
		return ErrInvalidBudget
	}

	if r.MaxFriends < 0 {
		return errNegative("max_friends")
	}

	if r.Workers < 0 || r.Workers > 16 {
		return errWorkers
	}

	switch r.Order {
	case "", "dfs", "bfs":
	default:
		return errOrder
	}

	return nil
}

// CrawlRun summarises one crawl.
type CrawlRun struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Seed       ID        `json:"seed"`
	MaxNodes   int       `json:"max_nodes"`
	MaxFriends int       `json:"max_friends"`
	NodeCount  int       `json:"node_count"`
	EdgeCount  int       `json:"edge_count"`
	Expanded   int       `json:"expanded"`
	Skipped    int       `json:"skipped"`
	Pending    int       `json:"pending"`
	Halt       string    `json:"halt"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Scores maps node ids to a centrality value.
type Scores map[ID]float64

// RankedNode pairs a node id with its score and 1-based rank.
type RankedNode struct {
	ID    ID      `json:"id"`
	Name  string  `json:"name,omitempty"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// Report bundles every structural metric computed for one graph.
type Report struct {
	NodeCount          int          `json:"node_count"`
	EdgeCount          int          `json:"edge_count"`
	Degrees            map[ID]int   `json:"degrees"`
	DegreeSequence     []int        `json:"degree_sequence"`
	DegreeHistogram    map[int]int  `json:"degree_histogram"`
	PageRank           Scores       `json:"pagerank"`
	PageRankIterations int          `json:"pagerank_iterations"`
	PageRankConverged  bool         `json:"pagerank_converged"`
	Betweenness        Scores       `json:"betweenness"`
	TopPageRank        []RankedNode `json:"top_pagerank,omitempty"`
	TopBetweenness     []RankedNode `json:"top_betweenness,omitempty"`
}
