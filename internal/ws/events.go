package ws

import (
	"encoding/json"
	"time"
)

// Event types published while crawls run.
const (
	EventCrawlStarted  = "crawl.started"
	EventCrawlProgress = "crawl.progress"
	EventCrawlFinished = "crawl.finished"
	EventCrawlFailed   = "crawl.failed"
	EventRunSaved      = "run.saved"
)

// Event is the structured message sent to WebSocket clients.
type Event struct {
	Type  string          `json:"type"`
	ID    uint64          `json:"id"`
	RunID string          `json:"run_id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Time  time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client to filter by run and request replay.
type SubscribeMsg struct {
	Type        string `json:"type"`
	RunID       string `json:"run_id,omitempty"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client to do a full refresh (requested events too old).
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
