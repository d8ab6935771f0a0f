package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/dbpool"
)

// RunsChannel is the LISTEN/NOTIFY channel the store signals after a run is saved.
const RunsChannel = "fg_runs"

const (
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffMultiplier = 2
	readDeadline      = 2 * time.Minute
)

// Publisher delivers events to connected clients.
type Publisher interface {
	PublishRaw(eventType, runID string, data json.RawMessage)
}

// RunSavedPayload is the NOTIFY payload sent on RunsChannel.
type RunSavedPayload struct {
	RunID     string `json:"run_id"`
	Seed      string `json:"seed"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
	Halt      string `json:"halt"`
}

// NotifyBridge listens on RunsChannel and republishes every saved run as a
// "run.saved" event, so clients of any instance see runs finished elsewhere.
type NotifyBridge struct {
	log       *logrus.Logger
	pool      *dbpool.Pool
	publisher Publisher
	eventType string
}

// NewNotifyBridge creates a NotifyBridge publishing eventType events.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, publisher Publisher, eventType string) *NotifyBridge {
	return &NotifyBridge{log: log, pool: pool, publisher: publisher, eventType: eventType}
}

// Start checks connectivity and launches the listen loop in the background.
// Connection losses after that are retried with jittered backoff.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	go b.listen(ctx)

	return nil
}

func (b *NotifyBridge) listen(ctx context.Context) {
	backoff := initialBackoff

	for {
		err := b.subscribeAndForward(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		b.log.WithError(err).WithField("retry_in", backoff).
			Warn("notify bridge connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}
}

func (b *NotifyBridge) subscribeAndForward(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{RunsChannel}.Sanitize()); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	b.log.WithField("channel", RunsChannel).Info("notify bridge listening")

	for {
		// Periodic deadline so a silent connection still re-checks ctx.
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("waiting for notification: %w", err)
		}

		b.handleNotification(n)
	}
}

func (b *NotifyBridge) handleNotification(n *pgconn.Notification) {
	var payload RunSavedPayload
	if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil || payload.RunID == "" {
		b.log.WithField("pid", n.PID).Warn("dropping notification without run_id")
		return
	}

	b.log.WithFields(logrus.Fields{
		"run_id": payload.RunID,
		"pid":    n.PID,
	}).Debug("run notification received")

	b.publisher.PublishRaw(b.eventType, payload.RunID, json.RawMessage(n.Payload))
}

// nextBackoff doubles the backoff with ±25% jitter, capped at maxBackoff.
func nextBackoff(current time.Duration) time.Duration {
	next := min(current*backoffMultiplier, maxBackoff)
	jitter := float64(next) * (0.75 + rand.Float64()*0.5) //nolint:gosec // jitter doesn't need crypto rand.

	return time.Duration(jitter)
}
