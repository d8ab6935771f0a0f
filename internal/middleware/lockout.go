package middleware

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	lockoutMaxAttempts = 5
	lockoutWindow      = 15 * time.Minute
	lockoutDuration    = 5 * time.Minute
	lockoutCleanup     = 60 * time.Second
	lockoutMaxRecords  = 10000
)

type failureRecord struct {
	attempts  int
	firstFail time.Time
	lockedAt  time.Time
}

// LockoutGuard tracks authentication failures per client IP and blocks
// clients that exceed the failure threshold within the tracking window.
type LockoutGuard struct {
	mu      sync.Mutex
	records map[string]*failureRecord
	log     *logrus.Logger
}

// NewLockoutGuard creates a guard and starts a background cleanup goroutine
// that stops when ctx is cancelled.
func NewLockoutGuard(ctx context.Context, log *logrus.Logger) *LockoutGuard {
	g := &LockoutGuard{
		records: make(map[string]*failureRecord),
		log:     log,
	}
	go g.cleanupLoop(ctx)

	return g
}

// IsBlocked reports whether client is currently locked out.
func (g *LockoutGuard) IsBlocked(client string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[client]
	if !ok {
		return false
	}

	return !rec.lockedAt.IsZero() && time.Since(rec.lockedAt) < lockoutDuration
}

// RecordFailure records a failed authentication attempt for client.
func (g *LockoutGuard) RecordFailure(client string) {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	rec, ok := g.records[client]
	if !ok || now.Sub(rec.firstFail) > lockoutWindow {
		g.records[client] = &failureRecord{attempts: 1, firstFail: now}
		return
	}

	rec.attempts++
	if rec.attempts >= lockoutMaxAttempts && rec.lockedAt.IsZero() {
		rec.lockedAt = now
		g.log.WithField("client_ip", client).Warn("client locked out after repeated auth failures")
	}
}

// Reset clears failure tracking for client (call on successful auth).
func (g *LockoutGuard) Reset(client string) {
	g.mu.Lock()
	delete(g.records, client)
	g.mu.Unlock()
}

func (g *LockoutGuard) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(lockoutCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.sweep(now)
		}
	}
}

// sweep drops expired records and trims the table to lockoutMaxRecords,
// oldest first failure first.
func (g *LockoutGuard) sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for k, rec := range g.records {
		expiredLock := !rec.lockedAt.IsZero() && now.Sub(rec.lockedAt) >= lockoutDuration
		if expiredLock || now.Sub(rec.firstFail) >= lockoutWindow {
			delete(g.records, k)
		}
	}

	excess := len(g.records) - lockoutMaxRecords
	if excess <= 0 {
		return
	}

	keys := make([]string, 0, len(g.records))
	for k := range g.records {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, func(a, b string) int {
		return g.records[a].firstFail.Compare(g.records[b].firstFail)
	})

	for _, k := range keys[:excess] {
		delete(g.records, k)
	}
}

// LockoutMiddleware rejects requests from locked-out clients.
func LockoutMiddleware(guard *LockoutGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if guard.IsBlocked(c.ClientIP()) {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed authentication attempts")
			return
		}

		c.Next()
	}
}
