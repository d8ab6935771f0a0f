package middleware

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestGuard(t *testing.T) *LockoutGuard {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return NewLockoutGuard(ctx, log)
}

func TestLockout_ResetClearsCount(t *testing.T) {
	g := newTestGuard(t)

	g.RecordFailure("1.1.1.1")
	g.RecordFailure("1.1.1.1")
	g.Reset("1.1.1.1")

	if g.IsBlocked("1.1.1.1") {
		t.Fatal("client should not be blocked after reset")
	}
}

func TestLockout_BlocksAtMax(t *testing.T) {
	g := newTestGuard(t)

	for range lockoutMaxAttempts - 1 {
		g.RecordFailure("2.2.2.2")
	}
	if g.IsBlocked("2.2.2.2") {
		t.Fatal("client blocked before max failures")
	}

	g.RecordFailure("2.2.2.2")
	if !g.IsBlocked("2.2.2.2") {
		t.Fatal("client should be blocked after max failures")
	}
}

func TestLockout_SweepExpires(t *testing.T) {
	g := newTestGuard(t)

	g.RecordFailure("3.3.3.3")
	g.sweep(time.Now().Add(lockoutWindow + time.Second))

	g.mu.Lock()
	n := len(g.records)
	g.mu.Unlock()

	if n != 0 {
		t.Fatalf("records = %d, want 0 after window", n)
	}
}

func TestLockout_SweepTrimsOldest(t *testing.T) {
	g := newTestGuard(t)
	base := time.Now()

	g.mu.Lock()
	for i := range lockoutMaxRecords + 3 {
		g.records[fmt.Sprintf("c%d", i)] = &failureRecord{attempts: 1, firstFail: base.Add(time.Duration(i) * time.Millisecond)}
	}
	g.mu.Unlock()

	g.sweep(base.Add(time.Second))

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.records) != lockoutMaxRecords {
		t.Fatalf("records = %d, want %d", len(g.records), lockoutMaxRecords)
	}
	for i := range 3 {
		if _, ok := g.records[fmt.Sprintf("c%d", i)]; ok {
			t.Errorf("c%d should have been evicted", i)
		}
	}
}
