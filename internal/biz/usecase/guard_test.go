package usecase

import (
	"testing"
	"time"
)

func TestFloodGuard_BlocksAfterThreshold(t *testing.T) {
	g := NewFloodGuard(time.Minute, 10)
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	for i := 0; i < 10; i++ {
		if g.Blocked("jid-a") {
			t.Fatalf("event %d should pass", i+1)
		}
	}
	if !g.Blocked("jid-a") {
		t.Error("11th event inside the window should be blocked")
	}
}

func TestFloodGuard_BlockedEventsNotRecorded(t *testing.T) {
	g := NewFloodGuard(time.Minute, 10)
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	now := base
	g.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		g.Blocked("jid-a")
	}
	// Hammering while blocked must not extend the block.
	for i := 0; i < 50; i++ {
		now = base.Add(time.Duration(i) * 500 * time.Millisecond)
		if !g.Blocked("jid-a") {
			t.Fatal("should stay blocked while window is full")
		}
	}

	now = base.Add(61 * time.Second)
	if g.Blocked("jid-a") {
		t.Error("sender should unblock once the original events age out")
	}
}

func TestFloodGuard_PerSenderIsolation(t *testing.T) {
	g := NewFloodGuard(time.Minute, 10)
	base := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	for i := 0; i < 10; i++ {
		g.Blocked("noisy")
	}
	if !g.Blocked("noisy") {
		t.Fatal("noisy sender should be blocked")
	}
	if g.Blocked("quiet") {
		t.Error("other senders must be unaffected")
	}
}
