package usecase

import (
	"sync"
	"time"
)

// Flood guard defaults: ten events per sliding minute.
const (
	FloodWindow    = 60 * time.Second
	FloodThreshold = 10
)

// FloodGuard is a per-sender sliding-window rate limiter. Once a sender
// fills the window the excess events are dropped; blocked events are not
// recorded, so the sender unblocks as old timestamps age out.
type FloodGuard struct {
	mu        sync.Mutex
	window    time.Duration
	threshold int
	hits      map[string][]time.Time
	now       func() time.Time
}

// NewFloodGuard creates a flood guard with the given window and threshold.
func NewFloodGuard(window time.Duration, threshold int) *FloodGuard {
	return &FloodGuard{
		window:    window,
		threshold: threshold,
		hits:      make(map[string][]time.Time),
		now:       time.Now,
	}
}

// Blocked records one inbound event for jid and reports whether it must be
// dropped.
func (g *FloodGuard) Blocked(jid string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	recent := g.hits[jid][:0]
	for _, t := range g.hits[jid] {
		if now.Sub(t) < g.window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= g.threshold {
		g.hits[jid] = recent
		return true
	}
	g.hits[jid] = append(recent, now)
	return false
}
