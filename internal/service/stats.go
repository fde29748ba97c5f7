package service

import (
	"sync/atomic"
	"time"
)

// Stats tracks process-lifetime counters shown by the stats command.
type Stats struct {
	start    time.Time
	messages atomic.Int64
}

// NewStats creates stats anchored at process start.
func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

// CountMessage records one processed inbound message.
func (s *Stats) CountMessage() {
	s.messages.Add(1)
}

// Messages returns the processed message count.
func (s *Stats) Messages() int64 {
	return s.messages.Load()
}

// Uptime returns time since process start.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.start).Round(time.Second)
}
