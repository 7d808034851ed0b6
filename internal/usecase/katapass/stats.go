package katapass

import (
	"sync"
	"sync/atomic"

	"katapass/internal/domain"
)

// DecisionPublisher receives every intercept decision. Publish must not block.
type DecisionPublisher interface {
	Publish(d domain.Decision)
}

// Stats counts broker traffic. It is also a DecisionPublisher.
type Stats struct {
	forwarded  atomic.Int64
	relayed    atomic.Int64
	intercepts atomic.Int64
	passes     atomic.Int64
	plays      atomic.Int64

	mu   sync.Mutex
	last *domain.Decision
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) Publish(d domain.Decision) {
	s.intercepts.Add(1)
	if d.Passed {
		s.passes.Add(1)
	} else {
		s.plays.Add(1)
	}
	s.mu.Lock()
	s.last = &d
	s.mu.Unlock()
}

func (s *Stats) Snapshot() domain.Stats {
	s.mu.Lock()
	var last *domain.Decision
	if s.last != nil {
		d := *s.last
		last = &d
	}
	s.mu.Unlock()

	return domain.Stats{
		Forwarded:    s.forwarded.Load(),
		Relayed:      s.relayed.Load(),
		Intercepts:   s.intercepts.Load(),
		Passes:       s.passes.Load(),
		Plays:        s.plays.Load(),
		LastDecision: last,
	}
}
