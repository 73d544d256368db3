package ratelimit

import (
	"sync"
	"time"
)

// Limiter defines the interface for request pacing
type Limiter interface {
	// Allow reports whether a request may proceed right now without waiting
	Allow() bool
	// Wait blocks until the limiter permits another request
	Wait()
	// Reset clears the limiter state
	Reset()
}

// Pacer enforces a minimum spacing between consecutive requests. Every
// outbound call of one client instance passes through one Pacer, so the
// pacing clock is shared across pages, items, and asset downloads alike.
type Pacer struct {
	interval time.Duration
	last     time.Time
	mu       sync.Mutex

	// sleep is swappable for tests
	sleep func(time.Duration)
}

// NewPacer creates a pacer with the given minimum inter-request spacing
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		sleep:    time.Sleep,
	}
}

// Allow reports whether enough time has passed since the previous request.
// When it has, the request slot is consumed.
func (p *Pacer) Allow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.last.IsZero() || now.Sub(p.last) >= p.interval {
		p.last = now
		return true
	}

	return false
}

// Wait blocks until the spacing requirement is met, then consumes the slot.
// The lock is held across the sleep: concurrent callers serialize through the
// single pacing clock.
func (p *Pacer) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if remaining := p.interval - time.Since(p.last); remaining > 0 {
			p.sleep(remaining)
		}
	}

	p.last = time.Now()
}

// Reset clears the pacing clock so the next request proceeds immediately
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = time.Time{}
}
