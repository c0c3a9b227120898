// Package ratelimit implements a fixed-window per-client request counter.
//
// Window boundaries are evaluated lazily at call time rather than by a
// background timer, so an idle client's window resets on its next call.
// The fixed window has the usual boundary burst property (up to 2x the
// limit straddling a window edge); that is an accepted tradeoff here.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Info describes the limiter's view of one client after a check. ResetTime
// is intentionally disclosed to callers so well-behaved clients can back
// off correctly.
type Info struct {
	Limit     int
	Remaining int
	ResetTime time.Time
}

// LimitExceededError is returned by handlers when a client is over its
// window budget. It maps to an HTTP 429 at the transport layer.
type LimitExceededError struct {
	Info Info
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets at %s", e.Info.ResetTime.Format(time.RFC3339))
}

type entry struct {
	count     int
	resetTime time.Time
}

// Limiter is a fixed-window counter keyed by client id. The entry store is
// LRU-bounded so a long-running process with many distinct clients cannot
// grow without limit.
type Limiter struct {
	mu      sync.Mutex
	clients *lru.Cache[string, *entry]
	now     func() time.Time
}

// New creates a Limiter that tracks at most maxClients distinct client ids.
func New(maxClients int) (*Limiter, error) {
	return NewWithClock(maxClients, time.Now)
}

// NewWithClock is New with an injectable clock, used by tests to advance
// windows deterministically.
func NewWithClock(maxClients int, now func() time.Time) (*Limiter, error) {
	cache, err := lru.New[string, *entry](maxClients)
	if err != nil {
		return nil, fmt.Errorf("failed to create client store: %w", err)
	}
	return &Limiter{clients: cache, now: now}, nil
}

// Check admits or rejects one request from clientID against the given
// limit and window. Limit and window are caller-supplied per call, so
// different endpoints may apply different policies against the same store.
func (l *Limiter) Check(clientID string, limit int, window time.Duration) (bool, Info) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.now()

	e, ok := l.clients.Get(clientID)
	if !ok {
		e = &entry{resetTime: current}
		l.clients.Add(clientID, e)
	}

	if !current.Before(e.resetTime) {
		e.count = 0
		e.resetTime = current.Add(window)
	}

	if e.count >= limit {
		return false, Info{Limit: limit, Remaining: 0, ResetTime: e.resetTime}
	}

	e.count++
	return true, Info{Limit: limit, Remaining: limit - e.count, ResetTime: e.resetTime}
}
