// Package ratelimit gates outbound provider calls with a per-key
// fixed-window counter.
package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks one counter per provider key. All methods are safe for
// concurrent use; counters within a window are monotonically non-decreasing.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	clock   func() time.Time
}

func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		clock:   time.Now,
	}
}

// Allow reports whether another call to key may proceed within the current
// window of windowDur length holding at most maxRequests calls. A granted
// call consumes one slot; a denial has no side effects.
func (l *Limiter) Allow(key string, maxRequests int, windowDur time.Duration) bool {
	if maxRequests <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(windowDur)}
		l.windows[key] = w
	}

	if w.count >= maxRequests {
		return false
	}
	w.count++
	return true
}

// Remaining returns the unused slots for key in its current window.
func (l *Limiter) Remaining(key string, maxRequests int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !l.clock().Before(w.resetAt) {
		return maxRequests
	}
	if w.count >= maxRequests {
		return 0
	}
	return maxRequests - w.count
}

// Reset clears the window for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
}
