package service

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a fixed-window request limit per caller key (e.g. client IP).
type RateLimiter struct {
	limit   int
	window  time.Duration
	windows map[string]*rateWindow
	mu      sync.Mutex
	now     func() time.Time
}

type rateWindow struct {
	start time.Time
	count int
}

// NewRateLimiter creates a limiter allowing limit requests per window per key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*rateWindow),
		now:     time.Now,
	}
}

// Allow records one request for key. When the window is exhausted it returns false and
// the time until the window resets; rejected requests are not counted.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.windows[key] = &rateWindow{start: now, count: 1}

		return true, 0
	}

	if w.count >= rl.limit {
		return false, w.start.Add(rl.window).Sub(now)
	}

	w.count++

	return true, 0
}

// Sweep removes windows that have ended.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.window {
			delete(rl.windows, key)
		}
	}
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return len(rl.windows)
}

// RunSweeper calls Sweep every window until ctx is done.
func (rl *RateLimiter) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}
