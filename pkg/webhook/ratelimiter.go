package webhook

import (
	"sync"
	"time"
)

// RateLimiter enforces a per-IP sliding one-minute window.
type RateLimiter struct {
	requests          map[string][]int64
	maxRequestsPerMin int
	mu                sync.Mutex
	stopCleanup       chan struct{}
	stopOnce          sync.Once
}

const windowMs = 60_000

// NewRateLimiter creates a rate limiter allowing maxRequestsPerMinute
// requests per client IP.
func NewRateLimiter(maxRequestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		requests:          make(map[string][]int64),
		maxRequestsPerMin: maxRequestsPerMinute,
		stopCleanup:       make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a request from ip may proceed, recording it if so.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()
	recent := trimWindow(rl.requests[ip], now)

	if len(recent) >= rl.maxRequestsPerMin {
		rl.requests[ip] = recent
		return false
	}

	rl.requests[ip] = append(recent, now)
	return true
}

// RetryAfter returns the seconds until the oldest request for ip leaves
// the window, rounded up.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := rl.requests[ip]
	if len(recent) == 0 {
		return 0
	}

	remainingMs := windowMs - (time.Now().UnixMilli() - recent[0])
	if remainingMs < 0 {
		return 0
	}
	return int((remainingMs + 999) / 1000)
}

// Stop terminates the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func trimWindow(stamps []int64, now int64) []int64 {
	recent := stamps[:0]
	for _, at := range stamps {
		if now-at < windowMs {
			recent = append(recent, at)
		}
	}
	return recent
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCleanup:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now().UnixMilli()
			for ip, stamps := range rl.requests {
				recent := trimWindow(stamps, now)
				if len(recent) == 0 {
					delete(rl.requests, ip)
				} else {
					rl.requests[ip] = recent
				}
			}
			rl.mu.Unlock()
		}
	}
}
