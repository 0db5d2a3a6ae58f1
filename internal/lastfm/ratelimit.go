package lastfm

import (
	"sync"
	"time"
)

// rateLimiter spaces out requests so that no more than maxPerSecond are
// issued across all goroutines sharing the client. Callers block in
// acquire until the minimum interval since the previously granted request
// has elapsed.
type rateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastGranted time.Time
}

func newRateLimiter(maxPerSecond int) *rateLimiter {
	if maxPerSecond <= 0 {
		maxPerSecond = 1
	}
	return &rateLimiter{minInterval: time.Second / time.Duration(maxPerSecond)}
}

// acquire blocks until the caller may issue a request. Concurrent callers
// are serialized by the mutex, so none observes more throughput than the
// configured ceiling. There is no timeout: a blocked caller always
// eventually proceeds.
func (r *rateLimiter) acquire() {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.lastGranted)
	if elapsed < r.minInterval {
		time.Sleep(r.minInterval - elapsed)
	}
	r.lastGranted = time.Now()
}
