package bot

import (
	"sync"
	"time"
)

// Default per-user windows. Voice notes carry a transcription plus an LLM
// call per message, so they get the tighter budget.
const (
	voiceLimit     = 5
	commandLimit   = 30
	limiterWindow  = time.Minute
	limiterMaxIdle = time.Hour
)

// rateLimiter is a per-user sliding window. A user may make maxRequests
// requests inside the window; older timestamps expire as time advances.
type rateLimiter struct {
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu       sync.Mutex
	requests map[string][]time.Time
}

func newRateLimiter(maxRequests int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		requests:    map[string][]time.Time{},
	}
}

// allow records one request for userID and reports whether it fits in the
// window. When it does not, retryIn is how long until the oldest counted
// request expires.
func (l *rateLimiter) allow(userID string) (ok bool, retryIn time.Duration) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.requests[userID][:0]
	for _, ts := range l.requests[userID] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.maxRequests {
		l.requests[userID] = kept
		return false, kept[0].Sub(cutoff)
	}

	l.requests[userID] = append(kept, now)
	return true, 0
}

// sweep drops users whose newest request is older than maxIdle, so the map
// does not grow without bound over a long-running bot process.
func (l *rateLimiter) sweep(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for userID, stamps := range l.requests {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(l.requests, userID)
			removed++
		}
	}
	return removed
}
