package pipeline

import (
	"sync"
	"time"
)

// warnLimiter caps how many warnings are logged per window. Warnings over the
// cap are counted and reported when the next window opens.
type warnLimiter struct {
	mu          sync.Mutex
	windowStart time.Time
	windowSize  time.Duration
	maxPerWin   int
	count       int
	suppressed  uint64
}

func newWarnLimiter(maxPerWindow int, window time.Duration) *warnLimiter {
	if window <= 0 {
		window = 10 * time.Second
	}
	return &warnLimiter{windowSize: window, maxPerWin: maxPerWindow}
}

// Allow reports whether a warning may be logged at now, and how many were
// suppressed in the window that just closed.
func (l *warnLimiter) Allow(now time.Time) (bool, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var suppressed uint64
	if now.Sub(l.windowStart) >= l.windowSize {
		suppressed = l.suppressed
		l.windowStart = now
		l.count = 0
		l.suppressed = 0
	}

	if l.count >= l.maxPerWin {
		l.suppressed++
		return false, suppressed
	}
	l.count++
	return true, suppressed
}
