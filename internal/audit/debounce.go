package audit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Debouncer suppresses repeated emissions of the same key within a window
// (spec.md §4.1 "debounced per key at 600 s", §5 idempotence: "Audit emits
// accept a debounce_key to suppress repeated emissions within a window").
// Each key gets its own rate.Limiter configured to allow one event per
// window with no burst, which is exactly the debounce shape.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	limiters map[string]*rate.Limiter
}

// NewDebouncer creates a Debouncer with the given suppression window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether an emission for key is allowed now. The first call
// for a fresh key always returns true; subsequent calls within the window
// return false until it elapses.
func (d *Debouncer) Allow(key string) bool {
	d.mu.Lock()
	lim, ok := d.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(d.window), 1)
		d.limiters[key] = lim
		d.mu.Unlock()
		return lim.Allow()
	}
	d.mu.Unlock()
	return lim.Allow()
}
