package safety

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/ports"
	"github.com/lumina-grow/ripple/internal/relay"
	"github.com/lumina-grow/ripple/internal/rlog"
)

// PumpHardTimeout is the hard cap every dosing pump is held to regardless of
// its configured on-duration (spec.md §4.6, §9 Open Question 4: a fixed
// constant, not a config-file tunable). Grounded on
// original_source/src/pump_safety.py's PumpTimeoutMonitor, generalized from
// a per-pump configurable max_runtime to this single hard ceiling.
const PumpHardTimeout = 30 * time.Second

type activePump struct {
	startedAt time.Time
	maxRun    time.Duration
}

// TimeoutMonitor tracks every currently-running dosing pump and force-stops
// (and latches an emergency shutdown for) any pump that exceeds its
// runtime ceiling. One TimeoutMonitor is owned by the controller for the
// whole process — no package-level singleton, per spec.md §9 Open
// Question 3.
type TimeoutMonitor struct {
	mu     sync.Mutex
	active map[string]activePump
	clock  ports.Clock
	log    *rlog.Logger
}

// NewTimeoutMonitor returns a TimeoutMonitor using clock for elapsed-time
// checks.
func NewTimeoutMonitor(clock ports.Clock) *TimeoutMonitor {
	return &TimeoutMonitor{
		active: make(map[string]activePump),
		clock:  clock,
		log:    rlog.New("pump_timeout"),
	}
}

// StartPump records pumpName as running with the given timeout ceiling.
// Pass PumpHardTimeout unless a loop has a tighter, configured duration.
func (m *TimeoutMonitor) StartPump(pumpName string, maxRun time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[pumpName] = activePump{startedAt: m.clock.Now(), maxRun: maxRun}
}

// StopPump removes pumpName from monitoring (the loop turned it off on its
// own schedule, not via a timeout).
func (m *TimeoutMonitor) StopPump(pumpName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, pumpName)
}

// CheckTimeouts inspects every monitored pump and, for any that has run
// past its ceiling, stops it and triggers the emergency latch (spec.md
// §4.6). Called from the controller's periodic tick.
func (m *TimeoutMonitor) CheckTimeouts(ctx context.Context, r *relay.Facade, latch *EmergencyLatch, sink audit.Sink) {
	now := m.clock.Now()

	type violation struct {
		runtime time.Duration
		maxRun  time.Duration
	}

	m.mu.Lock()
	violations := make(map[string]violation)
	for name, p := range m.active {
		runtime := now.Sub(p.startedAt)
		if runtime > p.maxRun {
			violations[name] = violation{runtime: runtime, maxRun: p.maxRun}
		}
	}
	for name := range violations {
		delete(m.active, name)
	}
	m.mu.Unlock()

	for name, v := range violations {
		m.log.Error("pump timeout: %s ran %s (max %s)", name, v.runtime, v.maxRun)
		if r != nil {
			if err := r.SetRelay(ctx, name, false); err != nil {
				m.log.Error("failed to stop %s after timeout: %v", name, err)
			}
		}
		reason := fmt.Sprintf("pump_timeout_%s_%.1fs", name, v.runtime.Seconds())
		if latch != nil {
			_ = latch.Trigger(ctx, reason, r, sink)
		}
	}
}
