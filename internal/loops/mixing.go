package loops

import (
	"context"
	"sync"
	"time"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/types"
)

// MixingLoop runs the recurring mix cycle and absorbs the one cross-loop
// coupling in the system: nutrient/pH dosing nudges it to stay on for at
// least trigger_mixing_duration past the dose (spec.md §4.4). The nudge
// arrives as a call to ExtendForDose — a message through a public method,
// never a direct mutation of runningUntil by another package (spec.md §9).
type MixingLoop struct {
	deps *Deps

	mu           sync.Mutex
	runningUntil time.Time // zero value means not running
}

// NewMixingLoop constructs the mixing loop. Call Start once at boot.
func NewMixingLoop(deps *Deps) *MixingLoop {
	return &MixingLoop{deps: deps}
}

// Start begins the recurring cycle if mixing_duration > 0 (spec.md §4.4
// "mixing_start at boot (if mixing_duration > 0)").
func (l *MixingLoop) Start(ctx context.Context) {
	cfg := l.deps.Config.Mixing()
	if cfg.MixingDurationSecs <= 0 {
		return
	}
	l.beginRun(ctx, time.Duration(cfg.MixingDurationSecs)*time.Second)
}

func (l *MixingLoop) beginRun(ctx context.Context, duration time.Duration) {
	now := l.deps.Clock.Now()

	if err := l.deps.Relay.SetMixingPump(ctx, true); err != nil {
		return
	}

	l.mu.Lock()
	l.runningUntil = now.Add(duration)
	stopAt := l.runningUntil
	l.mu.Unlock()

	_ = l.deps.Audit.Append(ctx, audit.New(types.DeviceMixingPump, audit.EventIrrigation, "mixing_start", audit.SourceAutonomous).
		WithValue(map[string]int{"duration_seconds": int(duration.Seconds())}))

	_ = l.deps.Scheduler.AddJob(ctx, JobMixingStop, stopAt, JobMixingStop)
}

// OnStop is the JobMixingStop handler.
func (l *MixingLoop) OnStop(ctx context.Context) {
	_ = l.deps.Relay.SetMixingPump(ctx, false)

	l.mu.Lock()
	l.runningUntil = time.Time{}
	l.mu.Unlock()

	_ = l.deps.Audit.Append(ctx, audit.New(types.DeviceMixingPump, audit.EventIrrigation, "mixing_stop", audit.SourceAutonomous))

	cfg := l.deps.Config.Mixing()
	if cfg.MixingIntervalSecs <= 0 {
		return
	}
	fireAt := l.deps.Clock.Now().Add(time.Duration(cfg.MixingIntervalSecs) * time.Second)
	_ = l.deps.Scheduler.AddJob(ctx, JobMixingStart, fireAt, JobMixingStart)
}

// OnStart is the JobMixingStart handler for the recurring cycle.
func (l *MixingLoop) OnStart(ctx context.Context) {
	cfg := l.deps.Config.Mixing()
	if cfg.MixingDurationSecs <= 0 {
		return
	}
	l.beginRun(ctx, time.Duration(cfg.MixingDurationSecs)*time.Second)
}

// ExtendForDose guarantees the mixing pump stays on for at least
// triggerDuration past the moment this is called (spec.md §4.4
// "Post-dose trigger"). If mixing is already running with enough
// remaining time, this is a no-op — extending the same stop time twice
// must be idempotent.
func (l *MixingLoop) ExtendForDose(ctx context.Context, triggerDuration time.Duration) {
	if triggerDuration <= 0 {
		return
	}
	now := l.deps.Clock.Now()
	minStop := now.Add(triggerDuration)

	l.mu.Lock()
	running := !l.runningUntil.IsZero() && l.runningUntil.After(now)
	needsExtend := running && l.runningUntil.Before(minStop)
	if needsExtend {
		l.runningUntil = minStop
	}
	l.mu.Unlock()

	switch {
	case !running:
		l.beginRun(ctx, triggerDuration)
	case needsExtend:
		_ = l.deps.Scheduler.AddJob(ctx, JobMixingStop, minStop, JobMixingStop)
	}
}
