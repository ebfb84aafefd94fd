package loops

import (
	"context"
	"time"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/types"
)

// SprinklerLoop runs the recurring on/off cycle independent of sensor
// readings (spec.md §4.3).
type SprinklerLoop struct {
	deps *Deps
}

// NewSprinklerLoop constructs the loop.
func NewSprinklerLoop(deps *Deps) *SprinklerLoop {
	return &SprinklerLoop{deps: deps}
}

// Start applies the boot-time policy (spec.md §4.3 "Startup policy").
func (l *SprinklerLoop) Start(ctx context.Context) {
	cfg := l.deps.Config.Sprinkler()

	if !cfg.SchedulingOn {
		_ = l.deps.Relay.SetSprinklers(ctx, false)
		return
	}

	if cfg.OnAtStartup {
		l.beginRun(ctx, cfg.OnDurationSecs)
		return
	}

	l.scheduleStart(ctx, cfg.WaitDurationSecs)
}

// OnStart is the JobSprinklerStart handler.
func (l *SprinklerLoop) OnStart(ctx context.Context) {
	cfg := l.deps.Config.Sprinkler()

	if !cfg.SchedulingOn {
		_ = l.deps.Relay.SetSprinklers(ctx, false)
		return
	}

	l.beginRun(ctx, cfg.OnDurationSecs)
}

func (l *SprinklerLoop) beginRun(ctx context.Context, onSecs int) {
	_ = l.deps.Relay.SetSprinklers(ctx, true)
	_ = l.deps.Audit.Append(ctx, audit.New(types.DeviceSprinklers, audit.EventIrrigation, "sprinkler_start", audit.SourceAutonomous))

	stopAt := l.deps.Clock.Now().Add(time.Duration(onSecs) * time.Second)
	_ = l.deps.Scheduler.AddJob(ctx, JobSprinklerStop, stopAt, JobSprinklerStop)
}

// OnStop is the JobSprinklerStop handler.
func (l *SprinklerLoop) OnStop(ctx context.Context) {
	_ = l.deps.Relay.SetSprinklers(ctx, false)
	_ = l.deps.Audit.Append(ctx, audit.New(types.DeviceSprinklers, audit.EventIrrigation, "sprinkler_stop", audit.SourceAutonomous))

	cfg := l.deps.Config.Sprinkler()
	if cfg.OnDurationSecs <= 0 {
		return
	}
	l.scheduleStart(ctx, cfg.WaitDurationSecs)
}

// scheduleStart reschedules sprinkler_start, honoring the 99:99:99
// sentinel and wait_duration == 0 as "do not reschedule" (spec.md §4.3).
func (l *SprinklerLoop) scheduleStart(ctx context.Context, waitSecs int) {
	if waitSecs <= 0 || waitSecs >= types.SprinklerDisabledSentinel {
		return
	}
	fireAt := l.deps.Clock.Now().Add(time.Duration(waitSecs) * time.Second)
	_ = l.deps.Scheduler.AddJob(ctx, JobSprinklerStart, fireAt, JobSprinklerStart)
}
