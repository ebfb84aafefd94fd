package loops

import (
	"context"
	"time"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/config"
	"github.com/lumina-grow/ripple/internal/safety"
	"github.com/lumina-grow/ripple/internal/types"
)

// phSnapshotMaxAge is the staleness cutoff spec.md §4.2 gives for the pH
// reading: a snapshot older than this never falls through to a dose.
const phSnapshotMaxAge = 2 * time.Minute

// phDirection is which pump, if any, a decision calls for.
type phDirection int

const (
	phNone phDirection = iota
	phUp
	phDown
)

// PHLoop keeps pH within [target-deadband/2, target+deadband/2], forcing
// the hard direction outside [ph_min, ph_max] (spec.md §4.2). At most one
// pump runs at a time; ph_stop always turns both off.
type PHLoop struct {
	deps   *Deps
	mixing *MixingLoop
}

// NewPHLoop constructs the loop.
func NewPHLoop(deps *Deps, mixing *MixingLoop) *PHLoop {
	return &PHLoop{deps: deps, mixing: mixing}
}

// ForceOff is the startup invariant (spec.md §4.2 "both pH pumps are
// forced OFF at process boot regardless of config"). Call once at boot.
func (l *PHLoop) ForceOff(ctx context.Context) {
	_ = l.deps.Relay.SetPHPlusPump(ctx, false)
	_ = l.deps.Relay.SetPHMinusPump(ctx, false)
}

// OnStart is the JobPHStart handler.
func (l *PHLoop) OnStart(ctx context.Context) {
	onSecs, waitSecs := l.deps.Config.PHPumpTiming()
	if onSecs <= 0 {
		return
	}

	phCfg := l.deps.Config.PH()
	reading, ok := l.deps.Snapshot.Latest(types.SensorPH, "")
	stale := !ok || !safety.ValidatePH(reading.Value) || reading.Age(l.deps.Clock.Now()) > phSnapshotMaxAge

	if stale {
		l.skip(ctx, waitSecs)
		return
	}

	ph := *reading.Value
	direction := decidePHDirection(ph, phCfg)
	if direction == phNone {
		l.skip(ctx, waitSecs)
		return
	}

	if !l.deps.Guards.AllowAutomaticStart() {
		l.skip(ctx, waitSecs)
		return
	}

	onDuration := time.Duration(onSecs) * time.Second
	if !l.deps.Guards.Budget.CanDose(onDuration) {
		l.skip(ctx, waitSecs)
		return
	}

	l.dose(ctx, direction, onDuration)
}

// decidePHDirection implements the spec.md §4.2 decision table. Hard
// bounds (ph_min/ph_max) take priority over the deadband.
func decidePHDirection(ph float64, cfg config.PHConfig) phDirection {
	half := cfg.Deadband / 2
	switch {
	case ph > cfg.Max:
		return phDown
	case ph < cfg.Min:
		return phUp
	case ph > cfg.Target+half:
		return phDown
	case ph < cfg.Target-half:
		return phUp
	default:
		return phNone
	}
}

func (l *PHLoop) dose(ctx context.Context, direction phDirection, onDuration time.Duration) {
	var deviceName string
	switch direction {
	case phUp:
		deviceName = types.DevicePHUpPump
		_ = l.deps.Relay.SetPHMinusPump(ctx, false)
		_ = l.deps.Relay.SetPHPlusPump(ctx, true)
	case phDown:
		deviceName = types.DevicePHDownPump
		_ = l.deps.Relay.SetPHPlusPump(ctx, false)
		_ = l.deps.Relay.SetPHMinusPump(ctx, true)
	default:
		return
	}

	l.deps.Guards.Timeout.StartPump(deviceName, safety.PumpHardTimeout)

	_ = l.deps.Audit.Append(ctx, audit.New(deviceName, audit.EventDosing, "ph_start", audit.SourceAutonomous).
		WithValue(map[string]int{"on_duration_seconds": int(onDuration.Seconds())}))

	l.mixing.ExtendForDose(ctx, time.Duration(l.deps.Config.Mixing().TriggerMixingDurationSecs)*time.Second)

	stopAt := l.deps.Clock.Now().Add(onDuration)
	_ = l.deps.Scheduler.AddJob(ctx, JobPHStop, stopAt, JobPHStop)
}

// OnStop is the JobPHStop handler. Both pumps are always turned off,
// regardless of which one was dosing (spec.md §4.2 safety rule).
func (l *PHLoop) OnStop(ctx context.Context) {
	_ = l.deps.Relay.SetPHPlusPump(ctx, false)
	_ = l.deps.Relay.SetPHMinusPump(ctx, false)
	l.deps.Guards.Timeout.StopPump(types.DevicePHUpPump)
	l.deps.Guards.Timeout.StopPump(types.DevicePHDownPump)

	_ = l.deps.Audit.Append(ctx, audit.New("pHPump", audit.EventDosing, "ph_stop", audit.SourceAutonomous))

	_, waitSecs := l.deps.Config.PHPumpTiming()
	l.reschedule(ctx, waitSecs)
}

func (l *PHLoop) skip(ctx context.Context, waitSecs int) {
	l.reschedule(ctx, waitSecs)
}

func (l *PHLoop) reschedule(ctx context.Context, waitSecs int) {
	if waitSecs <= 0 {
		return
	}
	if _, exists := l.deps.Scheduler.GetJob(JobPHStart); exists {
		return
	}
	fireAt := l.deps.Clock.Now().Add(time.Duration(waitSecs) * time.Second)
	_ = l.deps.Scheduler.AddJob(ctx, JobPHStart, fireAt, JobPHStart)
}
