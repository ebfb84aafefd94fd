package loops

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/safety"
	"github.com/lumina-grow/ripple/internal/types"
)

// DrainMode is the operator-selected drain behavior (spec.md §4.5).
type DrainMode string

const (
	DrainModeDrain     DrainMode = "drain"
	DrainModeFlush     DrainMode = "flush"
	DrainModeFullDrain DrainMode = "full_drain"
)

// DrainState is the in-process (unpersisted) drain record (spec.md §3).
// Hysteresis/drain state lives in the process and defaults to inactive on
// restart — an accepted loss on crash.
type DrainState struct {
	Active        bool
	Mode          DrainMode
	TargetLevel   float64
	StartedAt     time.Time
	MaxDuration   time.Duration
	InhibitRefill bool
}

// DrainRequest is the operator command payload for StartDrain.
type DrainRequest struct {
	TargetLevel     *float64
	DrainAmount     *float64
	DurationSeconds *int
	Mode            DrainMode
}

// WaterLevelLoop maintains tank level within the deadband around target
// and runs explicit operator-initiated drains (spec.md §4.5).
type WaterLevelLoop struct {
	deps *Deps

	mu    sync.Mutex
	drain DrainState
}

// NewWaterLevelLoop constructs the loop with drain inactive.
func NewWaterLevelLoop(deps *Deps) *WaterLevelLoop {
	return &WaterLevelLoop{deps: deps}
}

// OnCheck is the JobWaterLevelCheck handler (spec.md §4.5 periodic
// evaluation, fired roughly every 5 minutes).
func (l *WaterLevelLoop) OnCheck(ctx context.Context) {
	defer l.scheduleNext(ctx)

	l.evaluateDrain(ctx)

	cfg := l.deps.Config.WaterLevel()
	if !cfg.ControlEnabled {
		return
	}

	l.mu.Lock()
	inhibited := l.drain.Active && l.drain.InhibitRefill
	l.mu.Unlock()
	if inhibited {
		return
	}

	reading, ok := l.deps.Snapshot.Latest(types.SensorWaterLevel, "")
	if !ok || !safety.ValidateWaterLevel(reading.Value) {
		return
	}
	level := *reading.Value

	switch {
	case level < cfg.Min:
		_ = l.deps.Relay.SetValveOutsideToTank(ctx, true)
		_ = l.deps.Audit.Append(ctx, audit.New(types.DeviceValveOutsideToTank, audit.EventAlarm, "water_below_minimum", audit.SourceAutonomous).
			WithValue(fmt.Sprintf("%.2f", level)))
	case level < cfg.LowerBound():
		_ = l.deps.Relay.SetValveOutsideToTank(ctx, true)
	case level > cfg.Max:
		_ = l.deps.Relay.SetValveOutsideToTank(ctx, false)
		_ = l.deps.Audit.Append(ctx, audit.New(types.DeviceValveOutsideToTank, audit.EventAlarm, "water_above_maximum", audit.SourceAutonomous).
			WithValue(fmt.Sprintf("%.2f", level)))
	}
}

func (l *WaterLevelLoop) scheduleNext(ctx context.Context) {
	fireAt := l.deps.Clock.Now().Add(5 * time.Minute)
	_ = l.deps.Scheduler.AddJob(ctx, JobWaterLevelCheck, fireAt, JobWaterLevelCheck)
}

// evaluateDrain stops an active drain once its target level or its
// absolute timeout is reached (spec.md §4.5 "Evaluation inside the
// periodic loop stops the drain when EITHER... OR...").
func (l *WaterLevelLoop) evaluateDrain(ctx context.Context) {
	l.mu.Lock()
	active := l.drain.Active
	target := l.drain.TargetLevel
	deadline := l.drain.StartedAt.Add(l.drain.MaxDuration)
	l.mu.Unlock()
	if !active {
		return
	}

	now := l.deps.Clock.Now()
	timedOut := !now.Before(deadline)

	reached := false
	if reading, ok := l.deps.Snapshot.Latest(types.SensorWaterLevel, ""); ok && safety.ValidateWaterLevel(reading.Value) {
		reached = *reading.Value <= target
	}

	if reached || timedOut {
		l.StopDrain(ctx, "target_reached_or_timeout")
	}
}

// StartDrain begins an operator-initiated drain (spec.md §4.5 "Drain
// operations").
func (l *WaterLevelLoop) StartDrain(ctx context.Context, req DrainRequest) error {
	l.mu.Lock()
	if l.drain.Active {
		l.mu.Unlock()
		return fmt.Errorf("drain already active")
	}
	l.mu.Unlock()

	if req.Mode == DrainModeFlush && req.DurationSeconds == nil {
		return fmt.Errorf("flush mode requires duration_seconds")
	}

	cfg := l.deps.Config.WaterLevel()

	var target float64
	switch {
	case req.Mode == DrainModeFullDrain:
		target = 0
	case req.DrainAmount != nil:
		reading, ok := l.deps.Snapshot.Latest(types.SensorWaterLevel, "")
		current := cfg.Target
		if ok && safety.ValidateWaterLevel(reading.Value) {
			current = *reading.Value
		}
		target = current - *req.DrainAmount
	case req.TargetLevel != nil:
		target = *req.TargetLevel
	default:
		target = cfg.SafetyFloor
	}

	if req.Mode != DrainModeFullDrain && target < cfg.SafetyFloor {
		target = cfg.SafetyFloor
	}
	if target < 0 {
		target = 0
	}

	maxDuration := time.Duration(cfg.MaxDrainDurSecs) * time.Second
	if req.DurationSeconds != nil {
		requested := time.Duration(*req.DurationSeconds) * time.Second
		if requested < maxDuration {
			maxDuration = requested
		}
	}

	l.mu.Lock()
	l.drain = DrainState{
		Active:        true,
		Mode:          req.Mode,
		TargetLevel:   target,
		StartedAt:     l.deps.Clock.Now(),
		MaxDuration:   maxDuration,
		InhibitRefill: req.Mode != DrainModeFlush,
	}
	l.mu.Unlock()

	_ = l.deps.Relay.SetValveTankToOutside(ctx, true)
	_ = l.deps.Audit.Append(ctx, audit.New(types.DeviceValveTankToOutside, audit.EventIrrigation, "drain_start", audit.SourceManual).
		WithValue(fmt.Sprintf("mode=%s target=%.2f", req.Mode, target)))

	return nil
}

// StopDrain ends the active drain, closing the outlet valve and clearing
// drain state. Safe to call when no drain is active.
func (l *WaterLevelLoop) StopDrain(ctx context.Context, reason string) {
	l.mu.Lock()
	wasActive := l.drain.Active
	l.drain = DrainState{}
	l.mu.Unlock()
	if !wasActive {
		return
	}

	_ = l.deps.Relay.SetValveTankToOutside(ctx, false)
	_ = l.deps.Audit.Append(ctx, audit.New(types.DeviceValveTankToOutside, audit.EventIrrigation, "drain_stop", audit.SourceAutonomous).
		WithDetails(reason))
}

// GetDrainStatus reports the current drain state (spec.md §6 operator
// surface get_drain_status).
func (l *WaterLevelLoop) GetDrainStatus() (state DrainState, elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	state = l.drain
	if state.Active {
		elapsed = l.deps.Clock.Now().Sub(state.StartedAt)
	}
	return state, elapsed
}
