// Package control implements the operator command surface spec.md §6
// describes. The spec places these commands behind a REST façade, but
// "any user-facing application layer" is an explicit Non-goal (spec.md
// §1) — so this package stops at the operation itself: a plain Go type
// with one method per command. Wiring those methods to HTTP, a CLI, or a
// socket is left to the excluded outer layer; see DESIGN.md.
package control

import (
	"context"
	"fmt"
	"time"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/config"
	"github.com/lumina-grow/ripple/internal/loops"
	"github.com/lumina-grow/ripple/internal/relay"
	"github.com/lumina-grow/ripple/internal/safety"
)

// Operator bundles the collaborators the command surface needs. Every
// field is already owned elsewhere (controller construction, spec.md §9)
// and passed in here by reference.
type Operator struct {
	Relay      *relay.Facade
	Config     *config.Store
	Guards     *safety.Guards
	WaterLevel *loops.WaterLevelLoop
	Audit      audit.Sink
}

// NewOperator returns an Operator wired to the given collaborators.
func NewOperator(r *relay.Facade, cfg *config.Store, guards *safety.Guards, water *loops.WaterLevelLoop, sink audit.Sink) *Operator {
	return &Operator{Relay: r, Config: cfg, Guards: guards, WaterLevel: water, Audit: sink}
}

// SetRelay implements spec.md §6 set_relay: rejected outright during a
// critical phase (any dosing pump commanded on), otherwise delegated to
// the façade and logged as a manual audit event.
func (o *Operator) SetRelay(ctx context.Context, deviceName string, state bool) error {
	if safety.IsInCriticalPhase(o.Relay) {
		return fmt.Errorf("set_relay %s: refused, critical phase active", deviceName)
	}
	if err := o.Relay.SetRelay(ctx, deviceName, state); err != nil {
		return err
	}
	_ = o.Audit.Append(ctx, audit.New(deviceName, audit.EventUserCommand, "set_relay", audit.SourceManual).
		WithValue(state))
	return nil
}

// StartDrain implements spec.md §6 start_drain.
func (o *Operator) StartDrain(ctx context.Context, req loops.DrainRequest) error {
	return o.WaterLevel.StartDrain(ctx, req)
}

// StopDrain implements spec.md §6 stop_drain.
func (o *Operator) StopDrain(ctx context.Context, reason string) {
	o.WaterLevel.StopDrain(ctx, reason)
}

// DrainStatus is the get_drain_status response shape spec.md §6 defines.
type DrainStatus struct {
	Active         bool
	Mode           loops.DrainMode
	TargetLevel    float64
	StartedAt      time.Time
	ElapsedSeconds float64
}

// GetDrainStatus implements spec.md §6 get_drain_status. ElapsedSeconds is
// computed at call time, not stored, per original_source/src/
// simplified_water_level_controller.py.
func (o *Operator) GetDrainStatus() DrainStatus {
	state, elapsed := o.WaterLevel.GetDrainStatus()
	return DrainStatus{
		Active:         state.Active,
		Mode:           state.Mode,
		TargetLevel:    state.TargetLevel,
		StartedAt:      state.StartedAt,
		ElapsedSeconds: elapsed.Seconds(),
	}
}

// ClearEmergencyShutdown implements spec.md §6 clear_emergency_shutdown —
// operator-only, deletes the emergency flag file.
func (o *Operator) ClearEmergencyShutdown() error {
	return o.Guards.Emergency.Clear()
}

// SensorTargets is the get_sensor_targets response shape spec.md §6
// defines, covering the two sensor kinds with configurable targets.
type SensorTargets struct {
	EC config.ECConfig
	PH config.PHConfig
}

// GetSensorTargets implements spec.md §6 get_sensor_targets.
func (o *Operator) GetSensorTargets() SensorTargets {
	return SensorTargets{EC: o.Config.EC(), PH: o.Config.PH()}
}

// SensorTargetUpdate carries the optional fields spec.md §6
// update_sensor_targets(kind, target?, deadband?, min?, max?) accepts.
// A nil field leaves that config cell untouched.
type SensorTargetUpdate struct {
	Target   *float64
	Deadband *float64
	Min      *float64
	Max      *float64
}

// UpdateSensorTargets implements spec.md §6 update_sensor_targets for
// kind "EC" or "pH", writing only the fields present in upd.
func (o *Operator) UpdateSensorTargets(kind string, upd SensorTargetUpdate) error {
	var section string
	var keys struct{ target, deadband, min, max string }
	switch kind {
	case config.SectionEC:
		section = config.SectionEC
		keys.target, keys.deadband, keys.min, keys.max = "ec_target", "ec_deadband", "ec_min", "ec_max"
	case config.SectionPH:
		section = config.SectionPH
		keys.target, keys.deadband, keys.min, keys.max = "ph_target", "ph_deadband", "ph_min", "ph_max"
	default:
		return fmt.Errorf("update_sensor_targets: unknown kind %q", kind)
	}

	writes := []struct {
		key string
		val *float64
	}{
		{keys.target, upd.Target},
		{keys.deadband, upd.Deadband},
		{keys.min, upd.Min},
		{keys.max, upd.Max},
	}
	for _, w := range writes {
		if w.val == nil {
			continue
		}
		if err := o.Config.SetOperational(section, w.key, fmt.Sprintf("%g", *w.val)); err != nil {
			return fmt.Errorf("update_sensor_targets %s.%s: %w", section, w.key, err)
		}
	}
	return nil
}
