package safety

import (
	"context"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/relay"
)

// Guards bundles the safety-layer components a control loop needs,
// constructed once in the controller and passed to every loop (spec.md §9
// "Global mutable state": each process-wide value is explicitly owned and
// injected, never a package singleton).
type Guards struct {
	Emergency   *EmergencyLatch
	Timeout     *TimeoutMonitor
	Budget      *RuntimeBudget
	StuckSensor *StuckSensorDetector
}

// NewGuards bundles already-constructed components.
func NewGuards(emergency *EmergencyLatch, timeout *TimeoutMonitor, budget *RuntimeBudget, stuck *StuckSensorDetector) *Guards {
	return &Guards{Emergency: emergency, Timeout: timeout, Budget: budget, StuckSensor: stuck}
}

// AllowAutomaticStart reports whether an automatic loop may begin a new
// actuation (spec.md I4: "If the emergency flag is present, no automatic
// start request succeeds").
func (g *Guards) AllowAutomaticStart() bool {
	return !g.Emergency.IsActive()
}

// CheckMultiSensorFailure implements the multi-sensor failure policy
// (spec.md §4.6): if two or more of {EC, pH, water_level} are invalid on
// the same evaluation, trigger emergency shutdown.
func (g *Guards) CheckMultiSensorFailure(ctx context.Context, ecValid, phValid, waterValid bool, r *relay.Facade, sink audit.Sink) bool {
	invalid := 0
	if !ecValid {
		invalid++
	}
	if !phValid {
		invalid++
	}
	if !waterValid {
		invalid++
	}
	if invalid < 2 {
		return false
	}
	_ = g.Emergency.Trigger(ctx, "multi_sensor_failure", r, sink)
	return true
}
