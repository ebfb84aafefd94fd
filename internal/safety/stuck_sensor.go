package safety

import (
	"sync"
	"time"

	"github.com/lumina-grow/ripple/internal/rlog"
	"github.com/lumina-grow/ripple/internal/types"
)

// StuckSensorChangeThreshold is the minimum movement that counts as a
// sensor "responding" to dosing (spec.md §4.6), from
// original_source/src/stuck_sensor_detection.py's CHANGE_THRESHOLD.
const StuckSensorChangeThreshold = 0.01

// StuckSensorMaxRuntimeWithoutChange is how long a sensor may run with no
// observed movement before it is declared stuck.
const StuckSensorMaxRuntimeWithoutChange = 60 * time.Second

type stuckSensorState struct {
	baseline          float64
	accumulatedNoMove time.Duration
}

// StuckSensorDetector tracks, per (sensor kind, location), whether a
// dosing cycle is producing any measurable movement. It keys on the full
// (kind, location) pair, since a single sensor kind can have more than one
// probe location (SPEC_FULL.md §C).
type StuckSensorDetector struct {
	mu    sync.Mutex
	state map[stuckSensorKey]*stuckSensorState
	log   *rlog.Logger
}

type stuckSensorKey struct {
	kind     types.SensorKind
	location string
}

// NewStuckSensorDetector returns an empty detector.
func NewStuckSensorDetector() *StuckSensorDetector {
	return &StuckSensorDetector{
		state: make(map[stuckSensorKey]*stuckSensorState),
		log:   rlog.New("stuck_sensor"),
	}
}

// StartDosing records the baseline reading a dosing cycle begins from. Call
// once per cycle start.
func (d *StuckSensorDetector) StartDosing(kind types.SensorKind, location string, initialValue float64) {
	key := stuckSensorKey{kind, location}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state[key] = &stuckSensorState{baseline: initialValue}
}

// CheckResponse compares currentValue against the recorded baseline,
// accumulating elapsed runtime while no movement is observed. It returns
// stuck=true once the accumulated no-movement runtime reaches
// StuckSensorMaxRuntimeWithoutChange.
func (d *StuckSensorDetector) CheckResponse(kind types.SensorKind, location string, currentValue float64, elapsed time.Duration) (stuck bool, responding bool) {
	key := stuckSensorKey{kind, location}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.state[key]
	if !ok {
		return false, false
	}

	delta := currentValue - s.baseline
	if delta < 0 {
		delta = -delta
	}

	if delta > StuckSensorChangeThreshold {
		s.accumulatedNoMove = 0
		s.baseline = currentValue
		return false, true
	}

	s.accumulatedNoMove += elapsed
	if s.accumulatedNoMove >= StuckSensorMaxRuntimeWithoutChange {
		d.log.Error("stuck %s/%s sensor detected: %s runtime, no change from %.4f",
			kind, location, s.accumulatedNoMove, s.baseline)
		return true, false
	}
	return false, false
}

// Reset clears tracking state for (kind, location), e.g. once a dosing
// cycle ends normally.
func (d *StuckSensorDetector) Reset(kind types.SensorKind, location string) {
	key := stuckSensorKey{kind, location}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.state, key)
}
