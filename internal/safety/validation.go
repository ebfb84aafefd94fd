// Package safety implements the safety-critical layer spec.md §4.6
// describes: sensor bounds validation, per-pump timeout enforcement, the
// daily dosing-runtime budget, stuck-sensor detection, the emergency
// shutdown latch, and the critical-phase command lock. Every check here is
// grounded on the original Python modules under original_source/ (
// sensor_validation.py, pump_safety.py, runtime_tracker.py,
// stuck_sensor_detection.py, emergency_shutdown.py, critical_phase_lock.py)
// translated into the donor's validation style.
package safety

import (
	"math"
)

// Sensor bounds (spec.md §4.6). Values outside these ranges, or missing/
// NaN/Inf, are never acted on by a control loop.
const (
	ECMin = 0.01
	ECMax = 3.0

	PHMin = 4.0
	PHMax = 9.0

	WaterLevelMin = 0.0
	WaterLevelMax = 100.0
)

// ValidateEC reports whether value is a usable EC reading.
func ValidateEC(value *float64) bool {
	return inBounds(value, ECMin, ECMax)
}

// ValidatePH reports whether value is a usable pH reading.
func ValidatePH(value *float64) bool {
	return inBounds(value, PHMin, PHMax)
}

// ValidateWaterLevel reports whether value is a usable water-level reading.
func ValidateWaterLevel(value *float64) bool {
	return inBounds(value, WaterLevelMin, WaterLevelMax)
}

func inBounds(value *float64, min, max float64) bool {
	if value == nil {
		return false
	}
	v := *value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= min && v <= max
}
