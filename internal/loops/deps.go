// Package loops implements the five per-actuator control loops spec.md
// §4.1–§4.5 describes: small state machines triggered by the scheduler,
// reading the sensor snapshot and config, deciding, and actuating through
// the relay façade. Every process-wide value each loop needs (scheduler
// handle, hysteresis flag, drain state, relay façade) is constructed once
// in the controller and passed in here — spec.md §9 "Global mutable
// state": dependency injection, no package singletons.
package loops

import (
	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/config"
	"github.com/lumina-grow/ripple/internal/ports"
	"github.com/lumina-grow/ripple/internal/relay"
	"github.com/lumina-grow/ripple/internal/safety"
	"github.com/lumina-grow/ripple/internal/scheduler"
	"github.com/lumina-grow/ripple/internal/snapshot"
)

// Deps is the common collaborator set every loop is constructed with.
type Deps struct {
	Config    *config.Store
	Snapshot  *snapshot.Store
	Relay     *relay.Facade
	Scheduler *scheduler.Scheduler
	Guards    *safety.Guards
	Audit     audit.Sink
	Clock     ports.Clock
}

// Fixed job IDs (spec.md §3 "Job IDs are a fixed finite set, one per
// (actuator, phase) pair"). PayloadKind is always set equal to the job ID
// itself — there is exactly one handler per kind, registered once at
// construction.
const (
	JobNutrientStart = "nutrient_start"
	JobNutrientStop  = "nutrient_stop"
	JobPHStart       = "ph_start"
	JobPHStop        = "ph_stop"
	JobSprinklerStart = "sprinkler_start"
	JobSprinklerStop  = "sprinkler_stop"
	JobMixingStart    = "mixing_start"
	JobMixingStop     = "mixing_stop"
	JobWaterLevelCheck = "water_level_check"
)
