// Package scheduler implements the durable job scheduler spec.md §4.8
// describes: date-triggered jobs (fire once at a fixed time), a
// SQLite-backed job store with tiered recovery, and a periodic
// self-healing health check. Grounded on the donor's
// internal/storage/sqlite package for the open/schema/migrate shape, and on
// original_source/src/scheduler.py for the add_job/remove_job/get_job(s)
// API and the "single live instance per job ID" replace-on-collision rule.
package scheduler

import "time"

// Job is a single date-triggered unit of work. Recurrence is never modeled
// here — each loop reschedules its own successor on completion (spec.md
// §4.8: "never interval-triggered").
type Job struct {
	ID          string
	FireAt      time.Time
	PayloadKind string
}
