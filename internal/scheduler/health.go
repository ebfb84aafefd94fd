package scheduler

import "context"

// HealthCheckItem is one actuator's self-heal rule (spec.md §4.8
// "Scheduler health check"): if none of JobIDs is currently pending,
// Reinitialize is invoked to rebuild that actuator's schedule.
type HealthCheckItem struct {
	Name         string
	JobIDs       []string
	Reinitialize func(ctx context.Context)
}

// RunHealthCheck inspects every item and reinitializes any actuator whose
// start/stop jobs have both gone missing — the scheduler's authoritative
// self-heal, meant to run from the main loop roughly every 60 s.
func (s *Scheduler) RunHealthCheck(ctx context.Context, items []HealthCheckItem) {
	for _, item := range items {
		found := false
		for _, id := range item.JobIDs {
			if _, ok := s.GetJob(id); ok {
				found = true
				break
			}
		}
		if !found {
			s.log.Warn("scheduler health check: no jobs found for %s, reinitializing", item.Name)
			item.Reinitialize(ctx)
		}
	}
}
