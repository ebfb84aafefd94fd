package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/lumina-grow/ripple/internal/ports"
	"github.com/lumina-grow/ripple/internal/rlog"
)

// Handler runs when a job with the matching PayloadKind fires.
type Handler func(ctx context.Context, job Job)

// Scheduler is the single, explicitly-constructed scheduler handle spec.md
// §9 Open Question 3 requires ("the rewrite must guarantee a single
// scheduler handle via dependency injection"). It owns one durable Store
// and a set of in-process timers driving each job's fire time.
type Scheduler struct {
	mu       sync.Mutex
	store    Store
	clock    ports.Clock
	handlers map[string]Handler
	timers   map[string]*time.Timer
	degraded bool
	log      *rlog.Logger
}

// New returns a Scheduler backed by store. degraded should reflect whether
// store is the in-memory fallback, purely for status reporting.
func New(store Store, clock ports.Clock, degraded bool) *Scheduler {
	return &Scheduler{
		store:    store,
		clock:    clock,
		handlers: make(map[string]Handler),
		timers:   make(map[string]*time.Timer),
		degraded: degraded,
		log:      rlog.New("scheduler"),
	}
}

// Degraded reports whether the scheduler is running without durable
// persistence (tier 3 of the recovery policy).
func (s *Scheduler) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// RegisterHandler associates payloadKind with h. Call before Resume/AddJob
// for kinds that may already be pending in the store.
func (s *Scheduler) RegisterHandler(payloadKind string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[payloadKind] = h
}

// AddJob adds or replaces the job with the given id (spec.md §4.8
// "replace-on-collision"), canceling any pending timer for the previous
// occupant of that ID.
func (s *Scheduler) AddJob(ctx context.Context, id string, fireAt time.Time, payloadKind string) error {
	job := Job{ID: id, FireAt: fireAt, PayloadKind: payloadKind}

	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if err := s.store.AddJob(job); err != nil {
		return err
	}

	s.scheduleTimer(ctx, job)
	return nil
}

// RemoveJob cancels id's timer (if pending) and deletes it from the store.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	return s.store.RemoveJob(id)
}

// GetJob returns the job with the given id, if it is still pending.
func (s *Scheduler) GetJob(id string) (Job, bool) {
	return s.store.GetJob(id)
}

// GetJobs returns every pending job.
func (s *Scheduler) GetJobs() []Job {
	return s.store.GetJobs()
}

// Resume re-arms a timer for every job already in the store — the
// "Resume" step of the recovery policy. Jobs whose FireAt has already
// passed fire immediately, per the "missed fire" policy.
func (s *Scheduler) Resume(ctx context.Context) {
	for _, job := range s.store.GetJobs() {
		s.scheduleTimer(ctx, job)
	}
}

func (s *Scheduler) scheduleTimer(ctx context.Context, job Job) {
	delay := job.FireAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	timer := time.AfterFunc(delay, func() {
		s.fire(ctx, job)
	})

	s.mu.Lock()
	s.timers[job.ID] = timer
	s.mu.Unlock()
}

func (s *Scheduler) fire(ctx context.Context, job Job) {
	s.mu.Lock()
	delete(s.timers, job.ID)
	handler, ok := s.handlers[job.PayloadKind]
	s.mu.Unlock()

	_ = s.store.RemoveJob(job.ID)

	if !ok {
		s.log.Warn("job %s fired with no handler registered for kind %q", job.ID, job.PayloadKind)
		return
	}
	handler(ctx, job)
}

// Close stops every pending timer and closes the underlying store.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = make(map[string]*time.Timer)
	s.mu.Unlock()
	return s.store.Close()
}
