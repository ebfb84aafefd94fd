package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{now: start} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func TestAddJobReplacesOnCollision(t *testing.T) {
	store := NewMemoryStore()
	s := New(store, newFakeClock(time.Now()), false)
	defer s.Close()

	require.NoError(t, s.AddJob(context.Background(), "nutrient_start", time.Now().Add(time.Hour), "nutrient_start"))
	require.NoError(t, s.AddJob(context.Background(), "nutrient_start", time.Now().Add(2*time.Hour), "nutrient_start"))

	jobs := s.GetJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "nutrient_start", jobs[0].ID)
}

func TestFireInvokesRegisteredHandler(t *testing.T) {
	store := NewMemoryStore()
	s := New(store, newFakeClock(time.Now()), false)
	defer s.Close()

	fired := make(chan Job, 1)
	s.RegisterHandler("mixing_stop", func(_ context.Context, job Job) {
		fired <- job
	})

	require.NoError(t, s.AddJob(context.Background(), "mixing_stop_1", time.Now().Add(10*time.Millisecond), "mixing_stop"))

	select {
	case job := <-fired:
		assert.Equal(t, "mixing_stop_1", job.ID)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	_, ok := s.GetJob("mixing_stop_1")
	assert.False(t, ok, "fired job should be removed from the store")
}

func TestRemoveJobCancelsPendingTimer(t *testing.T) {
	store := NewMemoryStore()
	s := New(store, newFakeClock(time.Now()), false)
	defer s.Close()

	fired := make(chan Job, 1)
	s.RegisterHandler("sprinkler_stop", func(_ context.Context, job Job) { fired <- job })

	require.NoError(t, s.AddJob(context.Background(), "sprinkler_stop_1", time.Now().Add(30*time.Millisecond), "sprinkler_stop"))
	require.NoError(t, s.RemoveJob("sprinkler_stop_1"))

	select {
	case <-fired:
		t.Fatal("handler fired after job removal")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestResumeFiresMissedJobsImmediately(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.AddJob(Job{ID: "ph_stop_1", FireAt: time.Now().Add(-time.Minute), PayloadKind: "ph_stop"}))

	s := New(store, newFakeClock(time.Now()), false)
	defer s.Close()

	fired := make(chan Job, 1)
	s.RegisterHandler("ph_stop", func(_ context.Context, job Job) { fired <- job })

	s.Resume(context.Background())

	select {
	case job := <-fired:
		assert.Equal(t, "ph_stop_1", job.ID)
	case <-time.After(time.Second):
		t.Fatal("missed job was not fired on resume")
	}
}

func TestHealthCheckReinitializesMissingSchedule(t *testing.T) {
	store := NewMemoryStore()
	s := New(store, newFakeClock(time.Now()), false)
	defer s.Close()

	reinitialized := false
	items := []HealthCheckItem{
		{
			Name:   "nutrient",
			JobIDs: []string{"nutrient_start", "nutrient_stop"},
			Reinitialize: func(context.Context) {
				reinitialized = true
			},
		},
	}

	s.RunHealthCheck(context.Background(), items)
	assert.True(t, reinitialized)
}

func TestHealthCheckSkipsActuatorWithPendingJob(t *testing.T) {
	store := NewMemoryStore()
	s := New(store, newFakeClock(time.Now()), false)
	defer s.Close()
	require.NoError(t, s.AddJob(context.Background(), "sprinkler_start", time.Now().Add(time.Hour), "sprinkler_start"))

	reinitialized := false
	items := []HealthCheckItem{
		{
			Name:   "sprinkler",
			JobIDs: []string{"sprinkler_start", "sprinkler_stop"},
			Reinitialize: func(context.Context) {
				reinitialized = true
			},
		},
	}

	s.RunHealthCheck(context.Background(), items)
	assert.False(t, reinitialized)
}
