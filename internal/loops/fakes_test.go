package loops

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/config"
	"github.com/lumina-grow/ripple/internal/relay"
	"github.com/lumina-grow/ripple/internal/safety"
	"github.com/lumina-grow/ripple/internal/scheduler"
	"github.com/lumina-grow/ripple/internal/snapshot"
	"github.com/lumina-grow/ripple/internal/types"
)

// fakeClock is a controllable ports.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeRelayBus is an in-memory ports.RelayBus fake.
type fakeRelayBus struct {
	mu    sync.Mutex
	ports map[[2]int]bool
}

func newFakeRelayBus() *fakeRelayBus { return &fakeRelayBus{ports: map[[2]int]bool{}} }

func (b *fakeRelayBus) WritePort(_ context.Context, board, index int, state bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ports[[2]int{board, index}] = state
	return nil
}

func (b *fakeRelayBus) WriteRange(_ context.Context, board, startIndex int, states []bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range states {
		b.ports[[2]int{board, startIndex + i}] = s
	}
	return nil
}

// memFS is a minimal in-memory ports.FileStore fake.
type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFS() *memFS { return &memFS{files: map[string][]byte{}} }

func (m *memFS) AtomicWrite(path string, data []byte, _ uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.files[path] = cp
	return nil
}

func (m *memFS) Read(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return d, nil
}

func (m *memFS) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *memFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

const testAssignmentsYAML = `
schema_version: v1.0.0
devices:
  NutrientPumpA:
    board: 0
    index: 0
  NutrientPumpB:
    board: 0
    index: 1
  NutrientPumpC:
    board: 0
    index: 2
  pHUpPump:
    board: 0
    index: 3
  pHMinusPump:
    board: 0
    index: 4
  MixingPump:
    board: 0
    index: 5
  Sprinklers:
    board: 0
    index: 6
  ValveOutsideToTank:
    board: 0
    index: 7
  ValveTankToOutside:
    board: 0
    index: 8
`

func newTestFacade(t *testing.T) *relay.Facade {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay_assignments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testAssignmentsYAML), 0o644))
	a, err := relay.LoadAssignments(path)
	require.NoError(t, err)
	return relay.New(newFakeRelayBus(), a)
}

func writeTestConfig(t *testing.T, contents string) *config.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ripple.ini")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return config.New(path)
}

// testHarness bundles everything a loop test needs, constructed fresh per
// test so state never leaks between cases.
type testHarness struct {
	Deps  *Deps
	Clock *fakeClock
	Audit *audit.BufferedSink
}

func newTestHarness(t *testing.T, cfg *config.Store) *testHarness {
	t.Helper()
	clock := newFakeClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	snap := snapshot.New(newMemFS(), "snapshot.json")
	sink := audit.NewBufferedSink(64, nil)
	store := scheduler.NewMemoryStore()
	sched := scheduler.New(store, clock, false)

	guards := safety.NewGuards(
		safety.NewEmergencyLatch(newMemFS(), "emergency.flag"),
		safety.NewTimeoutMonitor(clock),
		safety.NewRuntimeBudget(newMemFS(), "budget.json", clock),
		safety.NewStuckSensorDetector(),
	)

	return &testHarness{
		Deps: &Deps{
			Config:    cfg,
			Snapshot:  snap,
			Relay:     newTestFacade(t),
			Scheduler: sched,
			Guards:    guards,
			Audit:     sink,
			Clock:     clock,
		},
		Clock: clock,
		Audit: sink,
	}
}

func (h *testHarness) seedReading(t *testing.T, kind types.SensorKind, value float64) {
	t.Helper()
	require.NoError(t, h.Deps.Snapshot.Write(kind, "", types.Reading{Value: &value, Timestamp: h.Clock.Now()}))
}
