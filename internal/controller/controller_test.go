package controller

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/config"
	"github.com/lumina-grow/ripple/internal/loops"
	"github.com/lumina-grow/ripple/internal/relay"
	"github.com/lumina-grow/ripple/internal/rlog"
	"github.com/lumina-grow/ripple/internal/safety"
	"github.com/lumina-grow/ripple/internal/scheduler"
	"github.com/lumina-grow/ripple/internal/snapshot"
	"github.com/lumina-grow/ripple/internal/types"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

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

const testConfigINI = `
[EC]
ec_target = 1.0
ec_deadband = 0.1

[pH]
ph_target = 6.5
ph_deadband = 0.4
ph_min = 5.0
ph_max = 7.0

[NutrientPump]
nutrient_pump_on_duration = 00:00:05
nutrient_pump_wait_duration = 00:01:00
abc_ratio = 1:1:0
ph_pump_on_duration = 00:00:02
ph_pump_wait_duration = 00:02:00

[Sprinkler]
sprinkler_scheduling_enabled = true
sprinkler_on_at_startup = false
sprinkler_on_duration = 00:00:10
sprinkler_wait_duration = 00:01:00

[Mixing]
mixing_duration = 00:00:10
mixing_interval = 00:01:00
trigger_mixing_duration = 00:00:05

[WaterLevel]
water_level_target = 80
water_level_deadband = 10
water_level_min = 50
water_level_max = 100
water_level_control_enabled = true
tank_dump_safety_floor = 30
tank_dump_max_duration_seconds = 00:30:00
`

// newTestController builds a Controller the same way New does, but with
// in-memory fakes throughout so tests never touch the filesystem or a real
// SQLite file.
func newTestController(t *testing.T, configText string) (*Controller, *fakeClock) {
	t.Helper()

	assignPath := filepath.Join(t.TempDir(), "relay_assignments.yaml")
	require.NoError(t, os.WriteFile(assignPath, []byte(testAssignmentsYAML), 0o644))
	assignments, err := relay.LoadAssignments(assignPath)
	require.NoError(t, err)
	facade := relay.New(newFakeRelayBus(), assignments)

	cfgPath := filepath.Join(t.TempDir(), "ripple.ini")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configText), 0o644))
	cfg := config.New(cfgPath)

	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	snap := snapshot.New(newMemFS(), "snapshot.json")
	sink := audit.NewBufferedSink(64, nil)
	sched := scheduler.New(scheduler.NewMemoryStore(), clock, false)

	guards := safety.NewGuards(
		safety.NewEmergencyLatch(newMemFS(), "emergency.flag"),
		safety.NewTimeoutMonitor(clock),
		safety.NewRuntimeBudget(newMemFS(), "budget.json", clock),
		safety.NewStuckSensorDetector(),
	)

	ld := &loops.Deps{
		Config:    cfg,
		Snapshot:  snap,
		Relay:     facade,
		Scheduler: sched,
		Guards:    guards,
		Audit:     sink,
		Clock:     clock,
	}
	mixing := loops.NewMixingLoop(ld)
	nutrient := loops.NewNutrientLoop(ld, mixing)
	ph := loops.NewPHLoop(ld, mixing)
	sprinkler := loops.NewSprinklerLoop(ld)
	water := loops.NewWaterLevelLoop(ld)

	c := &Controller{
		Config:     cfg,
		Snapshot:   snap,
		Relay:      facade,
		Scheduler:  sched,
		Guards:     guards,
		Audit:      sink,
		Clock:      clock,
		Nutrient:   nutrient,
		PH:         ph,
		Sprinkler:  sprinkler,
		Mixing:     mixing,
		WaterLevel: water,
		log:        rlog.New("controller_test"),
	}

	sched.RegisterHandler(loops.JobNutrientStart, func(ctx context.Context, _ scheduler.Job) { nutrient.OnStart(ctx) })
	sched.RegisterHandler(loops.JobNutrientStop, func(ctx context.Context, _ scheduler.Job) { nutrient.OnStop(ctx) })
	sched.RegisterHandler(loops.JobPHStart, func(ctx context.Context, _ scheduler.Job) { ph.OnStart(ctx) })
	sched.RegisterHandler(loops.JobPHStop, func(ctx context.Context, _ scheduler.Job) { ph.OnStop(ctx) })
	sched.RegisterHandler(loops.JobSprinklerStart, func(ctx context.Context, _ scheduler.Job) { sprinkler.OnStart(ctx) })
	sched.RegisterHandler(loops.JobSprinklerStop, func(ctx context.Context, _ scheduler.Job) { sprinkler.OnStop(ctx) })
	sched.RegisterHandler(loops.JobMixingStart, func(ctx context.Context, _ scheduler.Job) { mixing.OnStart(ctx) })
	sched.RegisterHandler(loops.JobMixingStop, func(ctx context.Context, _ scheduler.Job) { mixing.OnStop(ctx) })
	sched.RegisterHandler(loops.JobWaterLevelCheck, func(ctx context.Context, _ scheduler.Job) { water.OnCheck(ctx) })

	return c, clock
}

func TestStartForcesPHOffAndBeginsMixingCycle(t *testing.T) {
	c, _ := newTestController(t, testConfigINI)

	c.Start(context.Background())

	upState, _ := c.Relay.GetRelayState(types.DevicePHUpPump)
	downState, _ := c.Relay.GetRelayState(types.DevicePHDownPump)
	assert.False(t, upState)
	assert.False(t, downState)

	mixState, known := c.Relay.GetRelayState(types.DeviceMixingPump)
	require.True(t, known)
	assert.True(t, mixState)
}

func TestStartSelfHealsEmptyNutrientSchedule(t *testing.T) {
	c, _ := newTestController(t, testConfigINI)

	c.Start(context.Background())

	_, exists := c.Scheduler.GetJob(loops.JobNutrientStart)
	assert.True(t, exists)
}

func TestHealthCheckDoesNotDuplicateExistingSchedule(t *testing.T) {
	c, clock := newTestController(t, testConfigINI)
	c.Start(context.Background())

	before, _ := c.Scheduler.GetJob(loops.JobNutrientStart)
	clock.now = clock.now.Add(time.Minute)
	c.healthCheck(context.Background())

	after, exists := c.Scheduler.GetJob(loops.JobNutrientStart)
	require.True(t, exists)
	assert.Equal(t, before.FireAt, after.FireAt)
}

func TestApplyPlumbingStartupSkipsLoopOwnedDevices(t *testing.T) {
	c, _ := newTestController(t, testConfigINI+"\n[PLUMBING]\nValveOutsideToTank_on_at_startup = true\n")

	c.applyPlumbingStartup(context.Background())

	valveState, known := c.Relay.GetRelayState(types.DeviceValveOutsideToTank)
	require.True(t, known)
	assert.True(t, valveState)

	// Sprinklers and MixingPump are owned by their own Start() sequences,
	// not PLUMBING — applyPlumbingStartup must not touch them.
	_, known = c.Relay.GetRelayState(types.DeviceSprinklers)
	assert.False(t, known)
}

// TestApplyPlumbingStartupEnumeratesFromAssignmentsNotCache guards against
// enumerating the last-commanded-state cache (empty on a cold boot) instead
// of the assignment map: a device no SetRelay call has ever touched must
// still get its PLUMBING.<device>_on_at_startup value applied.
func TestApplyPlumbingStartupEnumeratesFromAssignmentsNotCache(t *testing.T) {
	c, _ := newTestController(t, testConfigINI+"\n[PLUMBING]\nValveTankToOutside_on_at_startup = true\n")

	_, knownBefore := c.Relay.GetRelayState(types.DeviceValveTankToOutside)
	require.False(t, knownBefore, "precondition: nothing has been commanded yet")

	c.applyPlumbingStartup(context.Background())

	state, known := c.Relay.GetRelayState(types.DeviceValveTankToOutside)
	require.True(t, known)
	assert.True(t, state)
}

// TestApplyPlumbingStartupNeverOverridesPHForceOff guards spec.md §4.2's
// "forced OFF at process boot regardless of config" invariant: even a true
// PLUMBING.*_on_at_startup for a pH pump must never turn it on.
func TestApplyPlumbingStartupNeverOverridesPHForceOff(t *testing.T) {
	c, _ := newTestController(t,
		testConfigINI+"\n[PLUMBING]\npHUpPump_on_at_startup = true\npHMinusPump_on_at_startup = true\n")

	c.PH.ForceOff(context.Background())
	c.applyPlumbingStartup(context.Background())

	upState, known := c.Relay.GetRelayState(types.DevicePHUpPump)
	require.True(t, known)
	assert.False(t, upState)

	downState, known := c.Relay.GetRelayState(types.DevicePHDownPump)
	require.True(t, known)
	assert.False(t, downState)
}

func TestTickTriggersEmergencyOnTwoInvalidSensors(t *testing.T) {
	c, _ := newTestController(t, testConfigINI)

	c.tick(context.Background())

	assert.True(t, c.Guards.Emergency.IsActive())
}

func TestTickDoesNotTriggerEmergencyWithOnlyOneInvalidSensor(t *testing.T) {
	c, clock := newTestController(t, testConfigINI)

	now := clock.Now()
	require.NoError(t, c.Snapshot.Write(types.SensorEC, "", types.Reading{Value: floatPtr(1.0), Timestamp: now}))
	require.NoError(t, c.Snapshot.Write(types.SensorPH, "", types.Reading{Value: floatPtr(6.5), Timestamp: now}))
	// water level left unset -> invalid, but that's only one of three

	c.tick(context.Background())

	assert.False(t, c.Guards.Emergency.IsActive())
}

func floatPtr(v float64) *float64 { return &v }

func TestReloadMixingZeroDurationStopsPumpAndDoesNotReschedule(t *testing.T) {
	c, _ := newTestController(t, testConfigINI)
	c.Mixing.Start(context.Background())

	zeroed := `
[Mixing]
mixing_duration = 00:00:00
mixing_interval = 00:01:00
trigger_mixing_duration = 00:00:05
`
	cfgPath := c.Config.Path()
	require.NoError(t, os.WriteFile(cfgPath, []byte(testConfigINI+zeroed), 0o644))

	c.Reload(context.Background(), map[string]struct{}{config.SectionMixing: {}})

	state, _ := c.Relay.GetRelayState(types.DeviceMixingPump)
	assert.False(t, state)
	_, exists := c.Scheduler.GetJob(loops.JobMixingStart)
	assert.False(t, exists)
}

func TestReloadNutrientPumpDisablingStopsAndCancelsJobs(t *testing.T) {
	c, _ := newTestController(t, testConfigINI)
	c.Scheduler.AddJob(context.Background(), loops.JobNutrientStart, c.Clock.Now(), loops.JobNutrientStart)

	disabled := `
[EC]
ec_target = 1.0
ec_deadband = 0.1

[pH]
ph_target = 6.5
ph_deadband = 0.4
ph_min = 5.0
ph_max = 7.0

[NutrientPump]
nutrient_pump_on_duration = 00:00:00
nutrient_pump_wait_duration = 00:01:00
abc_ratio = 1:1:0
ph_pump_on_duration = 00:00:02
ph_pump_wait_duration = 00:02:00
`
	require.NoError(t, os.WriteFile(c.Config.Path(), []byte(disabled), 0o644))

	c.Reload(context.Background(), map[string]struct{}{config.SectionNutrientPump: {}})

	_, exists := c.Scheduler.GetJob(loops.JobNutrientStart)
	assert.False(t, exists)
}
