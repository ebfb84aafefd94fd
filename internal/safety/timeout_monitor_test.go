package safety

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-grow/ripple/internal/relay"
	"github.com/lumina-grow/ripple/internal/types"
)

func newTestFacade(t *testing.T) *relay.Facade {
	t.Helper()
	return relay.New(newFakeRelayBus(), loadTestAssignments(t))
}

func TestTimeoutMonitorLetsPumpsRunWithinLimit(t *testing.T) {
	clock := newFakeClock(time.Now())
	m := NewTimeoutMonitor(clock)
	m.StartPump(types.DeviceNutrientPumpA, PumpHardTimeout)

	clock.Advance(10 * time.Second)
	latch := NewEmergencyLatch(newMemFS(), "emergency.flag")
	m.CheckTimeouts(context.Background(), nil, latch, nil)

	assert.False(t, latch.IsActive())
}

func TestTimeoutMonitorTriggersEmergencyOnOverrun(t *testing.T) {
	clock := newFakeClock(time.Now())
	m := NewTimeoutMonitor(clock)
	m.StartPump(types.DeviceNutrientPumpA, PumpHardTimeout)

	clock.Advance(PumpHardTimeout + time.Second)

	fs := newMemFS()
	latch := NewEmergencyLatch(fs, "emergency.flag")
	r := newTestFacade(t)
	require.NoError(t, r.SetRelay(context.Background(), types.DeviceNutrientPumpA, true))

	m.CheckTimeouts(context.Background(), r, latch, nil)

	assert.True(t, latch.IsActive())
	state, known := r.GetRelayState(types.DeviceNutrientPumpA)
	require.True(t, known)
	assert.False(t, state)
}

func TestStopPumpPreventsTimeoutTrigger(t *testing.T) {
	clock := newFakeClock(time.Now())
	m := NewTimeoutMonitor(clock)
	m.StartPump(types.DeviceNutrientPumpA, PumpHardTimeout)
	m.StopPump(types.DeviceNutrientPumpA)

	clock.Advance(PumpHardTimeout + time.Second)
	latch := NewEmergencyLatch(newMemFS(), "emergency.flag")
	m.CheckTimeouts(context.Background(), nil, latch, nil)

	assert.False(t, latch.IsActive())
}
