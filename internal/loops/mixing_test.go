package loops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-grow/ripple/internal/types"
)

const mixingCfg = `
[Mixing]
mixing_duration = 00:00:10
mixing_interval = 00:01:00
trigger_mixing_duration = 00:00:05
`

func TestMixingStartAtBootWhenDurationPositive(t *testing.T) {
	h := newTestHarness(t, writeTestConfig(t, mixingCfg))
	loop := NewMixingLoop(h.Deps)

	loop.Start(context.Background())

	state, known := h.Deps.Relay.GetRelayState(types.DeviceMixingPump)
	require.True(t, known)
	assert.True(t, state)
	_, exists := h.Deps.Scheduler.GetJob(JobMixingStop)
	assert.True(t, exists)
}

func TestMixingStopSchedulesNextStart(t *testing.T) {
	h := newTestHarness(t, writeTestConfig(t, mixingCfg))
	loop := NewMixingLoop(h.Deps)

	loop.Start(context.Background())
	loop.OnStop(context.Background())

	state, _ := h.Deps.Relay.GetRelayState(types.DeviceMixingPump)
	assert.False(t, state)
	_, exists := h.Deps.Scheduler.GetJob(JobMixingStart)
	assert.True(t, exists)
}

func TestExtendForDoseStartsMixingWhenNotRunning(t *testing.T) {
	h := newTestHarness(t, writeTestConfig(t, mixingCfg))
	loop := NewMixingLoop(h.Deps)

	loop.ExtendForDose(context.Background(), 5*time.Second)

	state, known := h.Deps.Relay.GetRelayState(types.DeviceMixingPump)
	require.True(t, known)
	assert.True(t, state)
}

func TestExtendForDoseIsIdempotentWhenAlreadyCoveringTrigger(t *testing.T) {
	h := newTestHarness(t, writeTestConfig(t, mixingCfg))
	loop := NewMixingLoop(h.Deps)

	loop.Start(context.Background()) // running for 10s, well past the 5s trigger
	before, _ := h.Deps.Scheduler.GetJob(JobMixingStop)

	loop.ExtendForDose(context.Background(), 5*time.Second)

	after, exists := h.Deps.Scheduler.GetJob(JobMixingStop)
	require.True(t, exists)
	assert.Equal(t, before.FireAt, after.FireAt)
}

func TestExtendForDoseExtendsWhenRunningOutSoon(t *testing.T) {
	h := newTestHarness(t, writeTestConfig(t, mixingCfg))
	loop := NewMixingLoop(h.Deps)

	loop.Start(context.Background()) // stop scheduled at now+10s
	h.Clock.Advance(8 * time.Second) // 2s remaining, less than the 5s trigger

	loop.ExtendForDose(context.Background(), 5*time.Second)

	job, exists := h.Deps.Scheduler.GetJob(JobMixingStop)
	require.True(t, exists)
	assert.Equal(t, h.Clock.Now().Add(5*time.Second), job.FireAt)
}
