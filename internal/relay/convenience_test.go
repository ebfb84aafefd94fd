package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-grow/ripple/internal/types"
)

func TestSetNutrientPumpsWritesContiguousRangeWhenAssignmentsAreContiguous(t *testing.T) {
	bus := newFakeBus()
	a := writeAssignments(t, sampleAssignments)
	f := New(bus, a)

	require.NoError(t, f.SetNutrientPumps(context.Background(), true))
	assert.Equal(t, 1, bus.writes, "expected a single contiguous range write")

	for _, name := range []string{types.DeviceNutrientPumpA, types.DeviceNutrientPumpB, types.DeviceNutrientPumpC} {
		state, known := f.GetRelayState(name)
		require.True(t, known)
		assert.True(t, state)
	}
}

func TestSetNutrientPumpsFallsBackWhenNotContiguous(t *testing.T) {
	bus := newFakeBus()
	a := writeAssignments(t, `
schema_version: v1.0.0
devices:
  NutrientPumpA:
    board: 0
    index: 0
  NutrientPumpB:
    board: 1
    index: 0
  NutrientPumpC:
    board: 2
    index: 0
`)
	f := New(bus, a)

	require.NoError(t, f.SetNutrientPumps(context.Background(), true))
	assert.Equal(t, 3, bus.writes)
}

func TestSetNutrientPumpRejectsUnknownLetter(t *testing.T) {
	bus := newFakeBus()
	a := writeAssignments(t, sampleAssignments)
	f := New(bus, a)

	err := f.SetNutrientPump(context.Background(), "Z", true)
	assert.Error(t, err)
}

func TestConvenienceMethodsResolveExpectedDevices(t *testing.T) {
	bus := newFakeBus()
	a := writeAssignments(t, sampleAssignments)
	f := New(bus, a)
	ctx := context.Background()

	require.NoError(t, f.SetSprinklers(ctx, true))
	state, known := f.GetRelayState(types.DeviceSprinklers)
	require.True(t, known)
	assert.True(t, state)

	require.NoError(t, f.SetPHPlusPump(ctx, true))
	state, known = f.GetRelayState(types.DevicePHUpPump)
	require.True(t, known)
	assert.True(t, state)
}
