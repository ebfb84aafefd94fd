package safety

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumina-grow/ripple/internal/relay"
)

// fakeRelayBus is a minimal in-memory ports.RelayBus for safety-package
// tests that need a real relay.Facade wired to a recording bus.
type fakeRelayBus struct {
	ports map[[2]int]bool
}

func newFakeRelayBus() *fakeRelayBus { return &fakeRelayBus{ports: map[[2]int]bool{}} }

func (b *fakeRelayBus) WritePort(_ context.Context, board, index int, state bool) error {
	b.ports[[2]int{board, index}] = state
	return nil
}

func (b *fakeRelayBus) WriteRange(_ context.Context, board, startIndex int, states []bool) error {
	for i, s := range states {
		b.ports[[2]int{board, startIndex + i}] = s
	}
	return nil
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
    board: 1
    index: 0
  pHMinusPump:
    board: 1
    index: 1
  MixingPump:
    board: 1
    index: 2
  Sprinklers:
    board: 1
    index: 3
  ValveOutsideToTank:
    board: 1
    index: 4
  ValveTankToOutside:
    board: 1
    index: 5
`

func loadTestAssignments(t *testing.T) *relay.Assignments {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay_assignments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testAssignmentsYAML), 0o644))
	a, err := relay.LoadAssignments(path)
	require.NoError(t, err)
	return a
}
