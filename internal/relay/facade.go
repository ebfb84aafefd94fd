// Package relay implements the actuator façade spec.md §4.9 describes: the
// single write point every relay command flows through, serializing bus
// access behind one process-wide mutex and caching each port's
// last-commanded state as the safety layer's "truth" (spec.md §3 "Relay/
// device model").
package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lumina-grow/ripple/internal/ports"
	"github.com/lumina-grow/ripple/internal/rlog"
	"github.com/lumina-grow/ripple/internal/types"
)

// Facade is the actuator façade. One Facade owns the bus mutex for the
// whole process — spec.md §5 "Shared-resource policy": "Actuator bus:
// exactly one writer at a time. A single process-wide mutex guards every
// command sent to the bus."
type Facade struct {
	busMu sync.Mutex // guards every bus write, in program order
	bus   ports.RelayBus

	assignments *Assignments

	stateMu sync.RWMutex
	state   map[string]bool // canonical device name -> last-commanded state

	log *rlog.Logger
}

// New returns a Facade writing through bus, resolving device names via
// assignments.
func New(bus ports.RelayBus, assignments *Assignments) *Facade {
	return &Facade{
		bus:         bus,
		assignments: assignments,
		state:       make(map[string]bool),
		log:         rlog.New("relay"),
	}
}

// SetRelay resolves device_name case-insensitively and writes state,
// returning an error on an unknown device or a bus failure (spec.md §4.9).
func (f *Facade) SetRelay(ctx context.Context, deviceName string, state bool) error {
	addr, ok := f.assignments.Resolve(deviceName)
	if !ok {
		return fmt.Errorf("relay: unknown device %q", deviceName)
	}

	f.busMu.Lock()
	err := f.bus.WritePort(ctx, addr.Board, addr.Index, state)
	f.busMu.Unlock()

	if err != nil {
		f.log.Error("set_relay %s -> %v failed: %v", deviceName, state, err)
		return fmt.Errorf("set_relay %s: %w", deviceName, err)
	}

	f.stateMu.Lock()
	f.state[canonicalKey(deviceName)] = state
	f.stateMu.Unlock()

	f.log.Info("set_relay %s -> %v", deviceName, state)
	return nil
}

// SetMultipleRelays atomically writes 1..16 consecutive ports on one board
// (spec.md §4.9 "used for starting A/B/C as one command when indices are
// contiguous, for latency and consistency"). deviceNames, if non-nil, must
// be the same length as states and is used only to update the
// last-commanded cache; pass nil when the caller doesn't track names.
func (f *Facade) SetMultipleRelays(ctx context.Context, board, startIndex int, states []bool, deviceNames []string) error {
	if len(states) == 0 || len(states) > types.PortsPerBoard {
		return fmt.Errorf("relay: invalid range length %d", len(states))
	}

	f.busMu.Lock()
	err := f.bus.WriteRange(ctx, board, startIndex, states)
	f.busMu.Unlock()

	if err != nil {
		f.log.Error("set_multiple_relays board=%d start=%d failed: %v", board, startIndex, err)
		return fmt.Errorf("set_multiple_relays board=%d start=%d: %w", board, startIndex, err)
	}

	if deviceNames != nil {
		f.stateMu.Lock()
		for i, name := range deviceNames {
			if name != "" {
				f.state[canonicalKey(name)] = states[i]
			}
		}
		f.stateMu.Unlock()
	}

	f.log.Info("set_multiple_relays board=%d start=%d states=%v", board, startIndex, states)
	return nil
}

// GetRelayState returns the last-commanded value for device_name — the
// safety "truth" spec.md §3 defines, never re-queried from hardware.
func (f *Facade) GetRelayState(deviceName string) (state bool, known bool) {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	state, known = f.state[canonicalKey(deviceName)]
	return state, known
}

// AnyOn reports whether any of the named devices is currently commanded on
// — used by the safety layer's critical-phase lock (spec.md §4.6).
func (f *Facade) AnyOn(deviceNames ...string) bool {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	for _, name := range deviceNames {
		if f.state[canonicalKey(name)] {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the last-commanded state map, keyed by
// lower-cased device name, for status reporting.
func (f *Facade) Snapshot() map[string]bool {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	out := make(map[string]bool, len(f.state))
	for k, v := range f.state {
		out[k] = v
	}
	return out
}

// AssignedDeviceNames returns every device name RELAY_ASSIGNMENTS declares,
// in original casing, sorted — the authoritative device list independent of
// whether anything has been commanded on that device yet. Use this, not
// Snapshot, to enumerate devices that may not have been written to.
func (f *Facade) AssignedDeviceNames() []string {
	return f.assignments.DeviceNames()
}

func canonicalKey(deviceName string) string {
	return strings.ToLower(deviceName)
}
