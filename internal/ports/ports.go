// Package ports defines the boundary interfaces spec.md §6 lists as
// "ports the core CONSUMES" — collaborators supplied by the host process
// that are explicitly out of scope for this module (Modbus wire protocol,
// log rotation, REST transport, upstream audit-event upload). Ripple's
// control loops, safety layer and scheduler depend only on these
// interfaces, never on a concrete transport.
package ports

import (
	"context"
	"time"
)

// Clock supplies monotonic and wall-clock time to the scheduler and control
// loops, so tests can inject a fake clock (spec.md §6 "Clock" port).
type Clock interface {
	Now() time.Time
}

// SystemClock is the Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// SensorBus is the Modbus RTU transport the host supplies (spec.md §6).
// Drivers on the other side of this port turn raw register reads into
// types.Reading values written to the sensor snapshot; the wire protocol
// itself is out of scope here.
type SensorBus interface {
	ReadHoldingRegisters(ctx context.Context, port string, address, count int, slaveAddr byte, baudRate int, timeout time.Duration) ([]uint16, error)
	SendCommand(ctx context.Context, port string, payload []byte) (commandID string, err error)
}

// FileStore is the atomic file primitive the sensor snapshot, runtime
// history and emergency flag are built on (spec.md §6).
type FileStore interface {
	AtomicWrite(path string, data []byte, mode uint32) error
	Read(path string) ([]byte, error)
	Delete(path string) error
	Exists(path string) bool
}

// ConfigReloadSource notifies the core of changed INI sections, debounced
// by the host (spec.md §6, §4.7 "Hot reload"). The host is typically a file
// watcher; the watch mechanism itself is out of scope.
type ConfigReloadSource interface {
	// Subscribe registers a callback invoked with the set of changed
	// section names whenever the host detects a config file change.
	Subscribe(onChanged func(changedSections map[string]struct{}))
}

// AuditSink is the at-least-once local audit append the host eventually
// batch-uploads to the aggregator (spec.md §6). Event shape lives in
// package audit.
type AuditSink interface {
	Append(ctx context.Context, event interface{}) error
}
