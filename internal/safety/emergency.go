package safety

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/ports"
	"github.com/lumina-grow/ripple/internal/relay"
	"github.com/lumina-grow/ripple/internal/rlog"
	"github.com/lumina-grow/ripple/internal/types"
)

// EmergencyLatch is the emergency-shutdown latch spec.md §4.6 describes:
// presence of a flag file is the entire state. Grounded on
// original_source/src/emergency_shutdown.py, which stores the reason as a
// single line in the flag file and treats Path.exists() as the active
// check.
type EmergencyLatch struct {
	fs       ports.FileStore
	flagPath string
	log      *rlog.Logger
}

// NewEmergencyLatch returns a latch backed by the flag file at flagPath.
func NewEmergencyLatch(fs ports.FileStore, flagPath string) *EmergencyLatch {
	return &EmergencyLatch{fs: fs, flagPath: flagPath, log: rlog.New("emergency")}
}

// IsActive reports whether the emergency flag is currently set.
func (l *EmergencyLatch) IsActive() bool {
	return l.fs.Exists(l.flagPath)
}

// Trigger stops every dosing pump, writes the flag file with reason, and
// emits an alarm audit event. It does not return an error on a relay
// failure — spec.md §4.6 requires the flag to be written regardless, since
// the flag itself is the safety-critical side effect.
func (l *EmergencyLatch) Trigger(ctx context.Context, reason string, r *relay.Facade, sink audit.Sink) error {
	l.log.Error("EMERGENCY SHUTDOWN TRIGGERED: %s", reason)

	if r != nil {
		for _, pump := range types.DosingPumps {
			if err := r.SetRelay(ctx, pump, false); err != nil {
				l.log.Error("emergency shutdown: failed to stop %s: %v", pump, err)
			}
		}
	}

	body := fmt.Sprintf("Emergency shutdown: %s\n", reason)
	if err := l.fs.AtomicWrite(l.flagPath, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write emergency flag: %w", err)
	}

	l.log.Error("emergency flag created at %s; manual intervention required", l.flagPath)

	if sink != nil {
		ev := audit.New("system", audit.EventAlarm, "emergency_shutdown", audit.SourceAutonomous).
			WithDetails(fmt.Sprintf("EMERGENCY SHUTDOWN: %s", reason))
		_ = sink.Append(ctx, ev)
	}

	return nil
}

// Clear removes the emergency flag, if present — the manual-intervention
// API call spec.md §6 exposes as clear_emergency_shutdown.
func (l *EmergencyLatch) Clear() error {
	if !l.fs.Exists(l.flagPath) {
		return nil
	}
	if err := l.fs.Delete(l.flagPath); err != nil {
		return fmt.Errorf("clear emergency flag: %w", err)
	}
	l.log.Info("emergency shutdown flag cleared manually")
	return nil
}

// Reason reads the single-line reason stored in the flag file, if any.
func (l *EmergencyLatch) Reason() (string, bool) {
	data, err := l.fs.Read(l.flagPath)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}
