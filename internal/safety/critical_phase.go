package safety

import (
	"github.com/lumina-grow/ripple/internal/relay"
	"github.com/lumina-grow/ripple/internal/types"
)

// IsInCriticalPhase reports whether any dosing pump is currently commanded
// on, per original_source/src/critical_phase_lock.py. r may be nil, which
// is treated as "not in critical phase" (used by tests that exercise other
// code paths without a relay façade).
func IsInCriticalPhase(r *relay.Facade) bool {
	if r == nil {
		return false
	}
	return r.AnyOn(types.DosingPumps...)
}

// CanAcceptNewCommand reports whether an operator command may be accepted
// right now (spec.md §4.6: "any dosing pump ON blocks operator commands").
func CanAcceptNewCommand(r *relay.Facade) bool {
	return !IsInCriticalPhase(r)
}
