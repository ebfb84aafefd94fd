package main

import (
	"fmt"
	"os"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/control"
	"github.com/lumina-grow/ripple/internal/controller"
	"github.com/lumina-grow/ripple/internal/ports"
)

// newOperatorCLI constructs a Controller against the on-disk state and
// returns its Operator, for the one-shot commands (relay, drain, emergency)
// that act directly on the running installation's files rather than
// talking to a live serve process — there is no IPC transport in scope
// (spec.md §1 Non-goal: "any user-facing application layer").
func newOperatorCLI() *control.Operator {
	ctrl, err := controller.New(controller.Deps{
		ConfigPath:        configPath(),
		AssignmentsPath:   assignmentsPath(),
		SnapshotPath:      snapshotPath(),
		EmergencyFlagPath: emergencyPath(),
		BudgetPath:        budgetPath(),
		JobStorePath:      jobStorePath(),
		FileStore:         ports.LocalFileStore{},
		RelayBus:          newLoggingRelayBus(),
		Clock:             ports.SystemClock{},
		AuditSink:         audit.NewBufferedSink(256, audit.NopSink{}),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open ripple state: %v\n", err)
		os.Exit(1)
	}
	return ctrl.Operator
}
