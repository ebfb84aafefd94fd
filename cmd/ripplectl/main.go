// Command ripplectl is the operator CLI for the Ripple fertigation
// controller: it boots the control loops (serve), runs pre-flight health
// checks (doctor), and exposes the operator command surface
// (internal/control.Operator) for manual intervention (relay, drain,
// emergency, console).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// dataDir holds every mutable file Ripple owns: the INI config, the relay
// assignment map, the sensor snapshot, the scheduler's job store, the
// emergency flag and the runtime budget ledger. One flag controls all of
// them, the way the donor's cmd/vc controls everything off a single
// discovered database path.
var dataDir string

var rootCmd = &cobra.Command{
	Use:   "ripplectl",
	Short: "Operate the Ripple fertigation controller",
	Long: `ripplectl starts and supervises the Ripple control loops, and gives
an operator a local command surface for the actions spec.md §6 defines:
inspecting and overriding relays, running a manual tank drain, clearing an
emergency shutdown, and reading back sensor targets.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", filepath.Join(home, ".ripple"),
		"directory holding ripple.ini, relay_assignments.yaml, and runtime state")
}

func configPath() string      { return filepath.Join(dataDir, "ripple.ini") }
func assignmentsPath() string { return filepath.Join(dataDir, "relay_assignments.yaml") }
func snapshotPath() string    { return filepath.Join(dataDir, "snapshot.json") }
func emergencyPath() string   { return filepath.Join(dataDir, "emergency.flag") }
func budgetPath() string      { return filepath.Join(dataDir, "budget.json") }
func jobStorePath() string    { return filepath.Join(dataDir, "jobs.db") }
