package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lumina-grow/ripple/internal/ports"
	"github.com/lumina-grow/ripple/internal/relay"
	"github.com/lumina-grow/ripple/internal/scheduler"
)

// preflightCheck runs the checks original_source/server.py and main.py run
// before starting the main loop: data directory writable, job store
// openable, relay bus reachable. doctorCmd prints the full report; serveCmd
// runs the same checks silently and refuses to start on a hard failure.
type preflightCheck struct {
	name string
	err  error
}

func runPreflight() []preflightCheck {
	var checks []preflightCheck

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		checks = append(checks, preflightCheck{"data directory writable", err})
	} else {
		probe := dataDir + "/.doctor-probe"
		fs := ports.LocalFileStore{}
		err := fs.AtomicWrite(probe, []byte("ok"), 0o644)
		_ = fs.Delete(probe)
		checks = append(checks, preflightCheck{"data directory writable", err})
	}

	if _, err := relay.LoadAssignments(assignmentsPath()); err != nil {
		checks = append(checks, preflightCheck{"relay assignment map loads", err})
	} else {
		checks = append(checks, preflightCheck{"relay assignment map loads", nil})
	}

	store, degraded := scheduler.Open(jobStorePath())
	_ = store.Close()
	if degraded {
		checks = append(checks, preflightCheck{"job store openable", fmt.Errorf("degraded to in-memory store")})
	} else {
		checks = append(checks, preflightCheck{"job store openable", nil})
	}

	// The relay bus reachability check is intentionally a no-op here: the
	// real transport is a Modbus driver supplied by the host build
	// (spec.md §1 non-goal), and loggingRelayBus always succeeds.
	checks = append(checks, preflightCheck{"relay bus reachable", nil})

	return checks
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight health checks",
	Long: `Check that ripplectl can start: the data directory is writable, the
relay assignment map parses, and the job store opens cleanly. The relay bus
check always passes: the relay transport is supplied by the host build.

Exit codes:
  0 - all checks passed
  1 - one or more checks failed`,
	Run: func(cmd *cobra.Command, args []string) {
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Printf("%s %s\n\n", cyan("Data directory:"), dataDir)

		failed := 0
		for _, c := range runPreflight() {
			if c.err != nil {
				failed++
				fmt.Printf("  %s %s: %v\n", red("✗"), c.name, c.err)
			} else {
				fmt.Printf("  %s %s\n", green("✓"), c.name)
			}
		}

		fmt.Println()
		if failed > 0 {
			fmt.Printf("%s %d check(s) failed\n", red("✗"), failed)
			os.Exit(1)
		}
		fmt.Printf("%s all checks passed\n", green("✓"))
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
