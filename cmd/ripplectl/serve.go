package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lumina-grow/ripple/internal/audit"
	"github.com/lumina-grow/ripple/internal/controller"
	"github.com/lumina-grow/ripple/internal/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Ripple control loops",
	Long: `Start every control loop (nutrient, pH, sprinkler, mixing, water level),
resume the scheduler, and run the 10 s main tick until interrupted.

Runs the same checks as 'ripplectl doctor' first and refuses to start if
any of them fail.`,
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range runPreflight() {
			if c.err != nil {
				fmt.Fprintf(os.Stderr, "preflight check %q failed: %v\n", c.name, c.err)
				os.Exit(2)
			}
		}

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
			fmt.Fprintf(os.Stderr, "failed to construct controller: %v\n", err)
			os.Exit(2)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctrl.Start(ctx)
		fmt.Println("ripple running, press Ctrl+C to stop")

		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "control loop exited: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("ripple stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
