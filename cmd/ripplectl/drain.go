package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lumina-grow/ripple/internal/loops"
)

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Manual tank drain commands (spec.md §6 start_drain/stop_drain/get_drain_status)",
}

var drainStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a manual drain",
	Run: func(cmd *cobra.Command, args []string) {
		mode, _ := cmd.Flags().GetString("mode")
		target, _ := cmd.Flags().GetFloat64("target")
		amount, _ := cmd.Flags().GetFloat64("amount")
		duration, _ := cmd.Flags().GetInt("duration")

		req := loops.DrainRequest{Mode: loops.DrainMode(mode)}
		if cmd.Flags().Changed("target") {
			req.TargetLevel = &target
		}
		if cmd.Flags().Changed("amount") {
			req.DrainAmount = &amount
		}
		if cmd.Flags().Changed("duration") {
			req.DurationSeconds = &duration
		}

		op := newOperatorCLI()
		if err := op.StartDrain(context.Background(), req); err != nil {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("✗"), err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s drain started (%s)\n", green("✓"), mode)
	},
}

var drainStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active drain",
	Run: func(cmd *cobra.Command, args []string) {
		reason, _ := cmd.Flags().GetString("reason")
		op := newOperatorCLI()
		op.StopDrain(context.Background(), reason)
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s drain stopped\n", green("✓"))
	},
}

var drainStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current drain status",
	Run: func(cmd *cobra.Command, args []string) {
		op := newOperatorCLI()
		status := op.GetDrainStatus()
		if !status.Active {
			fmt.Println("no drain active")
			return
		}
		fmt.Printf("mode: %s\ntarget level: %.1f\nstarted at: %s\nelapsed: %.0fs\n",
			status.Mode, status.TargetLevel, status.StartedAt.Format("15:04:05"), status.ElapsedSeconds)
	},
}

func init() {
	drainStartCmd.Flags().String("mode", string(loops.DrainModeDrain), "drain|flush|full_drain")
	drainStartCmd.Flags().Float64("target", 0, "target tank level to drain to")
	drainStartCmd.Flags().Float64("amount", 0, "fixed amount to drain")
	drainStartCmd.Flags().Int("duration", 0, "fixed drain duration in seconds")
	drainStopCmd.Flags().StringP("reason", "r", "operator_requested", "reason recorded in the audit log")

	drainCmd.AddCommand(drainStartCmd, drainStopCmd, drainStatusCmd)
	rootCmd.AddCommand(drainCmd)
}
