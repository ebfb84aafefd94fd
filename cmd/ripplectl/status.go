package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sensor targets, relay states, and emergency status",
	Run: func(cmd *cobra.Command, args []string) {
		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		op := newOperatorCLI()

		fmt.Printf("%s\n\n", cyan("=== Ripple Status ==="))

		if reason, active := op.Guards.Emergency.Reason(); active {
			fmt.Printf("%s EMERGENCY SHUTDOWN ACTIVE: %s\n\n", red("✗"), reason)
		} else {
			fmt.Printf("%s no emergency shutdown\n\n", green("✓"))
		}

		targets := op.GetSensorTargets()
		fmt.Println("Sensor targets:")
		fmt.Printf("  EC: target=%.2f deadband=%.2f min=%.2f max=%.2f\n",
			targets.EC.Target, targets.EC.Deadband, targets.EC.Min, targets.EC.Max)
		fmt.Printf("  pH: target=%.2f deadband=%.2f min=%.2f max=%.2f\n\n",
			targets.PH.Target, targets.PH.Deadband, targets.PH.Min, targets.PH.Max)

		fmt.Println("Relays:")
		for name, on := range op.Relay.Snapshot() {
			state := "off"
			if on {
				state = "on"
			}
			fmt.Printf("  %-24s %s\n", name, state)
		}

		if status := op.GetDrainStatus(); status.Active {
			fmt.Printf("\nDrain active: mode=%s elapsed=%.0fs\n", status.Mode, status.ElapsedSeconds)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
