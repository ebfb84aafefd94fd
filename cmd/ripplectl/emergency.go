package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var emergencyCmd = &cobra.Command{
	Use:   "emergency",
	Short: "Emergency shutdown commands (spec.md §6 clear_emergency_shutdown)",
}

var emergencyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear an active emergency shutdown",
	Long: `Deletes the emergency flag file, re-arming automatic control. Operator-
only: a loop cannot clear its own emergency latch (spec.md §4.6).`,
	Run: func(cmd *cobra.Command, args []string) {
		op := newOperatorCLI()
		if !op.Guards.Emergency.IsActive() {
			fmt.Println("no emergency shutdown active")
			return
		}
		if err := op.ClearEmergencyShutdown(); err != nil {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("✗"), err)
			os.Exit(1)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s emergency shutdown cleared\n", green("✓"))
	},
}

func init() {
	emergencyCmd.AddCommand(emergencyClearCmd)
	rootCmd.AddCommand(emergencyCmd)
}
