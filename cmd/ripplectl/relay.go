package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay <device-name> <on|off>",
	Short: "Set a relay manually (spec.md §6 set_relay)",
	Long: `Set a single relay's state directly, bypassing scheduling.

Refused while a critical phase is active (any dosing pump commanded on) —
see internal/safety.IsInCriticalPhase.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		device := args[0]
		state, err := parseOnOff(args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		op := newOperatorCLI()
		if err := op.SetRelay(context.Background(), device, state); err != nil {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("✗"), err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %s -> %v\n", green("✓"), device, state)
	},
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true":
		return true, nil
	case "off", "false":
		return false, nil
	default:
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		}
		return false, fmt.Errorf("invalid state %q, expected on/off", s)
	}
}

func init() {
	rootCmd.AddCommand(relayCmd)
}
