package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lumina-grow/ripple/internal/control"
	"github.com/lumina-grow/ripple/internal/loops"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive operator shell",
	Long: `Open a local REPL over the operator command surface (spec.md §6) for
maintenance: set_relay, start_drain/stop_drain, clear_emergency_shutdown,
and reading back status. Commands that would be rejected during a critical
phase behave exactly as they would from 'ripplectl relay'.`,
	Run: func(cmd *cobra.Command, args []string) {
		runConsole()
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func consoleCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("relay"),
		readline.PcItem("drain",
			readline.PcItem("start"),
			readline.PcItem("stop"),
			readline.PcItem("status"),
		),
		readline.PcItem("emergency",
			readline.PcItem("clear"),
		),
		readline.PcItem("status"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

func runConsole() {
	op := newOperatorCLI()
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	historyPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyPath = home + "/.ripple_console_history"
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("ripple> "),
		HistoryFile:       historyPath,
		HistoryLimit:      1000,
		AutoComplete:      consoleCompleter(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start console: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("ripple operator console — type 'help' for commands, 'exit' to leave")

	ctrlCCount := 0
	ctx := context.Background()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				ctrlCCount++
				if ctrlCCount == 1 {
					fmt.Println("(use 'exit' or 'quit' to leave)")
				}
				continue
			}
			if err == io.EOF {
				fmt.Println("\ngoodbye")
				return
			}
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		switch fields[0] {
		case "exit", "quit":
			fmt.Println("goodbye")
			return
		case "help":
			printConsoleHelp()
		case "relay":
			consoleRelay(ctx, op, fields, red, green)
		case "drain":
			consoleDrain(ctx, op, fields, red, green)
		case "emergency":
			consoleEmergency(op, fields, red, green)
		case "status":
			consoleStatus(op)
		default:
			fmt.Printf("unknown command %q, try 'help'\n", fields[0])
		}
	}
}

func printConsoleHelp() {
	fmt.Println(`commands:
  relay <device> <on|off>       set a relay directly
  drain start [mode]            start a manual drain (mode: drain|flush|full_drain)
  drain stop [reason]           stop the active drain
  drain status                  show the active drain, if any
  emergency clear                clear an active emergency shutdown
  status                        show sensor targets and relay states
  exit / quit                   leave the console`)
}

func consoleRelay(ctx context.Context, op *control.Operator, fields []string, red, green func(a ...interface{}) string) {
	if len(fields) != 3 {
		fmt.Println("usage: relay <device> <on|off>")
		return
	}
	state, err := parseOnOff(fields[2])
	if err != nil {
		fmt.Printf("%s %v\n", red("✗"), err)
		return
	}
	if err := op.SetRelay(ctx, fields[1], state); err != nil {
		fmt.Printf("%s %v\n", red("✗"), err)
		return
	}
	fmt.Printf("%s %s -> %v\n", green("✓"), fields[1], state)
}

func consoleDrain(ctx context.Context, op *control.Operator, fields []string, red, green func(a ...interface{}) string) {
	if len(fields) < 2 {
		fmt.Println("usage: drain <start|stop|status> [arg]")
		return
	}
	switch fields[1] {
	case "start":
		mode := string(loops.DrainModeDrain)
		if len(fields) >= 3 {
			mode = fields[2]
		}
		if err := op.StartDrain(ctx, loops.DrainRequest{Mode: loops.DrainMode(mode)}); err != nil {
			fmt.Printf("%s %v\n", red("✗"), err)
			return
		}
		fmt.Printf("%s drain started (%s)\n", green("✓"), mode)
	case "stop":
		reason := "operator_requested"
		if len(fields) >= 3 {
			reason = strings.Join(fields[2:], " ")
		}
		op.StopDrain(ctx, reason)
		fmt.Printf("%s drain stopped\n", green("✓"))
	case "status":
		status := op.GetDrainStatus()
		if !status.Active {
			fmt.Println("no drain active")
			return
		}
		fmt.Printf("mode=%s target=%.1f elapsed=%.0fs\n", status.Mode, status.TargetLevel, status.ElapsedSeconds)
	default:
		fmt.Println("usage: drain <start|stop|status> [arg]")
	}
}

func consoleEmergency(op *control.Operator, fields []string, red, green func(a ...interface{}) string) {
	if len(fields) != 2 || fields[1] != "clear" {
		fmt.Println("usage: emergency clear")
		return
	}
	if !op.Guards.Emergency.IsActive() {
		fmt.Println("no emergency shutdown active")
		return
	}
	if err := op.ClearEmergencyShutdown(); err != nil {
		fmt.Printf("%s %v\n", red("✗"), err)
		return
	}
	fmt.Printf("%s emergency shutdown cleared\n", green("✓"))
}

func consoleStatus(op *control.Operator) {
	targets := op.GetSensorTargets()
	fmt.Printf("EC target=%.2f  pH target=%.2f\n", targets.EC.Target, targets.PH.Target)
	for name, on := range op.Relay.Snapshot() {
		fmt.Printf("  %-24s %v\n", name, on)
	}
}

