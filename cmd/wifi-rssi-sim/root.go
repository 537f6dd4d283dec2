package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/logging"
	"wifi-rssi-sim/internal/propagation"
	"wifi-rssi-sim/internal/sim"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "wifi-rssi-sim",
	Short:         "Two-node Wi-Fi link simulator with RSSI overrides",
	Long:          "wifi-rssi-sim streams UDP from an access point to a station, pins link RSSI where configured and reports per-flow statistics.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := logging.ConfigFromEnv()
		if cmd.Flags().Changed("log-level") || cfg.Level == "" {
			cfg.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") || cfg.Format == "" {
			cfg.Format = logFormat
		}
		cmd.SetContext(logging.NewContext(cmd.Context(), logging.New(cfg)))
	},
}

// configError marks failures of the configuration phase.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var owe *sim.OutputWriteError
	var ce *configError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &owe):
		return 1
	case errors.Is(err, propagation.ErrUnknownEndpoint):
		return 3
	case errors.Is(err, flowmon.ErrEmptyFlowSet):
		return 4
	case errors.Is(err, propagation.ErrConflict), errors.As(err, &ce):
		return 2
	default:
		return 1
	}
}

// printError writes the user-facing message for err.
func printError(err error) {
	var owe *sim.OutputWriteError
	if errors.As(err, &owe) {
		fmt.Fprintf(os.Stderr, "Can't open file %s\n", owe.Path)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}

// Execute runs the root command and returns the exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		return exitCode(err)
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(dashboardCmd)
}
