package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wifi-rssi-sim/internal/logging"
	"wifi-rssi-sim/internal/sim"
)

var replayCmd = newReplayCmd()

func newReplayCmd() *cobra.Command {
	var (
		input     string
		speed     float64
		printRows string
		noDB      bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a frame log",
		Long:  "replay feeds frame rows from a log file back into GreptimeDB or STDOUT, paced by simulated time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if speed <= 0 {
				return fmt.Errorf("speed must be positive, got %v", speed)
			}
			logger := logging.FromContext(cmd.Context())
			_, frameW, cleanup, err := newWriters(nil, writerOptions{PrintRows: printRows, NoDB: noDB}, nil, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			if frameW == nil {
				frameW = sim.NewJSONStdoutWriter()
			}
			return sim.ReplayFramesFile(input, frameW, speed)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Path to the frame log (JSONL)")
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "Playback speed multiplier")
	cmd.Flags().StringVar(&printRows, "print-rows", "json", "Print rows to STDOUT (none, json, color)")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "Do not write to GreptimeDB even if GREPTIMEDB_ENDPOINT is set")
	cmd.MarkFlagRequired("input")
	return cmd
}
