package main

import (
	"github.com/spf13/cobra"

	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/sim"
)

var reportCmd = newReportCmd()

func newReportCmd() *cobra.Command {
	var input, runID, output string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Rebuild the text report from a flow log",
		Long:  "report reads the flow rows of a JSONL log written by simulate --log-file and renders the report again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := sim.ReduceFlowLogFile(input, runID)
			if err != nil {
				return err
			}
			if output == "" {
				return flowmon.WriteText(cmd.OutOrStdout(), rep)
			}
			rf := sim.NewReportFile(output)
			if err := rf.Write(rep); err != nil {
				return err
			}
			return rf.Echo(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Path to the flow log (JSONL)")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run to report on (defaults to the last run in the log)")
	cmd.Flags().StringVar(&output, "output", "", "Also write the report to this file")
	cmd.MarkFlagRequired("input")
	return cmd
}
