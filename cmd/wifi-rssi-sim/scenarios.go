package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"wifi-rssi-sim/internal/scenario"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the built-in scenario presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		presets := scenario.BuiltIn()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, name := range scenario.Names() {
			fmt.Fprintf(tw, "%s\t%s\n", name, presets[name].Description)
		}
		return tw.Flush()
	},
}
