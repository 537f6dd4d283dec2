package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wifi-rssi-sim/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards for the GreptimeDB tables",
	Long:  "dashboard renders the Grafana dashboards, reading the datasource UID from GREPTIMEDB_DATASOURCE_UID.",
	RunE: func(cmd *cobra.Command, args []string) error {
		written, err := dashboard.Render(dashboardOut, dashboard.DefaultTables())
		if err != nil {
			return err
		}
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
}
