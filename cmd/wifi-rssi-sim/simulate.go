package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"wifi-rssi-sim/internal/admin"
	"wifi-rssi-sim/internal/config"
	"wifi-rssi-sim/internal/logging"
	"wifi-rssi-sim/internal/observability"
	"wifi-rssi-sim/internal/scenario"
	"wifi-rssi-sim/internal/sim"
)

type simulateOptions struct {
	configPath   string
	schemaPath   string
	scenario     string
	simTime      time.Duration
	rate         string
	rtsThreshold uint32
	// Node coordinates are whole metres on the command line.
	apX, apY   int
	apZ        int
	staX, staY int
	staZ       int
	outputDir  string
	simTag     string
	seed       int64

	logFile     string
	logFrames   bool
	printRows   string
	noDB        bool
	tui         bool
	metricsFile string
	trace       bool
	serve       string
}

var simulateCmd = newSimulateCmd()

func newSimulateCmd() *cobra.Command {
	cmd, _ := simulateCommand()
	return cmd
}

// simulateCommand returns the command together with the options its flags
// bind to.
func simulateCommand() (*cobra.Command, *simulateOptions) {
	o := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the two-node Wi-Fi simulation",
		Long: "simulate streams UDP from the access point to the station, applies the RSSI overrides " +
			"and writes the flow statistics report to <output-dir>/<sim-tag> before echoing it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "Path to simulation configuration YAML (defaults built in)")
	f.StringVar(&o.schemaPath, "schema", "", "Path to CUE schema file (embedded schema when empty)")
	f.StringVar(&o.scenario, "scenario", "", "Built-in preset name or path to a scenario YAML")
	f.DurationVar(&o.simTime, "sim-time", 10*time.Second, "Simulated time")
	f.StringVar(&o.rate, "rate", "50Mb/s", "Offered data rate (e.g. 50Mb/s, 11Mbps)")
	f.Uint32Var(&o.rtsThreshold, "rts-threshold", 65535, "RTS/CTS threshold in bytes")
	f.IntVar(&o.apX, "ap-x", 0, "Access point X position (m)")
	f.IntVar(&o.apY, "ap-y", 0, "Access point Y position (m)")
	f.IntVar(&o.apZ, "ap-z", 0, "Access point Z position (m)")
	f.IntVar(&o.staX, "sta-x", 2, "Station X position (m)")
	f.IntVar(&o.staY, "sta-y", 0, "Station Y position (m)")
	f.IntVar(&o.staZ, "sta-z", 0, "Station Z position (m)")
	f.StringVar(&o.outputDir, "output-dir", "./", "Directory of the report file")
	f.StringVar(&o.simTag, "sim-tag", "default", "Report file name")
	f.Int64Var(&o.seed, "seed", 1, "Random seed")
	f.StringVar(&o.logFile, "log-file", "", "Path to export flow rows (JSONL)")
	f.BoolVar(&o.logFrames, "log-frames", false, "Also export frame rows to <log-file>.frames")
	f.StringVar(&o.printRows, "print-rows", "none", "Print rows to STDOUT (none, json, color)")
	f.BoolVar(&o.noDB, "no-db", false, "Do not write to GreptimeDB even if GREPTIMEDB_ENDPOINT is set")
	f.BoolVar(&o.tui, "tui", false, "Show frames and the report in a terminal UI")
	f.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	f.BoolVar(&o.trace, "trace", false, "Export OpenTelemetry spans (TRACING_EXPORTER=stdout|otlp)")
	f.StringVar(&o.serve, "serve", "", "Serve the results on this address until interrupted (e.g. :8080)")
	return cmd, o
}

// buildConfig loads the file, overlays the scenario and then the flags the
// user set explicitly.
func buildConfig(cmd *cobra.Command, o *simulateOptions) (*config.SimulationConfig, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath, o.schemaPath)
		if err != nil {
			return nil, &configError{err}
		}
		cfg = loaded
	}
	if o.scenario != "" {
		sc, err := scenario.Lookup(o.scenario)
		if err != nil {
			return nil, &configError{err}
		}
		sc.Apply(cfg)
	}

	f := cmd.Flags()
	if f.Changed("sim-time") {
		cfg.SimTime = config.Duration(o.simTime)
	}
	if f.Changed("rate") {
		cfg.Traffic.Rate = o.rate
	}
	if f.Changed("rts-threshold") {
		cfg.Wifi.RTSThreshold = o.rtsThreshold
	}
	if f.Changed("ap-x") {
		cfg.AP.X = float64(o.apX)
	}
	if f.Changed("ap-y") {
		cfg.AP.Y = float64(o.apY)
	}
	if f.Changed("ap-z") {
		cfg.AP.Z = float64(o.apZ)
	}
	if f.Changed("sta-x") {
		cfg.STA.X = float64(o.staX)
	}
	if f.Changed("sta-y") {
		cfg.STA.Y = float64(o.staY)
	}
	if f.Changed("sta-z") {
		cfg.STA.Z = float64(o.staZ)
	}
	if f.Changed("output-dir") {
		cfg.Output.Dir = o.outputDir
	}
	if f.Changed("sim-tag") {
		cfg.Output.SimTag = o.simTag
	}
	if f.Changed("seed") {
		cfg.Seed = o.seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, &configError{err}
	}
	return cfg, nil
}

func runSimulate(cmd *cobra.Command, o *simulateOptions) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	cfg, err := buildConfig(cmd, o)
	if err != nil {
		return err
	}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(o.trace), logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.WithoutCancel(ctx), shutdown, logger)

	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	var tui *sim.TUIWriter
	if o.tui {
		if stdoutIsTerminal() {
			tui = sim.NewTUIWriter(cfg)
		} else {
			logger.Warn("stdout is not a terminal, ignoring --tui")
		}
	}

	flowW, frameW, cleanup, err := newWriters(cfg, writerOptions{
		PrintRows: o.printRows,
		LogFile:   o.logFile,
		LogFrames: o.logFrames,
		NoDB:      o.noDB,
	}, tui, logger)
	if err != nil {
		if tui != nil {
			tui.Close()
		}
		return err
	}
	defer cleanup()

	opts := []sim.Option{sim.WithLogger(logger), sim.WithCollector(collector)}
	if flowW != nil {
		opts = append(opts, sim.WithFlowWriter(flowW))
	}
	if frameW != nil {
		opts = append(opts, sim.WithFrameWriter(frameW))
	}
	simulator, err := sim.NewSimulator(cfg, opts...)
	if err != nil {
		if tui != nil {
			tui.Close()
		}
		return &configError{err}
	}

	res, err := simulator.Run(ctx)
	if err != nil {
		if tui != nil {
			tui.Close()
		}
		return err
	}

	report := sim.NewReportFile(cfg.Output.ReportPath())
	if err := report.Write(res.Report); err != nil {
		if tui != nil {
			tui.Close()
		}
		return err
	}
	if o.metricsFile != "" {
		if err := collector.WriteTextfile(o.metricsFile); err != nil {
			logger.Warn("metrics textfile not written", "error", err)
		}
	}

	if tui != nil {
		if err := tui.ShowReport(res.Report); err != nil {
			tui.Close()
			return err
		}
		tui.Wait()
	} else if err := report.Echo(cmd.OutOrStdout()); err != nil {
		return err
	}

	if o.serve != "" {
		srv := admin.NewServer(simulator, collector.Handler(), logger)
		return srv.Start(ctx, o.serve)
	}
	return nil
}
