package main

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"wifi-rssi-sim/internal/config"
	"wifi-rssi-sim/internal/sim"
)

// stdoutIsTerminal reports whether STDOUT is a TTY.
var stdoutIsTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

// writerOptions selects the row sinks of a run.
type writerOptions struct {
	PrintRows string // none, json or color
	LogFile   string // JSONL flow log; frames go to LogFile+".frames"
	LogFrames bool
	NoDB      bool
}

type rowWriter interface {
	sim.FlowWriter
	sim.FrameWriter
}

// newWriters assembles the flow and frame writers from options and env
// vars. Nil writers mean nothing was requested. The cleanup function
// closes any opened files.
func newWriters(cfg *config.SimulationConfig, opts writerOptions, tui *sim.TUIWriter, logger *slog.Logger) (sim.FlowWriter, sim.FrameWriter, func(), error) {
	cleanup := func() {}

	var bases []rowWriter
	stdout, err := stdoutWriter(cfg, opts.PrintRows)
	if err != nil {
		return nil, nil, nil, err
	}
	if stdout != nil {
		bases = append(bases, stdout)
	}
	db, err := dbWriter(opts.NoDB, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if db != nil {
		bases = append(bases, db)
	}
	if tui != nil {
		bases = append(bases, tui)
	}

	var fws []sim.FlowWriter
	var rws []sim.FrameWriter
	for _, b := range bases {
		fws = append(fws, b)
		rws = append(rws, b)
	}
	if opts.LogFile != "" {
		framePath := ""
		if opts.LogFrames {
			framePath = opts.LogFile + ".frames"
		}
		fw, err := sim.NewFileWriter(opts.LogFile, framePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create log file: %w", err)
		}
		cleanup = func() { fw.Close() }
		fws = append(fws, fw)
		if opts.LogFrames {
			rws = append(rws, fw)
		}
	}

	var flowW sim.FlowWriter
	var frameW sim.FrameWriter
	switch len(fws) {
	case 0:
	case 1:
		flowW = fws[0]
	default:
		flowW = sim.NewMultiWriter(fws, nil)
	}
	switch len(rws) {
	case 0:
	case 1:
		frameW = rws[0]
	default:
		frameW = sim.NewMultiWriter(nil, rws)
	}
	return flowW, frameW, cleanup, nil
}

// stdoutWriter picks the STDOUT row printer. Colour output falls back to
// JSON when STDOUT is not a terminal.
func stdoutWriter(cfg *config.SimulationConfig, mode string) (rowWriter, error) {
	switch mode {
	case "", "none":
		return nil, nil
	case "json":
		return sim.NewJSONStdoutWriter(), nil
	case "color":
		if !stdoutIsTerminal() {
			return sim.NewJSONStdoutWriter(), nil
		}
		return sim.NewColorStdoutWriter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown row format %q (none, json, color)", mode)
	}
}

// dbWriter connects to GreptimeDB when GREPTIMEDB_ENDPOINT is set.
func dbWriter(disabled bool, logger *slog.Logger) (rowWriter, error) {
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if disabled || endpoint == "" {
		return nil, nil
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	w, err := sim.NewGreptimeDBWriter(endpoint, database, logger)
	if err != nil {
		return nil, fmt.Errorf("init greptimedb writer: %w", err)
	}
	return w, nil
}
