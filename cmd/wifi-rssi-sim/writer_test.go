package main

import (
	"os"
	"path/filepath"
	"testing"

	"wifi-rssi-sim/internal/config"
	"wifi-rssi-sim/internal/logging"
	"wifi-rssi-sim/internal/sim"
	"wifi-rssi-sim/internal/telemetry"
)

func TestNewWritersPrintJSON(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	fw, rw, cleanup, err := newWriters(config.Default(), writerOptions{PrintRows: "json"}, nil, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := fw.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", fw)
	}
	if _, ok := rw.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", rw)
	}
}

func TestNewWritersNothingRequested(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	fw, rw, cleanup, err := newWriters(config.Default(), writerOptions{PrintRows: "none"}, nil, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if fw != nil || rw != nil {
		t.Fatalf("expected no writers, got %T and %T", fw, rw)
	}
}

func TestNewWritersColorNeedsTerminal(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	orig := stdoutIsTerminal
	defer func() { stdoutIsTerminal = orig }()

	stdoutIsTerminal = func() bool { return false }
	fw, _, _, err := newWriters(config.Default(), writerOptions{PrintRows: "color"}, nil, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if _, ok := fw.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected JSON fallback off a terminal, got %T", fw)
	}

	stdoutIsTerminal = func() bool { return true }
	fw, _, _, err = newWriters(config.Default(), writerOptions{PrintRows: "color"}, nil, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	if _, ok := fw.(*sim.ColorStdoutWriter); !ok {
		t.Fatalf("expected *sim.ColorStdoutWriter, got %T", fw)
	}
}

func TestNewWritersUnknownFormat(t *testing.T) {
	if _, _, _, err := newWriters(nil, writerOptions{PrintRows: "xml"}, nil, logging.Discard()); err == nil {
		t.Fatal("expected an error for an unknown row format")
	}
}

func TestNewWritersGreptimeDisabled(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "localhost:4001")
	fw, rw, cleanup, err := newWriters(nil, writerOptions{NoDB: true}, nil, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if fw != nil || rw != nil {
		t.Fatalf("expected no writers with --no-db, got %T and %T", fw, rw)
	}
}

func TestNewWritersLogFile(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "flows.log")
	fw, rw, cleanup, err := newWriters(nil, writerOptions{PrintRows: "json", LogFile: path, LogFrames: true}, nil, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := fw.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", fw)
	}
	if _, ok := rw.(*sim.MultiWriter); !ok {
		t.Fatalf("expected frame writer *sim.MultiWriter, got %T", rw)
	}
	if err := fw.WriteFlow(telemetry.FlowRow{RunID: "r1", FlowID: 1}); err != nil {
		t.Fatalf("write flow failed: %v", err)
	}
	if err := rw.WriteFrame(telemetry.FrameRow{RunID: "r1", Sender: "ap", Receiver: "sta"}); err != nil {
		t.Fatalf("write frame failed: %v", err)
	}
	for _, p := range []string{path, path + ".frames"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}

func TestNewWritersFramesOnlyWhenAsked(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	path := filepath.Join(t.TempDir(), "flows.log")
	fw, rw, cleanup, err := newWriters(nil, writerOptions{LogFile: path}, nil, logging.Discard())
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := fw.(*sim.FileWriter); !ok {
		t.Fatalf("expected *sim.FileWriter, got %T", fw)
	}
	if rw != nil {
		t.Fatalf("expected no frame writer, got %T", rw)
	}
	if _, err := os.Stat(path + ".frames"); !os.IsNotExist(err) {
		t.Fatalf("frame log should not exist, stat err = %v", err)
	}
}
