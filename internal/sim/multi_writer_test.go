package sim

import (
	"errors"
	"testing"

	"wifi-rssi-sim/internal/telemetry"
)

type batchCollector struct {
	collectFlows
	batches int
}

func (b *batchCollector) WriteFlows(rows []telemetry.FlowRow) error {
	b.batches++
	b.rows = append(b.rows, rows...)
	return nil
}

type failingWriter struct{}

func (failingWriter) WriteFlow(telemetry.FlowRow) error   { return errors.New("boom") }
func (failingWriter) WriteFrame(telemetry.FrameRow) error { return errors.New("boom") }

func TestMultiWriterFanOut(t *testing.T) {
	plain := &collectFlows{}
	batch := &batchCollector{}
	frames := &collectFrames{}
	mw := NewMultiWriter([]FlowWriter{plain, batch}, []FrameWriter{frames})

	rows := []telemetry.FlowRow{sampleFlowRow(), sampleFlowRow()}
	if err := mw.WriteFlows(rows); err != nil {
		t.Fatalf("WriteFlows: %v", err)
	}
	if len(plain.rows) != 2 || len(batch.rows) != 2 {
		t.Fatalf("rows not forwarded: plain=%d batch=%d", len(plain.rows), len(batch.rows))
	}
	if batch.batches != 1 {
		t.Fatalf("expected batch mode to be used once, got %d", batch.batches)
	}
	if err := mw.WriteFrame(sampleFrameRow(0)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if len(frames.rows) != 1 {
		t.Fatalf("frame not forwarded")
	}
	if mw.Empty() {
		t.Fatalf("writer with sinks reported empty")
	}
	if !NewMultiWriter(nil, nil).Empty() {
		t.Fatalf("expected empty writer")
	}
}

func TestMultiWriterStopsOnError(t *testing.T) {
	after := &collectFlows{}
	mw := NewMultiWriter([]FlowWriter{failingWriter{}, after}, []FrameWriter{failingWriter{}})
	if err := mw.WriteFlow(sampleFlowRow()); err == nil {
		t.Fatalf("expected error")
	}
	if len(after.rows) != 0 {
		t.Fatalf("writers after a failure must not be called")
	}
	if err := mw.WriteFrames([]telemetry.FrameRow{sampleFrameRow(0)}); err == nil {
		t.Fatalf("expected frame error")
	}
}
