package sim

import "wifi-rssi-sim/internal/telemetry"

// MultiWriter fan-outs flow and frame rows to multiple writers.
type MultiWriter struct {
	flowWriters  []FlowWriter
	frameWriters []FrameWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(fws []FlowWriter, rws []FrameWriter) *MultiWriter {
	return &MultiWriter{flowWriters: fws, frameWriters: rws}
}

// WriteFlow sends a flow row to all flow writers.
func (mw *MultiWriter) WriteFlow(row telemetry.FlowRow) error {
	for _, w := range mw.flowWriters {
		if err := w.WriteFlow(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteFlows sends multiple flow rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteFlows(rows []telemetry.FlowRow) error {
	for _, w := range mw.flowWriters {
		if err := writeFlows(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// WriteFrame sends a frame row to all frame writers.
func (mw *MultiWriter) WriteFrame(row telemetry.FrameRow) error {
	for _, w := range mw.frameWriters {
		if err := w.WriteFrame(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteFrames sends multiple frame rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteFrames(rows []telemetry.FrameRow) error {
	for _, w := range mw.frameWriters {
		if err := writeFrames(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// Empty reports whether no writer is attached.
func (mw *MultiWriter) Empty() bool {
	return len(mw.flowWriters) == 0 && len(mw.frameWriters) == 0
}
