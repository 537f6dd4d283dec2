package sim

import "wifi-rssi-sim/internal/telemetry"

// FrameWriter receives data frame attempts as they happen.
type FrameWriter interface {
	WriteFrame(telemetry.FrameRow) error
}

// Optional: frame writers may support batch mode.
type batchFrameWriter interface {
	WriteFrames([]telemetry.FrameRow) error
}

func writeFrames(w FrameWriter, rows []telemetry.FrameRow) error {
	if bw, ok := w.(batchFrameWriter); ok {
		return bw.WriteFrames(rows)
	}
	for _, r := range rows {
		if err := w.WriteFrame(r); err != nil {
			return err
		}
	}
	return nil
}
