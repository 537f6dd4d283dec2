package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"wifi-rssi-sim/internal/telemetry"
)

// JSONStdoutWriter prints flow and frame rows as JSON lines.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// WriteFlow outputs a flow row in JSON format.
func (w *JSONStdoutWriter) WriteFlow(row telemetry.FlowRow) error {
	return w.line(row)
}

// WriteFrame outputs a frame row in JSON format.
func (w *JSONStdoutWriter) WriteFrame(row telemetry.FrameRow) error {
	return w.line(row)
}

func (w *JSONStdoutWriter) line(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}
