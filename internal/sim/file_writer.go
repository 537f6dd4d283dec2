package sim

import (
	"encoding/json"
	"os"

	"wifi-rssi-sim/internal/telemetry"
)

// FileWriter writes flow and frame rows to JSONL files.
type FileWriter struct {
	flowFile  *os.File
	frameFile *os.File
	flowEnc   *json.Encoder
	frameEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. framePath may be empty to skip the
// frame log.
func NewFileWriter(flowPath, framePath string) (*FileWriter, error) {
	ff, err := os.Create(flowPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{flowFile: ff, flowEnc: json.NewEncoder(ff)}
	if framePath != "" {
		rf, err := os.Create(framePath)
		if err != nil {
			ff.Close()
			return nil, err
		}
		fw.frameFile = rf
		fw.frameEnc = json.NewEncoder(rf)
	}
	return fw, nil
}

// WriteFlow logs a single flow row.
func (f *FileWriter) WriteFlow(row telemetry.FlowRow) error {
	return f.flowEnc.Encode(row)
}

// WriteFlows logs multiple flow rows.
func (f *FileWriter) WriteFlows(rows []telemetry.FlowRow) error {
	for _, r := range rows {
		if err := f.WriteFlow(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteFrame logs a single frame row, if enabled.
func (f *FileWriter) WriteFrame(row telemetry.FrameRow) error {
	if f.frameEnc == nil {
		return nil
	}
	return f.frameEnc.Encode(row)
}

// WriteFrames logs multiple frame rows.
func (f *FileWriter) WriteFrames(rows []telemetry.FrameRow) error {
	for _, r := range rows {
		if err := f.WriteFrame(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.flowFile != nil {
		if e := f.flowFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.frameFile != nil {
		if e := f.frameFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
