package sim

import (
	"fmt"
	"io"
	"os"

	"wifi-rssi-sim/internal/flowmon"
)

// OutputWriteError reports a report file that could not be opened or written.
type OutputWriteError struct {
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("write report %s: %v", e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }

// ReportFile writes the text report to a fixed path, truncating any
// previous content, and echoes it afterwards.
type ReportFile struct {
	Path string
}

// NewReportFile returns a report file at path.
func NewReportFile(path string) *ReportFile {
	return &ReportFile{Path: path}
}

// Write renders r into the file.
func (f *ReportFile) Write(r *flowmon.Report) error {
	out, err := os.OpenFile(f.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &OutputWriteError{Path: f.Path, Err: err}
	}
	if err := flowmon.WriteText(out, r); err != nil {
		out.Close()
		return &OutputWriteError{Path: f.Path, Err: err}
	}
	if err := out.Close(); err != nil {
		return &OutputWriteError{Path: f.Path, Err: err}
	}
	return nil
}

// Echo copies the file content to w.
func (f *ReportFile) Echo(w io.Writer) error {
	in, err := os.Open(f.Path)
	if err != nil {
		return &OutputWriteError{Path: f.Path, Err: err}
	}
	defer in.Close()
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("echo report %s: %w", f.Path, err)
	}
	return nil
}
