package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/telemetry"
)

// ReplayFrames replays frame rows from r to writer. A speed >0 scales the
// gaps between rows; if speed <= 0, no artificial delay is inserted.
func ReplayFrames(r io.Reader, writer FrameWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Duration
	first := true
	for {
		var row telemetry.FrameRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		at := time.Duration(row.SimTimeNs)
		if !first && speed > 0 {
			diff := at - prev
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				time.Sleep(diff)
			}
		}
		if err := writer.WriteFrame(row); err != nil {
			return err
		}
		prev, first = at, false
	}
}

// ReplayFramesFile opens a file and replays its frame rows.
func ReplayFramesFile(path string, writer FrameWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayFrames(f, writer, speed)
}

// ReadFlowLog decodes the flow rows of runID from a JSONL flow log. An
// empty runID selects the last run in the log.
func ReadFlowLog(r io.Reader, runID string) ([]telemetry.FlowRow, error) {
	dec := json.NewDecoder(r)
	var rows []telemetry.FlowRow
	for {
		var row telemetry.FlowRow
		if err := dec.Decode(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode flow log: %w", err)
		}
		switch {
		case runID != "" && row.RunID != runID:
			continue
		case runID == "" && len(rows) > 0 && rows[0].RunID != row.RunID:
			rows = rows[:0]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReduceFlowRows rebuilds the records behind rows and reduces them again
// over the window stored on the rows.
func ReduceFlowRows(rows []telemetry.FlowRow) (*flowmon.Report, error) {
	if len(rows) == 0 {
		return nil, flowmon.ErrEmptyFlowSet
	}
	records := make([]flowmon.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			return nil, fmt.Errorf("flow %d: %w", row.FlowID, err)
		}
		records = append(records, rec)
	}
	window := rows[0].Window()
	for _, row := range rows[1:] {
		if row.Window() != window {
			return nil, errors.New("flow rows disagree on the observation window")
		}
	}
	return flowmon.Reduce(records, window)
}

// ReduceFlowLogFile reads a JSONL flow log and reduces the selected run.
func ReduceFlowLogFile(path, runID string) (*flowmon.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ReadFlowLog(f, runID)
	if err != nil {
		return nil, err
	}
	return ReduceFlowRows(rows)
}
