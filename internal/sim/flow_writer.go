package sim

import "wifi-rssi-sim/internal/telemetry"

// FlowWriter receives the final row of every flow.
type FlowWriter interface {
	WriteFlow(telemetry.FlowRow) error
}

// Optional: flow writers may support batch mode.
type batchFlowWriter interface {
	WriteFlows([]telemetry.FlowRow) error
}

func writeFlows(w FlowWriter, rows []telemetry.FlowRow) error {
	if bw, ok := w.(batchFlowWriter); ok {
		return bw.WriteFlows(rows)
	}
	for _, r := range rows {
		if err := w.WriteFlow(r); err != nil {
			return err
		}
	}
	return nil
}
