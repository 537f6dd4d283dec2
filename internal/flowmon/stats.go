package flowmon

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyFlowSet is returned when there are no flows to reduce.
	ErrEmptyFlowSet = errors.New("no flows observed")
	// ErrInvalidWindow is returned for a non-positive observation window.
	ErrInvalidWindow = errors.New("observation window must be positive")
)

// Window is the observation window of a run. Throughput is normalised by
// Stop - AppStart, which leaves out the warm-up before traffic starts.
type Window struct {
	Start    time.Duration `json:"start_ns"`
	AppStart time.Duration `json:"app_start_ns"`
	Stop     time.Duration `json:"stop_ns"`
}

// Duration returns the effective observation time.
func (w Window) Duration() time.Duration { return w.Stop - w.AppStart }

// Validate checks that the effective duration is strictly positive.
func (w Window) Validate() error {
	if w.Duration() <= 0 {
		return fmt.Errorf("%w: stop %s, app start %s", ErrInvalidWindow, w.Stop, w.AppStart)
	}
	return nil
}

// FlowStats are the derived metrics of one flow.
type FlowStats struct {
	ID             FlowID    `json:"flow_id"`
	Tuple          FiveTuple `json:"tuple"`
	TxPackets      uint64    `json:"tx_packets"`
	TxBytes        uint64    `json:"tx_bytes"`
	RxPackets      uint64    `json:"rx_packets"`
	RxBytes        uint64    `json:"rx_bytes"`
	LostPackets    uint64    `json:"lost_packets"`
	TxOfferedMbps  float64   `json:"tx_offered_mbps"`
	ThroughputMbps float64   `json:"throughput_mbps"`
	MeanDelayMs    float64   `json:"mean_delay_ms"`
	MeanJitterMs   float64   `json:"mean_jitter_ms"`
}

// Report is the reduced result of a run.
type Report struct {
	Window Window      `json:"window"`
	Flows  []FlowStats `json:"flows"`
	// Means across all flows; flows that received nothing count as zero.
	MeanFlowThroughputMbps float64 `json:"mean_flow_throughput_mbps"`
	MeanFlowDelayMs        float64 `json:"mean_flow_delay_ms"`
}

// Reduce derives per-flow and aggregate statistics from frozen records.
func Reduce(records []Record, window Window) (*Report, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFlowSet
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	secs := window.Duration().Seconds()
	rep := &Report{Window: window, Flows: make([]FlowStats, 0, len(records))}
	var sumThroughput, sumDelay float64
	for _, r := range records {
		fs := FlowStats{
			ID:            r.ID,
			Tuple:         r.Tuple,
			TxPackets:     r.TxPackets,
			TxBytes:       r.TxBytes,
			RxPackets:     r.RxPackets,
			RxBytes:       r.RxBytes,
			LostPackets:   r.LostPackets,
			TxOfferedMbps: mbps(r.TxBytes, secs),
		}
		if r.RxPackets > 0 {
			fs.ThroughputMbps = mbps(r.RxBytes, secs)
			fs.MeanDelayMs = 1000 * r.DelaySum.Seconds() / float64(r.RxPackets)
			fs.MeanJitterMs = 1000 * r.JitterSum.Seconds() / float64(r.RxPackets)
		}
		sumThroughput += fs.ThroughputMbps
		sumDelay += fs.MeanDelayMs
		rep.Flows = append(rep.Flows, fs)
	}
	n := float64(len(records))
	rep.MeanFlowThroughputMbps = sumThroughput / n
	rep.MeanFlowDelayMs = sumDelay / n
	return rep, nil
}

func mbps(bytes uint64, secs float64) float64 {
	return float64(bytes) * 8 / secs / 1e6
}
