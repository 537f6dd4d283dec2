// Package telemetry defines the rows written by the output sinks: one row
// per flow at the end of a run and one row per data frame attempt.
package telemetry

import (
	"net/netip"
	"os"
	"time"

	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/wifi"
)

// FlowTableName is the GreptimeDB table for flow rows. It defaults to
// "wifi_flow_stats" and can be overridden with GREPTIMEDB_FLOW_TABLE.
var FlowTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_FLOW_TABLE"); env != "" {
		return env
	}
	return "wifi_flow_stats"
}()

// FrameTableName is the GreptimeDB table for frame rows. It defaults to
// "wifi_frames" and can be overridden with GREPTIMEDB_FRAME_TABLE.
var FrameTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_FRAME_TABLE"); env != "" {
		return env
	}
	return "wifi_frames"
}()

// FlowRow is the final state of one flow. It carries the raw counters and
// the window so a saved log can be reduced again later.
type FlowRow struct {
	RunID  string `json:"run_id"`  // TAG
	SimTag string `json:"sim_tag"` // TAG
	FlowID uint32 `json:"flow_id"` // TAG

	Source          string `json:"source"`
	Destination     string `json:"destination"`
	SourcePort      uint16 `json:"source_port"`
	DestinationPort uint16 `json:"destination_port"`
	Protocol        uint8  `json:"protocol"`

	TxPackets   uint64            `json:"tx_packets"`
	TxBytes     uint64            `json:"tx_bytes"`
	RxPackets   uint64            `json:"rx_packets"`
	RxBytes     uint64            `json:"rx_bytes"`
	LostPackets uint64            `json:"lost_packets"`
	DelaySumNs  int64             `json:"delay_sum_ns"`
	JitterSumNs int64             `json:"jitter_sum_ns"`
	Dropped     map[string]uint64 `json:"dropped,omitempty"`

	TxOfferedMbps  float64 `json:"tx_offered_mbps"`
	ThroughputMbps float64 `json:"throughput_mbps"`
	MeanDelayMs    float64 `json:"mean_delay_ms"`
	MeanJitterMs   float64 `json:"mean_jitter_ms"`

	AppStartNs int64     `json:"app_start_ns"`
	StopNs     int64     `json:"stop_ns"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

func (FlowRow) TableName() string { return FlowTableName }

// FrameRow is one data frame transmission attempt.
type FrameRow struct {
	RunID      string    `json:"run_id"`   // TAG
	Sender     string    `json:"sender"`   // TAG
	Receiver   string    `json:"receiver"` // TAG
	PacketUID  uint64    `json:"packet_uid"`
	SizeBytes  uint32    `json:"size_bytes"`
	Mode       string    `json:"mode"`
	RxPowerDbm float64   `json:"rx_power_dbm"`
	SNRdB      float64   `json:"snr_db"`
	Attempt    int       `json:"attempt"`
	RTS        bool      `json:"rts"`
	Outcome    string    `json:"outcome"`
	SimTimeNs  int64     `json:"sim_time_ns"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

func (FrameRow) TableName() string { return FrameTableName }

// NewFlowRows pairs frozen records with their reduced statistics. Both
// slices are in discovery order. Timestamps are runStart plus the window
// stop.
func NewFlowRows(runID, simTag string, records []flowmon.Record, report *flowmon.Report, runStart time.Time) []FlowRow {
	rows := make([]FlowRow, 0, len(records))
	for i, r := range records {
		row := FlowRow{
			RunID:           runID,
			SimTag:          simTag,
			FlowID:          uint32(r.ID),
			Source:          r.Tuple.Source.String(),
			Destination:     r.Tuple.Destination.String(),
			SourcePort:      r.Tuple.SourcePort,
			DestinationPort: r.Tuple.DestinationPort,
			Protocol:        r.Tuple.Protocol,
			TxPackets:       r.TxPackets,
			TxBytes:         r.TxBytes,
			RxPackets:       r.RxPackets,
			RxBytes:         r.RxBytes,
			LostPackets:     r.LostPackets,
			DelaySumNs:      int64(r.DelaySum),
			JitterSumNs:     int64(r.JitterSum),
			Dropped:         r.Dropped,
			AppStartNs:      int64(report.Window.AppStart),
			StopNs:          int64(report.Window.Stop),
			Timestamp:       runStart.Add(report.Window.Stop),
		}
		if i < len(report.Flows) {
			f := report.Flows[i]
			row.TxOfferedMbps = f.TxOfferedMbps
			row.ThroughputMbps = f.ThroughputMbps
			row.MeanDelayMs = f.MeanDelayMs
			row.MeanJitterMs = f.MeanJitterMs
		}
		rows = append(rows, row)
	}
	return rows
}

// Record rebuilds the flow record the row was made from.
func (r FlowRow) Record() (flowmon.Record, error) {
	src, err := netip.ParseAddr(r.Source)
	if err != nil {
		return flowmon.Record{}, err
	}
	dst, err := netip.ParseAddr(r.Destination)
	if err != nil {
		return flowmon.Record{}, err
	}
	return flowmon.Record{
		ID: flowmon.FlowID(r.FlowID),
		Tuple: flowmon.FiveTuple{
			Source:          src,
			Destination:     dst,
			SourcePort:      r.SourcePort,
			DestinationPort: r.DestinationPort,
			Protocol:        r.Protocol,
		},
		TxPackets:   r.TxPackets,
		TxBytes:     r.TxBytes,
		RxPackets:   r.RxPackets,
		RxBytes:     r.RxBytes,
		LostPackets: r.LostPackets,
		DelaySum:    time.Duration(r.DelaySumNs),
		JitterSum:   time.Duration(r.JitterSumNs),
		Dropped:     r.Dropped,
	}, nil
}

// Window returns the observation window recorded on the row.
func (r FlowRow) Window() flowmon.Window {
	return flowmon.Window{AppStart: time.Duration(r.AppStartNs), Stop: time.Duration(r.StopNs)}
}

// NewFrameRow converts a MAC frame event.
func NewFrameRow(runID string, ev wifi.FrameEvent, runStart time.Time) FrameRow {
	return FrameRow{
		RunID:      runID,
		Sender:     string(ev.Sender),
		Receiver:   string(ev.Receiver),
		PacketUID:  ev.PacketUID,
		SizeBytes:  ev.Size,
		Mode:       ev.Mode,
		RxPowerDbm: ev.RxPowerDbm,
		SNRdB:      ev.SNRdB,
		Attempt:    ev.Attempt,
		RTS:        ev.RTS,
		Outcome:    string(ev.Outcome),
		SimTimeNs:  int64(ev.At),
		Timestamp:  runStart.Add(ev.At),
	}
}
