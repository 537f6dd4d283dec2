package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"wifi-rssi-sim/internal/telemetry"
)

// defaultGreptimePort is the gRPC port of GreptimeDB.
const defaultGreptimePort = 4001

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes flow and frame rows to GreptimeDB via the
// ingester client. Tables are created on first write.
type GreptimeDBWriter struct {
	client     greptimeClient
	flowTable  string
	frameTable string
	logger     *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
func NewGreptimeDBWriter(endpoint, database string, logger *slog.Logger) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptimedb client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GreptimeDBWriter{
		client:     client,
		flowTable:  telemetry.FlowTableName,
		frameTable: telemetry.FrameTableName,
		logger:     logger,
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("greptimedb endpoint %q: invalid port: %w", endpoint, err)
	}
	return host, port, nil
}

// WriteFlow inserts a single flow row.
func (w *GreptimeDBWriter) WriteFlow(row telemetry.FlowRow) error {
	return w.WriteFlows([]telemetry.FlowRow{row})
}

// WriteFlows inserts multiple flow rows.
func (w *GreptimeDBWriter) WriteFlows(rows []telemetry.FlowRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.flowTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddTagColumn("sim_tag", types.STRING)
	tbl.AddTagColumn("flow_id", types.UINT32)
	tbl.AddFieldColumn("source", types.STRING)
	tbl.AddFieldColumn("destination", types.STRING)
	tbl.AddFieldColumn("source_port", types.UINT16)
	tbl.AddFieldColumn("destination_port", types.UINT16)
	tbl.AddFieldColumn("protocol", types.UINT8)
	tbl.AddFieldColumn("tx_packets", types.UINT64)
	tbl.AddFieldColumn("tx_bytes", types.UINT64)
	tbl.AddFieldColumn("rx_packets", types.UINT64)
	tbl.AddFieldColumn("rx_bytes", types.UINT64)
	tbl.AddFieldColumn("lost_packets", types.UINT64)
	tbl.AddFieldColumn("delay_sum_ns", types.INT64)
	tbl.AddFieldColumn("jitter_sum_ns", types.INT64)
	tbl.AddFieldColumn("dropped", types.JSON)
	tbl.AddFieldColumn("tx_offered_mbps", types.FLOAT64)
	tbl.AddFieldColumn("throughput_mbps", types.FLOAT64)
	tbl.AddFieldColumn("mean_delay_ms", types.FLOAT64)
	tbl.AddFieldColumn("mean_jitter_ms", types.FLOAT64)
	tbl.AddFieldColumn("app_start_ns", types.INT64)
	tbl.AddFieldColumn("stop_ns", types.INT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		dropped := r.Dropped
		if dropped == nil {
			dropped = map[string]uint64{}
		}
		droppedJSON, err := json.Marshal(dropped)
		if err != nil {
			return err
		}
		if err := tbl.AddRow(
			r.RunID, r.SimTag, r.FlowID,
			r.Source, r.Destination, r.SourcePort, r.DestinationPort, r.Protocol,
			r.TxPackets, r.TxBytes, r.RxPackets, r.RxBytes, r.LostPackets,
			r.DelaySumNs, r.JitterSumNs, string(droppedJSON),
			r.TxOfferedMbps, r.ThroughputMbps, r.MeanDelayMs, r.MeanJitterMs,
			r.AppStartNs, r.StopNs, r.Timestamp,
		); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

// WriteFrame inserts a single frame row.
func (w *GreptimeDBWriter) WriteFrame(row telemetry.FrameRow) error {
	return w.WriteFrames([]telemetry.FrameRow{row})
}

// WriteFrames inserts multiple frame rows.
func (w *GreptimeDBWriter) WriteFrames(rows []telemetry.FrameRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.frameTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddTagColumn("sender", types.STRING)
	tbl.AddTagColumn("receiver", types.STRING)
	tbl.AddFieldColumn("packet_uid", types.UINT64)
	tbl.AddFieldColumn("size_bytes", types.UINT32)
	tbl.AddFieldColumn("mode", types.STRING)
	tbl.AddFieldColumn("rx_power_dbm", types.FLOAT64)
	tbl.AddFieldColumn("snr_db", types.FLOAT64)
	tbl.AddFieldColumn("attempt", types.INT64)
	tbl.AddFieldColumn("rts", types.BOOLEAN)
	tbl.AddFieldColumn("outcome", types.STRING)
	tbl.AddFieldColumn("sim_time_ns", types.INT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID, r.Sender, r.Receiver,
			r.PacketUID, r.SizeBytes, r.Mode, r.RxPowerDbm, r.SNRdB,
			int64(r.Attempt), r.RTS, r.Outcome, r.SimTimeNs, r.Timestamp,
		); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	name, _ := tbl.GetName()
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.log().Error("greptimedb write failed", "table", name, "error", err)
		return err
	}
	w.log().Debug("greptimedb rows written", "table", name, "rows", n)
	return nil
}

func (w *GreptimeDBWriter) log() *slog.Logger {
	if w.logger == nil {
		return slog.Default()
	}
	return w.logger
}
