package sim

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"wifi-rssi-sim/internal/logging"
	"wifi-rssi-sim/internal/telemetry"
)

type mockGreptimeClient struct {
	table *table.Table
	err   error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, m.err
}

func TestGreptimeWriterFlows(t *testing.T) {
	row := sampleFlowRow()
	row.Dropped = map[string]uint64{"queue-full": 3}

	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, flowTable: "wifi_flow_stats", logger: logging.Discard()}
	if err := w.WriteFlows([]telemetry.FlowRow{row}); err != nil {
		t.Fatalf("WriteFlows: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}

	rows := m.table.GetRows()
	schema := rows.Schema
	if len(schema) != 23 {
		t.Fatalf("unexpected schema length: %d", len(schema))
	}
	if schema[0].ColumnName != "run_id" || schema[0].SemanticType != gpb.SemanticType_TAG {
		t.Fatalf("unexpected first column: %+v", schema[0])
	}
	if schema[15].Datatype != gpb.ColumnDataType_JSON {
		t.Fatalf("dropped column type = %v, want %v", schema[15].Datatype, gpb.ColumnDataType_JSON)
	}
	if schema[22].SemanticType != gpb.SemanticType_TIMESTAMP {
		t.Fatalf("last column should be the time index: %+v", schema[22])
	}
	vals := rows.Rows[0].Values
	if got := vals[0].GetStringValue(); got != "run-1" {
		t.Fatalf("run_id = %s", got)
	}
	if got := vals[15].GetStringValue(); got != `{"queue-full":3}` {
		t.Fatalf("dropped = %s", got)
	}
	if got := vals[17].GetF64Value(); got != row.ThroughputMbps {
		t.Fatalf("throughput = %v, want %v", got, row.ThroughputMbps)
	}
}

func TestGreptimeWriterFrames(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, frameTable: "wifi_frames", logger: logging.Discard()}
	if err := w.WriteFrame(sampleFrameRow(0)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	vals := m.table.GetRows().Rows[0].Values
	if got := vals[1].GetStringValue(); got != "ap" {
		t.Fatalf("sender = %s", got)
	}
	if got := vals[5].GetStringValue(); got != "HtMcs7" {
		t.Fatalf("mode = %s", got)
	}
	if got := vals[10].GetStringValue(); got != "delivered" {
		t.Fatalf("outcome = %s", got)
	}
}

func TestGreptimeWriterSkipsEmptyAndReportsErrors(t *testing.T) {
	m := &mockGreptimeClient{err: errors.New("unavailable")}
	w := &GreptimeDBWriter{client: m, flowTable: "wifi_flow_stats", frameTable: "wifi_frames"}
	if err := w.WriteFlows(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if m.table != nil {
		t.Fatalf("empty batch must not reach the client")
	}
	if err := w.WriteFlow(sampleFlowRow()); err == nil {
		t.Fatalf("expected client error")
	}
}

func TestGreptimeWriterLogsTableName(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, logging.Config{Level: "debug"})

	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, flowTable: "wifi_flow_stats", frameTable: "wifi_frames", logger: logger}
	if err := w.WriteFrame(sampleFrameRow(0)); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if !strings.Contains(buf.String(), "table=wifi_frames") {
		t.Fatalf("expected table name in debug log, got %q", buf.String())
	}

	buf.Reset()
	m.err = errors.New("unavailable")
	if err := w.WriteFlow(sampleFlowRow()); err == nil {
		t.Fatalf("expected client error")
	}
	if !strings.Contains(buf.String(), "table=wifi_flow_stats") {
		t.Fatalf("expected table name in error log, got %q", buf.String())
	}
}

func TestSplitEndpoint(t *testing.T) {
	cases := []struct {
		in   string
		host string
		port int
		err  bool
	}{
		{"localhost", "localhost", defaultGreptimePort, false},
		{"db.example:4101", "db.example", 4101, false},
		{"db.example:grpc", "", 0, true},
	}
	for _, tc := range cases {
		host, port, err := splitEndpoint(tc.in)
		if tc.err {
			if err == nil {
				t.Fatalf("%s: expected error", tc.in)
			}
			continue
		}
		if err != nil || host != tc.host || port != tc.port {
			t.Fatalf("%s: got %s %d %v", tc.in, host, port, err)
		}
	}
}
