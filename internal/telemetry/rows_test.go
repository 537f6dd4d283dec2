package telemetry

import (
	"net/netip"
	"testing"
	"time"

	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/wifi"
)

func TestFlowRowRoundTrip(t *testing.T) {
	rec := flowmon.Record{
		ID: 3,
		Tuple: flowmon.FiveTuple{
			Source:          netip.MustParseAddr("10.1.1.2"),
			Destination:     netip.MustParseAddr("10.1.1.1"),
			SourcePort:      49153,
			DestinationPort: 9,
			Protocol:        flowmon.ProtoUDP,
		},
		TxPackets: 10, TxBytes: 14480, RxPackets: 8, RxBytes: 11584,
		LostPackets: 2,
		DelaySum:    40 * time.Millisecond,
		JitterSum:   time.Millisecond,
		Dropped:     map[string]uint64{"retry-limit": 2},
	}
	window := flowmon.Window{AppStart: 500 * time.Millisecond, Stop: 10 * time.Second}
	rep, err := flowmon.Reduce([]flowmon.Record{rec}, window)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	start := time.Unix(1700000000, 0).UTC()
	rows := NewFlowRows("run-1", "default", []flowmon.Record{rec}, rep, start)
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	row := rows[0]
	if row.FlowID != 3 || row.Source != "10.1.1.2" || row.ThroughputMbps != rep.Flows[0].ThroughputMbps {
		t.Fatalf("unexpected row %+v", row)
	}
	if !row.Timestamp.Equal(start.Add(10 * time.Second)) {
		t.Fatalf("timestamp = %v", row.Timestamp)
	}
	if row.TableName() != FlowTableName {
		t.Fatalf("table name = %s", row.TableName())
	}

	back, err := row.Record()
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if back.Tuple != rec.Tuple || back.DelaySum != rec.DelaySum || back.RxBytes != rec.RxBytes || back.Dropped["retry-limit"] != 2 {
		t.Fatalf("record mismatch %+v", back)
	}
	if row.Window() != window {
		t.Fatalf("window mismatch %+v", row.Window())
	}
}

func TestFlowRowBadAddress(t *testing.T) {
	if _, err := (FlowRow{Source: "nope", Destination: "10.0.0.1"}).Record(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNewFrameRow(t *testing.T) {
	ev := wifi.FrameEvent{
		At: 750 * time.Millisecond, Sender: "ap", Receiver: "sta", PacketUID: 9,
		Size: 1484, Mode: "HtMcs7", RxPowerDbm: -39.7, SNRdB: 54.3, Attempt: 2, Outcome: wifi.OutcomeDelivered,
	}
	start := time.Unix(0, 0).UTC()
	row := NewFrameRow("run-1", ev, start)
	if row.Sender != "ap" || row.Outcome != "delivered" || row.SimTimeNs != int64(750*time.Millisecond) {
		t.Fatalf("unexpected row %+v", row)
	}
	if !row.Timestamp.Equal(start.Add(750 * time.Millisecond)) {
		t.Fatalf("timestamp = %v", row.Timestamp)
	}
	if row.TableName() != FrameTableName {
		t.Fatalf("table name = %s", row.TableName())
	}
}
