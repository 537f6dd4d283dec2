// Package flowmon classifies packets into flows, accumulates per-flow
// counters during a run and reduces them into throughput, delay and jitter
// statistics afterwards.
package flowmon

import (
	"errors"
	"time"
)

// DefaultMaxPerHopDelay is how long a packet may stay in flight before
// CheckForLostPackets counts it as lost.
const DefaultMaxPerHopDelay = 10 * time.Second

// ErrFrozen is returned when a frozen monitor is updated.
var ErrFrozen = errors.New("flow monitor is frozen")

// Record holds the counters of one flow. Counters never decrease.
type Record struct {
	ID          FlowID        `json:"flow_id"`
	Tuple       FiveTuple     `json:"tuple"`
	TimeFirstTx time.Duration `json:"time_first_tx_ns"`
	TimeLastTx  time.Duration `json:"time_last_tx_ns"`
	TimeFirstRx time.Duration `json:"time_first_rx_ns"`
	TimeLastRx  time.Duration `json:"time_last_rx_ns"`
	DelaySum    time.Duration `json:"delay_sum_ns"`
	JitterSum   time.Duration `json:"jitter_sum_ns"`
	LastDelay   time.Duration `json:"last_delay_ns"`
	TxBytes     uint64        `json:"tx_bytes"`
	RxBytes     uint64        `json:"rx_bytes"`
	TxPackets   uint64        `json:"tx_packets"`
	RxPackets   uint64        `json:"rx_packets"`
	LostPackets uint64        `json:"lost_packets"`
	// Dropped counts packets discarded on the way, keyed by reason.
	Dropped map[string]uint64 `json:"dropped,omitempty"`
}

type packetKey struct {
	flow FlowID
	uid  uint64
}

type trackedPacket struct {
	firstSeen time.Duration
	lastSeen  time.Duration
	size      uint32
}

// Monitor observes packets at the IP layer of both ends of every flow.
// It is driven from the single simulation thread and is not safe for
// concurrent use.
type Monitor struct {
	classifier map[FiveTuple]FlowID
	records    []*Record
	tracked    map[packetKey]trackedPacket
	frozen     bool
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		classifier: make(map[FiveTuple]FlowID),
		tracked:    make(map[packetKey]trackedPacket),
	}
}

// Classify returns the flow id for t, creating the flow on first sight.
func (m *Monitor) Classify(t FiveTuple) FlowID {
	if id, ok := m.classifier[t]; ok {
		return id
	}
	id := FlowID(len(m.records) + 1)
	m.classifier[t] = id
	m.records = append(m.records, &Record{ID: id, Tuple: t})
	return id
}

func (m *Monitor) record(id FlowID) *Record {
	return m.records[id-1]
}

// ReportSent accounts a packet leaving the source IP layer at now.
func (m *Monitor) ReportSent(now time.Duration, t FiveTuple, uid uint64, size uint32) (FlowID, error) {
	if m.frozen {
		return 0, ErrFrozen
	}
	id := m.Classify(t)
	r := m.record(id)
	if r.TxPackets == 0 {
		r.TimeFirstTx = now
	}
	r.TimeLastTx = now
	r.TxPackets++
	r.TxBytes += uint64(size)
	m.tracked[packetKey{flow: id, uid: uid}] = trackedPacket{firstSeen: now, lastSeen: now, size: size}
	return id, nil
}

// ReportReceived accounts a packet reaching the destination IP layer at
// now. Packets that were never reported as sent are ignored and reported
// as false.
func (m *Monitor) ReportReceived(now time.Duration, t FiveTuple, uid uint64, size uint32) (bool, error) {
	if m.frozen {
		return false, ErrFrozen
	}
	id, ok := m.classifier[t]
	if !ok {
		return false, nil
	}
	key := packetKey{flow: id, uid: uid}
	tp, ok := m.tracked[key]
	if !ok {
		return false, nil
	}
	delete(m.tracked, key)

	r := m.record(id)
	delay := now - tp.firstSeen
	if r.RxPackets > 0 {
		jitter := delay - r.LastDelay
		if jitter < 0 {
			jitter = -jitter
		}
		r.JitterSum += jitter
	} else {
		r.TimeFirstRx = now
	}
	r.LastDelay = delay
	r.DelaySum += delay
	r.TimeLastRx = now
	r.RxBytes += uint64(size)
	r.RxPackets++
	return true, nil
}

// ReportDropped accounts a packet discarded before delivery.
func (m *Monitor) ReportDropped(t FiveTuple, uid uint64, reason string) error {
	if m.frozen {
		return ErrFrozen
	}
	id, ok := m.classifier[t]
	if !ok {
		return nil
	}
	key := packetKey{flow: id, uid: uid}
	if _, ok := m.tracked[key]; !ok {
		return nil
	}
	delete(m.tracked, key)
	r := m.record(id)
	if r.Dropped == nil {
		r.Dropped = make(map[string]uint64)
	}
	r.Dropped[reason]++
	r.LostPackets++
	return nil
}

// CheckForLostPackets counts packets in flight for longer than maxDelay as
// lost.
func (m *Monitor) CheckForLostPackets(now, maxDelay time.Duration) {
	for key, tp := range m.tracked {
		if now-tp.lastSeen < maxDelay {
			continue
		}
		m.record(key.flow).LostPackets++
		delete(m.tracked, key)
	}
}

// InFlight returns the number of packets sent but not yet received,
// dropped or declared lost.
func (m *Monitor) InFlight() int { return len(m.tracked) }

// Freeze ends the observation window. Later updates fail with ErrFrozen.
func (m *Monitor) Freeze() { m.frozen = true }

// Frozen reports whether the observation window has ended.
func (m *Monitor) Frozen() bool { return m.frozen }

// Records returns copies of all flow records in discovery order.
func (m *Monitor) Records() []Record {
	out := make([]Record, len(m.records))
	for i, r := range m.records {
		out[i] = *r
		if r.Dropped != nil {
			out[i].Dropped = make(map[string]uint64, len(r.Dropped))
			for k, v := range r.Dropped {
				out[i].Dropped[k] = v
			}
		}
	}
	return out
}
