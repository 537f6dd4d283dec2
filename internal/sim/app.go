package sim

import (
	"net/netip"
	"time"

	"wifi-rssi-sim/internal/engine"
	"wifi-rssi-sim/internal/flowmon"
)

// UDP and IPv4 headers added to every payload.
const udpIPHeaderBytes = 28

// datagram is a UDP payload in flight between the two nodes.
type datagram struct {
	tuple   flowmon.FiveTuple
	uid     uint64
	payload uint32
}

func (d datagram) ipSize() uint32 { return d.payload + udpIPHeaderBytes }

// OnOffApp is a UDP source that stays on for its whole lifetime and sends
// fixed-size packets at a constant bit rate.
type OnOffApp struct {
	sched      *engine.Scheduler
	tuple      flowmon.FiveTuple
	rateBps    uint64
	packetSize uint32
	start      time.Duration
	stop       time.Duration
	send       func(datagram)

	nextUID uint64
	sent    uint64
}

// NewOnOffApp creates the source. send is called for every packet.
func NewOnOffApp(sched *engine.Scheduler, tuple flowmon.FiveTuple, rateBps uint64, packetSize uint32, start, stop time.Duration, send func(datagram)) *OnOffApp {
	return &OnOffApp{
		sched:      sched,
		tuple:      tuple,
		rateBps:    rateBps,
		packetSize: packetSize,
		start:      start,
		stop:       stop,
		send:       send,
	}
}

// Interval is the time between two packets, never less than 1ns so that
// simulated time always advances.
func (a *OnOffApp) Interval() time.Duration {
	bits := float64(a.packetSize) * 8
	if d := time.Duration(bits / float64(a.rateBps) * float64(time.Second)); d > 0 {
		return d
	}
	return time.Nanosecond
}

// Start schedules the first packet one interval after the start time.
func (a *OnOffApp) Start() error {
	_, err := a.sched.ScheduleAt(a.start, a.scheduleNext)
	return err
}

func (a *OnOffApp) scheduleNext() {
	a.sched.Schedule(a.Interval(), a.sendPacket)
}

func (a *OnOffApp) sendPacket() {
	if a.sched.Now() >= a.stop {
		return
	}
	a.nextUID++
	a.sent++
	a.send(datagram{tuple: a.tuple, uid: a.nextUID, payload: a.packetSize})
	a.scheduleNext()
}

// Sent returns the number of packets handed to the network.
func (a *OnOffApp) Sent() uint64 { return a.sent }

// PacketSink counts received UDP payloads while it is running.
type PacketSink struct {
	sched   *engine.Scheduler
	addr    netip.AddrPort
	start   time.Duration
	stop    time.Duration
	packets uint64
	bytes   uint64
}

// NewPacketSink creates a sink listening on addr between start and stop.
func NewPacketSink(sched *engine.Scheduler, addr netip.AddrPort, start, stop time.Duration) *PacketSink {
	return &PacketSink{sched: sched, addr: addr, start: start, stop: stop}
}

// Receive accounts a datagram addressed to the sink.
func (s *PacketSink) Receive(d datagram) bool {
	now := s.sched.Now()
	if now < s.start || now >= s.stop {
		return false
	}
	if d.tuple.Destination != s.addr.Addr() || d.tuple.DestinationPort != s.addr.Port() {
		return false
	}
	s.packets++
	s.bytes += uint64(d.payload)
	return true
}

// Received returns the packets and payload bytes counted so far.
func (s *PacketSink) Received() (packets, bytes uint64) { return s.packets, s.bytes }
