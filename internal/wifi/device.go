package wifi

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"wifi-rssi-sim/internal/engine"
	"wifi-rssi-sim/internal/mobility"
)

// Frame sizes in bytes. Data frames add a QoS MAC header, LLC/SNAP and FCS
// to the IP packet.
const (
	dataOverheadBytes = 36
	ackBytes          = 14
	rtsBytes          = 20
	ctsBytes          = 14
)

// Drop reasons reported to the drop handler.
const (
	DropQueueFull     = "queue-full"
	DropRetryLimit    = "retry-limit"
	DropNotAssociated = "not-associated"
)

// ErrSSIDMismatch is returned when a station tries to join an access point
// advertising a different SSID.
var ErrSSIDMismatch = errors.New("ssid mismatch")

// Role of a device in the BSS.
type Role string

const (
	RoleAccessPoint Role = "ap"
	RoleStation     Role = "sta"
)

// MacConfig configures the MAC of one device.
type MacConfig struct {
	SSID         string `yaml:"ssid" json:"ssid"`
	RTSThreshold uint32 `yaml:"rts_threshold" json:"rts_threshold"`
	QueueLimit   int    `yaml:"queue_limit" json:"queue_limit"`
	RetryLimit   int    `yaml:"retry_limit" json:"retry_limit"`
}

// DefaultMacConfig disables RTS/CTS and uses a 500 packet queue.
func DefaultMacConfig() MacConfig {
	return MacConfig{SSID: "AP", RTSThreshold: 65535, QueueLimit: 500, RetryLimit: 7}
}

// Validate checks the configuration.
func (m MacConfig) Validate() error {
	if m.QueueLimit <= 0 {
		return fmt.Errorf("queue limit must be positive, got %d", m.QueueLimit)
	}
	if m.RetryLimit <= 0 {
		return fmt.Errorf("retry limit must be positive, got %d", m.RetryLimit)
	}
	return nil
}

// Packet is an upper-layer packet carried in one data frame. Size is the
// IP packet size.
type Packet struct {
	UID     uint64
	Size    uint32
	Payload any
}

// FrameEvent describes one data frame transmission attempt.
type FrameEvent struct {
	At         time.Duration       `json:"at_ns"`
	Sender     mobility.EndpointID `json:"sender"`
	Receiver   mobility.EndpointID `json:"receiver"`
	PacketUID  uint64              `json:"packet_uid"`
	Size       uint32              `json:"size"`
	Mode       string              `json:"mode"`
	RxPowerDbm float64             `json:"rx_power_dbm"`
	SNRdB      float64             `json:"snr_db"`
	Attempt    int                 `json:"attempt"`
	RTS        bool                `json:"rts"`
	Outcome    Outcome             `json:"outcome"`
}

// DeviceStats are MAC counters of one device.
type DeviceStats struct {
	Enqueued      uint64 `json:"enqueued"`
	Transmissions uint64 `json:"transmissions"`
	Retries       uint64 `json:"retries"`
	Delivered     uint64 `json:"delivered"`
	Dropped       uint64 `json:"dropped"`
}

// DeviceConfig describes one device.
type DeviceConfig struct {
	ID          mobility.EndpointID
	Role        Role
	Standard    Standard
	Phy         PhyConfig
	Mac         MacConfig
	RateManager RateManager
}

// DeviceOption configures a Device.
type DeviceOption func(*Device)

// WithReceiveHandler is called for every packet delivered to the device.
func WithReceiveHandler(fn func(*Packet)) DeviceOption {
	return func(d *Device) { d.onReceive = fn }
}

// WithDropHandler is called for every packet the device gives up on.
func WithDropHandler(fn func(p *Packet, reason string)) DeviceOption {
	return func(d *Device) { d.onDrop = fn }
}

// WithFrameObserver is called for every data frame attempt.
func WithFrameObserver(fn func(FrameEvent)) DeviceOption {
	return func(d *Device) { d.onFrame = fn }
}

// WithLogger sets the device logger.
func WithLogger(l *slog.Logger) DeviceOption {
	return func(d *Device) { d.logger = l }
}

// Device is a single-antenna 802.11 interface attached to a channel.
type Device struct {
	cfg     DeviceConfig
	timing  Timing
	sched   *engine.Scheduler
	channel *Channel
	rng     *rand.Rand
	logger  *slog.Logger

	peer   *Device
	queue  []*Packet
	busy   bool
	lastRx uint64
	gotAny bool
	stats  DeviceStats

	onReceive func(*Packet)
	onDrop    func(*Packet, string)
	onFrame   func(FrameEvent)
}

// NewDevice creates a device. It cannot send until associated.
func NewDevice(cfg DeviceConfig, sched *engine.Scheduler, ch *Channel, rng *rand.Rand, opts ...DeviceOption) (*Device, error) {
	if cfg.ID == "" {
		return nil, errors.New("device id is required")
	}
	if cfg.RateManager == nil {
		return nil, fmt.Errorf("device %s: rate manager is required", cfg.ID)
	}
	if err := cfg.Phy.Validate(); err != nil {
		return nil, fmt.Errorf("device %s: %w", cfg.ID, err)
	}
	if err := cfg.Mac.Validate(); err != nil {
		return nil, fmt.Errorf("device %s: %w", cfg.ID, err)
	}
	d := &Device{
		cfg:     cfg,
		timing:  cfg.Standard.Timing(),
		sched:   sched,
		channel: ch,
		rng:     rng,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ID returns the endpoint the device is mounted on.
func (d *Device) ID() mobility.EndpointID { return d.cfg.ID }

// Role returns the device role.
func (d *Device) Role() Role { return d.cfg.Role }

// SSID returns the configured SSID.
func (d *Device) SSID() string { return d.cfg.Mac.SSID }

// Associated reports whether the device has a peer.
func (d *Device) Associated() bool { return d.peer != nil }

// Stats returns a snapshot of the MAC counters.
func (d *Device) Stats() DeviceStats { return d.stats }

// QueueLen returns the number of packets waiting for transmission.
func (d *Device) QueueLen() int { return len(d.queue) }

// Associate joins sta to the BSS of ap.
func Associate(ap, sta *Device) error {
	if ap.cfg.Role != RoleAccessPoint || sta.cfg.Role != RoleStation {
		return fmt.Errorf("associate %s with %s: need an access point and a station", ap.cfg.ID, sta.cfg.ID)
	}
	if ap.cfg.Mac.SSID != sta.cfg.Mac.SSID {
		return fmt.Errorf("station %s looking for %q, access point %s serves %q: %w",
			sta.cfg.ID, sta.cfg.Mac.SSID, ap.cfg.ID, ap.cfg.Mac.SSID, ErrSSIDMismatch)
	}
	ap.peer = sta
	sta.peer = ap
	return nil
}

// Send queues p for transmission to the associated peer.
func (d *Device) Send(p *Packet) {
	if d.peer == nil {
		d.drop(p, DropNotAssociated)
		return
	}
	if len(d.queue) >= d.cfg.Mac.QueueLimit {
		d.drop(p, DropQueueFull)
		return
	}
	d.stats.Enqueued++
	d.queue = append(d.queue, p)
	if !d.busy {
		d.startNext()
	}
}

func (d *Device) startNext() {
	if len(d.queue) == 0 {
		d.busy = false
		return
	}
	d.busy = true
	p := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	d.attempt(p, 0)
}

func (d *Device) attempt(p *Packet, retry int) {
	cw := (d.timing.CWMin+1)<<retry - 1
	if cw > d.timing.CWMax || cw < 0 {
		cw = d.timing.CWMax
	}
	backoff := time.Duration(d.rng.Intn(cw+1)) * d.timing.Slot
	d.sched.Schedule(d.timing.DIFS()+backoff, func() { d.transmit(p, retry) })
}

func (d *Device) transmit(p *Packet, retry int) {
	peer := d.peer
	d.stats.Transmissions++

	fwd, err := d.channel.RxPower(d.cfg.Phy.TxPowerDbm, d.cfg.ID, peer.cfg.ID)
	if err != nil {
		d.sched.Abort(fmt.Errorf("frame %s -> %s: %w", d.cfg.ID, peer.cfg.ID, err))
		return
	}
	rev, err := d.channel.RxPower(peer.cfg.Phy.TxPowerDbm, peer.cfg.ID, d.cfg.ID)
	if err != nil {
		d.sched.Abort(fmt.Errorf("frame %s -> %s: %w", peer.cfg.ID, d.cfg.ID, err))
		return
	}

	t := d.timing
	ctrl := d.cfg.Standard.ControlMode()
	delay := d.channel.Delay(d.cfg.ID, peer.cfg.ID)
	mpdu := p.Size + dataOverheadBytes
	mode := d.cfg.RateManager.Select(peer.cfg.ID)
	snr := peer.cfg.Phy.SNR(fwd)

	ev := FrameEvent{
		Sender:     d.cfg.ID,
		Receiver:   peer.cfg.ID,
		PacketUID:  p.UID,
		Size:       mpdu,
		Mode:       mode.Name,
		RxPowerDbm: fwd,
		SNRdB:      snr,
		Attempt:    retry + 1,
		RTS:        mpdu > d.cfg.Mac.RTSThreshold,
	}

	var elapsed time.Duration
	if ev.RTS {
		elapsed += t.Airtime(rtsBytes, ctrl) + delay
		if o := peer.cfg.Phy.Decode(fwd, ctrl, d.rng.Float64()); o != OutcomeDelivered {
			ev.Outcome = o
			d.frameDone(ev, elapsed)
			d.fail(p, retry, elapsed+t.SIFS+t.Airtime(ctsBytes, ctrl)+t.Slot)
			return
		}
		elapsed += t.SIFS + t.Airtime(ctsBytes, ctrl) + delay
		if o := d.cfg.Phy.Decode(rev, ctrl, d.rng.Float64()); o != OutcomeDelivered {
			ev.Outcome = o
			d.frameDone(ev, elapsed)
			d.fail(p, retry, elapsed+t.Slot)
			return
		}
		elapsed += t.SIFS
	}

	elapsed += t.Airtime(mpdu, mode) + delay
	ev.Outcome = peer.cfg.Phy.Decode(fwd, mode, d.rng.Float64())
	d.cfg.RateManager.Report(peer.cfg.ID, snr, ev.Outcome == OutcomeDelivered)
	d.frameDone(ev, elapsed)
	if ev.Outcome != OutcomeDelivered {
		d.fail(p, retry, elapsed+t.SIFS+t.Airtime(ackBytes, ctrl)+t.Slot)
		return
	}

	d.sched.Schedule(elapsed, func() { peer.receive(p) })

	elapsed += t.SIFS + t.Airtime(ackBytes, ctrl) + delay
	if o := d.cfg.Phy.Decode(rev, ctrl, d.rng.Float64()); o != OutcomeDelivered {
		d.fail(p, retry, elapsed+t.Slot)
		return
	}
	d.sched.Schedule(elapsed, func() {
		d.stats.Delivered++
		d.startNext()
	})
}

func (d *Device) frameDone(ev FrameEvent, elapsed time.Duration) {
	ev.At = d.sched.Now() + elapsed
	if d.onFrame != nil {
		d.onFrame(ev)
	}
}

func (d *Device) fail(p *Packet, retry int, wait time.Duration) {
	d.sched.Schedule(wait, func() {
		if retry+1 >= d.cfg.Mac.RetryLimit {
			d.drop(p, DropRetryLimit)
			d.startNext()
			return
		}
		d.stats.Retries++
		d.attempt(p, retry+1)
	})
}

// receive hands a data frame to the upper layer, filtering the duplicate
// that follows a lost ACK.
func (d *Device) receive(p *Packet) {
	if d.gotAny && d.lastRx == p.UID {
		return
	}
	d.gotAny = true
	d.lastRx = p.UID
	if d.onReceive != nil {
		d.onReceive(p)
	}
}

func (d *Device) drop(p *Packet, reason string) {
	d.stats.Dropped++
	d.logger.Debug("packet dropped", "device", d.cfg.ID, "uid", p.UID, "reason", reason)
	if d.onDrop != nil {
		d.onDrop(p, reason)
	}
}
