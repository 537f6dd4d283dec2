// Simulator wiring the two nodes, the traffic and the flow monitor
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"wifi-rssi-sim/internal/config"
	"wifi-rssi-sim/internal/engine"
	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/mobility"
	"wifi-rssi-sim/internal/observability"
	"wifi-rssi-sim/internal/propagation"
	"wifi-rssi-sim/internal/telemetry"
	"wifi-rssi-sim/internal/wifi"
)

// Addresses are handed out station first, as on the original testbed.
var (
	StationAddr     = netip.MustParseAddr("10.1.1.1")
	AccessPointAddr = netip.MustParseAddr("10.1.1.2")
)

// frameBatchSize is how many frame rows are buffered before a flush.
const frameBatchSize = 256

// EndpointInfo describes a registered endpoint by name.
type EndpointInfo struct {
	Name     string              `json:"name"`
	ID       mobility.EndpointID `json:"id"`
	Position *mobility.Vector    `json:"position,omitempty"`
	Device   bool                `json:"device"`
}

// OverrideInfo is an override table entry with endpoint names resolved.
type OverrideInfo struct {
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	RSSIDbm   float64 `json:"rssi_dbm"`
	Symmetric bool    `json:"symmetric"`
	Mirror    bool    `json:"mirror"`
}

// Result is the outcome of a completed run.
type Result struct {
	RunID     string
	Report    *flowmon.Report
	Records   []flowmon.Record
	Flows     []telemetry.FlowRow
	AP        wifi.DeviceStats
	STA       wifi.DeviceStats
	Received  uint64
	Simulated time.Duration
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithFlowWriter sets the sink for the final flow rows.
func WithFlowWriter(w FlowWriter) Option {
	return func(s *Simulator) { s.flowWriter = w }
}

// WithFrameWriter sets the sink for frame rows.
func WithFrameWriter(w FrameWriter) Option {
	return func(s *Simulator) { s.frameWriter = w }
}

// WithCollector records metrics into c.
func WithCollector(c *observability.Collector) Option {
	return func(s *Simulator) { s.collector = c }
}

// WithLogger sets the simulator logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithRunID fixes the run identifier instead of a random one.
func WithRunID(id string) Option {
	return func(s *Simulator) { s.runID = id }
}

// WithClock sets the wall clock used to timestamp rows.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// Simulator runs one two-node scenario from its configuration.
type Simulator struct {
	cfg    *config.SimulationConfig
	runID  string
	logger *slog.Logger
	now    func() time.Time

	registry  *mobility.Registry
	overrides *propagation.OverrideTable
	evaluator *propagation.Evaluator
	sched     *engine.Scheduler
	channel   *wifi.Channel
	monitor   *flowmon.Monitor

	ap, sta *wifi.Device
	source  *OnOffApp
	sink    *PacketSink

	ids   map[string]mobility.EndpointID
	names map[mobility.EndpointID]string

	flowWriter  FlowWriter
	frameWriter FrameWriter
	collector   *observability.Collector

	runStart time.Time
	frames   []telemetry.FrameRow
	result   *Result
}

// NewSimulator builds the registry, the override table, both devices and the
// traffic from cfg. Override conflicts are returned as *propagation.ConflictError.
func NewSimulator(cfg *config.SimulationConfig, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		cfg:       cfg,
		logger:    slog.Default(),
		now:       time.Now,
		registry:  mobility.NewRegistry(),
		overrides: propagation.NewOverrideTable(),
		sched:     engine.NewScheduler(),
		monitor:   flowmon.NewMonitor(),
		ids:       make(map[string]mobility.EndpointID),
		names:     make(map[mobility.EndpointID]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	s.logger = s.logger.With("run_id", s.runID)

	if err := s.registerEndpoints(); err != nil {
		return nil, err
	}
	if err := s.registerOverrides(); err != nil {
		return nil, err
	}

	var evalOpts []propagation.Option
	if s.collector != nil {
		evalOpts = append(evalOpts, propagation.WithObserver(s.collector))
	}
	s.evaluator = propagation.NewEvaluator(s.registry, s.overrides, cfg.Propagation.Model(), evalOpts...)
	s.channel = wifi.NewChannel(s.evaluator, s.registry)

	if err := s.buildDevices(); err != nil {
		return nil, err
	}
	if err := s.buildTraffic(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulator) registerEndpoints() error {
	unplaced := make(map[string]bool, len(s.cfg.Unplaced))
	for _, n := range s.cfg.Unplaced {
		unplaced[n] = true
	}
	nodes := []config.Endpoint{
		{Name: config.AccessPointName, Position: s.cfg.AP},
		{Name: config.StationName, Position: s.cfg.STA},
	}
	for _, e := range append(nodes, s.cfg.Endpoints...) {
		id := mobility.NewEndpointID()
		s.ids[e.Name] = id
		s.names[id] = e.Name
		if unplaced[e.Name] {
			s.logger.Info("endpoint without position", "name", e.Name, "id", id)
			continue
		}
		if err := s.registry.Register(id, mobility.NewConstantPosition(e.Position)); err != nil {
			return fmt.Errorf("register endpoint %s: %w", e.Name, err)
		}
		s.logger.Debug("endpoint registered", "name", e.Name, "id", id, "position", e.Position.String())
	}
	return nil
}

func (s *Simulator) registerOverrides() error {
	for _, o := range s.cfg.Propagation.Overrides {
		err := s.overrides.SetOverride(s.ids[o.Sender], s.ids[o.Receiver], o.RSSIDbm, o.Symmetric)
		if err != nil {
			return fmt.Errorf("override %s -> %s: %w", o.Sender, o.Receiver, err)
		}
		s.logger.Info("rssi override set", "sender", o.Sender, "receiver", o.Receiver,
			"rssi_dbm", o.RSSIDbm, "symmetric", o.Symmetric)
	}
	return nil
}

func (s *Simulator) buildDevices() error {
	w := s.cfg.Wifi
	std, err := wifi.ParseStandard(w.Standard)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(s.cfg.Seed))

	newDevice := func(name string, role wifi.Role, ssid string, opts ...wifi.DeviceOption) (*wifi.Device, error) {
		rm, err := wifi.NewRateManager(w.RateManager, std.Modes(), w.ConstantMode)
		if err != nil {
			return nil, fmt.Errorf("%s rate manager: %w", name, err)
		}
		opts = append(opts,
			wifi.WithFrameObserver(s.onFrame),
			wifi.WithDropHandler(s.onDrop),
			wifi.WithLogger(s.logger.With("device", name)),
		)
		return wifi.NewDevice(wifi.DeviceConfig{
			ID:          s.ids[name],
			Role:        role,
			Standard:    std,
			Phy:         w.Phy,
			Mac:         w.MacConfig(ssid),
			RateManager: rm,
		}, s.sched, s.channel, rng, opts...)
	}

	if s.ap, err = newDevice(config.AccessPointName, wifi.RoleAccessPoint, w.SSID); err != nil {
		return err
	}
	if s.sta, err = newDevice(config.StationName, wifi.RoleStation, w.StationSSIDOrDefault(),
		wifi.WithReceiveHandler(s.onReceive)); err != nil {
		return err
	}
	if err := wifi.Associate(s.ap, s.sta); err != nil {
		if !errors.Is(err, wifi.ErrSSIDMismatch) {
			return err
		}
		s.logger.Warn("station not associated, no traffic will be delivered",
			"ap_ssid", s.ap.SSID(), "sta_ssid", s.sta.SSID())
	}
	return nil
}

func (s *Simulator) buildTraffic() error {
	t := s.cfg.Traffic
	rate, err := config.ParseDataRate(t.Rate)
	if err != nil {
		return fmt.Errorf("traffic rate: %w", err)
	}
	tuple := flowmon.FiveTuple{
		Source:          AccessPointAddr,
		Destination:     StationAddr,
		SourcePort:      t.SourcePort,
		DestinationPort: t.DestinationPort,
		Protocol:        flowmon.ProtoUDP,
	}
	stop := s.cfg.SimTime.Std()
	s.source = NewOnOffApp(s.sched, tuple, rate, t.PacketSize, t.AppStart.Std(), stop, s.sendDatagram)
	s.sink = NewPacketSink(s.sched, netip.AddrPortFrom(StationAddr, t.DestinationPort), 0, stop)
	return nil
}

func (s *Simulator) sendDatagram(d datagram) {
	if _, err := s.monitor.ReportSent(s.sched.Now(), d.tuple, d.uid, d.ipSize()); err != nil {
		s.logger.Debug("flow monitor rejected packet", "uid", d.uid, "error", err)
	}
	s.ap.Send(&wifi.Packet{UID: d.uid, Size: d.ipSize(), Payload: d})
}

func (s *Simulator) onReceive(p *wifi.Packet) {
	d, ok := p.Payload.(datagram)
	if !ok {
		return
	}
	if _, err := s.monitor.ReportReceived(s.sched.Now(), d.tuple, d.uid, p.Size); err != nil {
		s.logger.Debug("flow monitor rejected packet", "uid", d.uid, "error", err)
	}
	s.sink.Receive(d)
}

func (s *Simulator) onDrop(p *wifi.Packet, reason string) {
	s.collector.ObserveDrop(reason)
	d, ok := p.Payload.(datagram)
	if !ok {
		return
	}
	if err := s.monitor.ReportDropped(d.tuple, d.uid, reason); err != nil {
		s.logger.Debug("flow monitor rejected drop", "uid", d.uid, "error", err)
	}
}

func (s *Simulator) onFrame(ev wifi.FrameEvent) {
	s.collector.ObserveFrame(ev)
	if s.frameWriter == nil {
		return
	}
	row := telemetry.NewFrameRow(s.runID, ev, s.runStart)
	row.Sender = s.names[ev.Sender]
	row.Receiver = s.names[ev.Receiver]
	s.frames = append(s.frames, row)
	if len(s.frames) >= frameBatchSize {
		s.flushFrames()
	}
}

func (s *Simulator) flushFrames() {
	if len(s.frames) == 0 || s.frameWriter == nil {
		return
	}
	if err := writeFrames(s.frameWriter, s.frames); err != nil {
		s.logger.Warn("frame write failed", "rows", len(s.frames), "error", err)
	}
	s.frames = s.frames[:0]
}

// Run executes the scenario until the configured simulation time, freezes
// the flow monitor and reduces the records. It fails with the error that
// aborted the event loop, with ctx.Err() on cancellation, or with
// flowmon.ErrEmptyFlowSet when no flow was seen.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if s.result != nil {
		return nil, errors.New("simulation already ran")
	}
	tracer := observability.Tracer()
	ctx, span := tracer.Start(ctx, "simulate")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", s.runID),
		attribute.String("scenario", s.cfg.Name),
		attribute.Int64("sim_time_ns", int64(s.cfg.SimTime.Std())),
	)

	s.runStart = s.now()
	stop := s.cfg.SimTime.Std()
	s.logger.Info("simulation starting", "scenario", s.cfg.Name, "sim_time", s.cfg.SimTime.String(),
		"rate", s.cfg.Traffic.Rate, "interval", s.source.Interval().String())

	if err := s.source.Start(); err != nil {
		return nil, fmt.Errorf("start traffic: %w", err)
	}
	if err := s.sched.Run(ctx, stop); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.flushFrames()
		return nil, fmt.Errorf("simulation aborted at %s: %w", s.sched.Now(), err)
	}
	s.flushFrames()

	s.monitor.CheckForLostPackets(s.sched.Now(), flowmon.DefaultMaxPerHopDelay)
	s.monitor.Freeze()
	records := s.monitor.Records()

	_, reduceSpan := tracer.Start(ctx, "reduce")
	report, err := flowmon.Reduce(records, s.cfg.Window())
	reduceSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("reduce flows: %w", err)
	}
	s.collector.ObserveReport(report)

	received, _ := s.sink.Received()
	res := &Result{
		RunID:     s.runID,
		Report:    report,
		Records:   records,
		Flows:     telemetry.NewFlowRows(s.runID, s.cfg.Output.SimTag, records, report, s.runStart),
		AP:        s.ap.Stats(),
		STA:       s.sta.Stats(),
		Received:  received,
		Simulated: s.sched.Now(),
	}
	s.result = res

	if s.flowWriter != nil {
		if err := writeFlows(s.flowWriter, res.Flows); err != nil {
			s.logger.Warn("flow write failed", "rows", len(res.Flows), "error", err)
		}
	}
	s.logger.Info("simulation finished",
		"flows", len(report.Flows),
		"sent", s.source.Sent(),
		"received", received,
		"retries", res.AP.Retries,
		"dropped", res.AP.Dropped,
		"events", s.sched.Executed(),
		"mean_throughput_mbps", report.MeanFlowThroughputMbps)
	return res, nil
}

// RunID returns the identifier of the run.
func (s *Simulator) RunID() string { return s.runID }

// Config returns the configuration the simulator was built from.
func (s *Simulator) Config() *config.SimulationConfig { return s.cfg }

// Result returns the outcome of the last Run, or nil.
func (s *Simulator) Result() *Result { return s.result }

// EndpointID resolves an endpoint name.
func (s *Simulator) EndpointID(name string) (mobility.EndpointID, bool) {
	id, ok := s.ids[name]
	return id, ok
}

// Endpoints lists the nodes and auxiliary endpoints in configuration order.
func (s *Simulator) Endpoints() []EndpointInfo {
	order := []string{config.AccessPointName, config.StationName}
	for _, e := range s.cfg.Endpoints {
		order = append(order, e.Name)
	}
	out := make([]EndpointInfo, 0, len(order))
	for _, name := range order {
		id := s.ids[name]
		info := EndpointInfo{
			Name:   name,
			ID:     id,
			Device: name == config.AccessPointName || name == config.StationName,
		}
		if pos, ok := s.registry.Position(id); ok {
			info.Position = &pos
		}
		out = append(out, info)
	}
	return out
}

// Overrides lists the override table with endpoint names.
func (s *Simulator) Overrides() []OverrideInfo {
	entries := s.overrides.Entries()
	out := make([]OverrideInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, OverrideInfo{
			Sender:    s.names[e.Sender],
			Receiver:  s.names[e.Receiver],
			RSSIDbm:   e.RSSIDbm,
			Symmetric: e.Symmetric,
			Mirror:    e.Mirror,
		})
	}
	return out
}

// RxPower evaluates the power received by receiver for a frame sent by
// sender at the configured transmit power.
func (s *Simulator) RxPower(sender, receiver string) (float64, error) {
	from, ok := s.ids[sender]
	if !ok {
		return 0, &propagation.UnknownEndpointError{ID: mobility.EndpointID(sender)}
	}
	to, ok := s.ids[receiver]
	if !ok {
		return 0, &propagation.UnknownEndpointError{ID: mobility.EndpointID(receiver)}
	}
	return s.evaluator.CalcRxPower(s.cfg.Wifi.Phy.TxPowerDbm, from, to)
}
