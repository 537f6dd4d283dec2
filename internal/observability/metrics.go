// Package observability holds the Prometheus collectors and OpenTelemetry
// tracing setup of the simulator.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/wifi"
)

// Propagation source label values.
const (
	SourceOverride = "override"
	SourcePathLoss = "pathloss"
)

// Collector bundles the run metrics. A nil *Collector ignores every
// observation.
type Collector struct {
	gatherer prometheus.Gatherer

	PropagationEvaluations *prometheus.CounterVec
	Frames                 *prometheus.CounterVec
	RxPower                prometheus.Histogram
	PacketsDropped         *prometheus.CounterVec
	FlowThroughput         *prometheus.GaugeVec
	FlowDelay              *prometheus.GaugeVec
}

// NewCollector registers the collectors against reg, defaulting to the
// global registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	evals, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "propagation_evaluations_total",
		Help: "Received power evaluations, labeled by whether an override or the path loss model answered.",
	}, []string{"source"}), "propagation_evaluations_total")
	if err != nil {
		return nil, err
	}
	frames, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wifi_frames_total",
		Help: "Data frame transmission attempts by reception outcome.",
	}, []string{"outcome"}), "wifi_frames_total")
	if err != nil {
		return nil, err
	}
	dropped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wifi_packets_dropped_total",
		Help: "Packets discarded by the MAC, labeled by reason.",
	}, []string{"reason"}), "wifi_packets_dropped_total")
	if err != nil {
		return nil, err
	}
	rx, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wifi_rx_power_dbm",
		Help:    "Received power of evaluated transmissions in dBm.",
		Buckets: prometheus.LinearBuckets(-100, 10, 10),
	}), "wifi_rx_power_dbm")
	if err != nil {
		return nil, err
	}
	throughput, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flow_throughput_mbps",
		Help: "Reduced throughput per flow in Mbit/s.",
	}, []string{"flow"}), "flow_throughput_mbps")
	if err != nil {
		return nil, err
	}
	delay, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flow_mean_delay_ms",
		Help: "Reduced mean delay per flow in milliseconds.",
	}, []string{"flow"}), "flow_mean_delay_ms")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:               gatherer,
		PropagationEvaluations: evals,
		Frames:                 frames,
		RxPower:                rx,
		PacketsDropped:         dropped,
		FlowThroughput:         throughput,
		FlowDelay:              delay,
	}, nil
}

// ObservePropagation counts an evaluation and records its result.
func (c *Collector) ObservePropagation(overridden bool, rxPowerDbm float64) {
	if c == nil {
		return
	}
	source := SourcePathLoss
	if overridden {
		source = SourceOverride
	}
	c.PropagationEvaluations.WithLabelValues(source).Inc()
	c.RxPower.Observe(rxPowerDbm)
}

// ObserveFrame counts a data frame attempt.
func (c *Collector) ObserveFrame(ev wifi.FrameEvent) {
	if c == nil {
		return
	}
	c.Frames.WithLabelValues(string(ev.Outcome)).Inc()
}

// ObserveDrop counts a MAC drop.
func (c *Collector) ObserveDrop(reason string) {
	if c == nil {
		return
	}
	c.PacketsDropped.WithLabelValues(reason).Inc()
}

// ObserveReport publishes the reduced per-flow figures.
func (c *Collector) ObserveReport(r *flowmon.Report) {
	if c == nil || r == nil {
		return
	}
	for _, f := range r.Flows {
		id := fmt.Sprintf("%d", f.ID)
		c.FlowThroughput.WithLabelValues(id).Set(f.ThroughputMbps)
		c.FlowDelay.WithLabelValues(id).Set(f.MeanDelayMs)
	}
}

// Handler exposes a /metrics handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// WriteTextfile writes all gathered metrics to path in the text format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
