// Package config loads and validates the simulation configuration. Files
// are YAML, checked against a CUE schema before they are decoded.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/mobility"
	"wifi-rssi-sim/internal/propagation"
	"wifi-rssi-sim/internal/wifi"
)

// Names of the two nodes. Overrides refer to them or to auxiliary
// endpoints by name.
const (
	AccessPointName = "ap"
	StationName     = "sta"
)

// ErrInvalid marks configuration errors found by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Endpoint is an auxiliary position without a device, usable as an
// override target.
type Endpoint struct {
	Name     string          `yaml:"name" json:"name"`
	Position mobility.Vector `yaml:"position" json:"position"`
}

// Override pins the received power of one ordered pair.
type Override struct {
	Sender    string  `yaml:"sender" json:"sender"`
	Receiver  string  `yaml:"receiver" json:"receiver"`
	RSSIDbm   float64 `yaml:"rssi_dbm" json:"rssi_dbm"`
	Symmetric bool    `yaml:"symmetric" json:"symmetric"`
}

// PropagationConfig holds the fallback path loss model and the overrides.
type PropagationConfig struct {
	Exponent           float64    `yaml:"exponent" json:"exponent"`
	ReferenceDistanceM float64    `yaml:"reference_distance_m" json:"reference_distance_m"`
	ReferenceLossDB    float64    `yaml:"reference_loss_db" json:"reference_loss_db"`
	Overrides          []Override `yaml:"overrides" json:"overrides"`
}

// Model returns the log-distance model described by the configuration.
func (p PropagationConfig) Model() propagation.LogDistance {
	return propagation.LogDistance{
		Exponent:          p.Exponent,
		ReferenceDistance: p.ReferenceDistanceM,
		ReferenceLoss:     p.ReferenceLossDB,
	}
}

// WifiConfig holds the options shared by both devices. StationSSID lets a
// scenario misconfigure the station; it defaults to SSID.
type WifiConfig struct {
	Standard     string         `yaml:"standard" json:"standard"`
	RateManager  string         `yaml:"rate_manager" json:"rate_manager"`
	ConstantMode string         `yaml:"constant_mode" json:"constant_mode,omitempty"`
	SSID         string         `yaml:"ssid" json:"ssid"`
	StationSSID  string         `yaml:"station_ssid" json:"station_ssid,omitempty"`
	RTSThreshold uint32         `yaml:"rts_threshold" json:"rts_threshold"`
	QueueLimit   int            `yaml:"queue_limit" json:"queue_limit"`
	RetryLimit   int            `yaml:"retry_limit" json:"retry_limit"`
	Phy          wifi.PhyConfig `yaml:"phy" json:"phy"`
}

// MacConfig returns the MAC settings for a device with the given SSID.
func (w WifiConfig) MacConfig(ssid string) wifi.MacConfig {
	return wifi.MacConfig{
		SSID:         ssid,
		RTSThreshold: w.RTSThreshold,
		QueueLimit:   w.QueueLimit,
		RetryLimit:   w.RetryLimit,
	}
}

// StationSSIDOrDefault returns the SSID the station looks for.
func (w WifiConfig) StationSSIDOrDefault() string {
	if w.StationSSID != "" {
		return w.StationSSID
	}
	return w.SSID
}

// TrafficConfig describes the constant bit rate source on the access point.
type TrafficConfig struct {
	Rate            string   `yaml:"rate" json:"rate"`
	PacketSize      uint32   `yaml:"packet_size" json:"packet_size"`
	AppStart        Duration `yaml:"app_start" json:"app_start"`
	DestinationPort uint16   `yaml:"port" json:"port"`
	SourcePort      uint16   `yaml:"source_port" json:"source_port"`
}

// OutputConfig places the text report at Dir + "/" + SimTag.
type OutputConfig struct {
	Dir    string `yaml:"dir" json:"dir"`
	SimTag string `yaml:"sim_tag" json:"sim_tag"`
}

// ReportPath returns the report file path.
func (o OutputConfig) ReportPath() string {
	return o.Dir + "/" + o.SimTag
}

// SimulationConfig is the root configuration of a run.
type SimulationConfig struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description,omitempty"`
	SimTime     Duration        `yaml:"sim_time" json:"sim_time"`
	Seed        int64           `yaml:"seed" json:"seed"`
	AP          mobility.Vector `yaml:"ap" json:"ap"`
	STA         mobility.Vector `yaml:"sta" json:"sta"`
	Endpoints   []Endpoint      `yaml:"endpoints" json:"endpoints"`
	// Unplaced nodes have no registered position and can only be reached
	// through overrides.
	Unplaced    []string          `yaml:"unplaced" json:"unplaced,omitempty"`
	Propagation PropagationConfig `yaml:"propagation" json:"propagation"`
	Wifi        WifiConfig        `yaml:"wifi" json:"wifi"`
	Traffic     TrafficConfig     `yaml:"traffic" json:"traffic"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// Default returns the two-node scenario: an 802.11n access point at the
// origin streaming 50Mb/s of UDP to a station 2 m away, with the access
// point and an auxiliary endpoint at (5,0,0) pinned to -50 dBm.
func Default() *SimulationConfig {
	model := propagation.DefaultLogDistance()
	mac := wifi.DefaultMacConfig()
	return &SimulationConfig{
		Name:    "real-rssi-test",
		SimTime: Duration(10 * time.Second),
		Seed:    1,
		AP:      mobility.Vector{},
		STA:     mobility.Vector{X: 2},
		Endpoints: []Endpoint{
			{Name: "aux", Position: mobility.Vector{X: 5}},
		},
		Propagation: PropagationConfig{
			Exponent:           model.Exponent,
			ReferenceDistanceM: model.ReferenceDistance,
			ReferenceLossDB:    model.ReferenceLoss,
			Overrides: []Override{
				{Sender: AccessPointName, Receiver: "aux", RSSIDbm: -50, Symmetric: true},
			},
		},
		Wifi: WifiConfig{
			Standard:     string(wifi.Standard80211n),
			RateManager:  wifi.RateManagerIdeal,
			SSID:         mac.SSID,
			RTSThreshold: mac.RTSThreshold,
			QueueLimit:   mac.QueueLimit,
			RetryLimit:   mac.RetryLimit,
			Phy:          wifi.DefaultPhyConfig(),
		},
		Traffic: TrafficConfig{
			Rate:            "50Mb/s",
			PacketSize:      1420,
			AppStart:        Duration(500 * time.Millisecond),
			DestinationPort: 9,
			SourcePort:      49153,
		},
		Output: OutputConfig{Dir: "./", SimTag: "default"},
	}
}

// Load reads a YAML file, validates it against the CUE schema and decodes
// it over Default(). An empty schemaPath uses the embedded schema.
func Load(configPath, schemaPath string) (*SimulationConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	schema, err := loadSchema(schemaPath)
	if err != nil {
		return nil, err
	}
	if err := ValidateWithCue(configPath, data, schema); err != nil {
		return nil, err
	}
	cfg, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode unmarshals YAML over the defaults without schema validation.
// Unknown fields are rejected.
func Decode(data []byte) (*SimulationConfig, error) {
	cfg := Default()
	// Lists replace the defaults instead of merging into them.
	cfg.Endpoints = nil
	cfg.Propagation.Overrides = nil
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints the schema cannot express.
func (c *SimulationConfig) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.SimTime.Std() <= 0 {
		add("sim_time must be positive, got %s", c.SimTime)
	}
	if c.Traffic.AppStart.Std() < 0 {
		add("traffic.app_start must not be negative, got %s", c.Traffic.AppStart)
	}
	if c.Traffic.AppStart.Std() >= c.SimTime.Std() {
		add("traffic.app_start %s must be before sim_time %s", c.Traffic.AppStart, c.SimTime)
	}
	rate, err := ParseDataRate(c.Traffic.Rate)
	if err != nil {
		add("traffic.rate: %v", err)
	}
	if c.Traffic.PacketSize == 0 {
		add("traffic.packet_size must be positive")
	} else if err == nil && PacketInterval(c.Traffic.PacketSize, rate) < time.Nanosecond {
		add("traffic.rate %s sends a %d-byte packet in under 1ns", c.Traffic.Rate, c.Traffic.PacketSize)
	}
	if err := c.Propagation.Model().Validate(); err != nil {
		add("propagation: %v", err)
	}
	if _, err := wifi.ParseStandard(c.Wifi.Standard); err != nil {
		add("wifi.standard: %v", err)
	}
	switch c.Wifi.RateManager {
	case wifi.RateManagerIdeal, wifi.RateManagerConstant:
	default:
		add("wifi.rate_manager must be %q or %q, got %q", wifi.RateManagerIdeal, wifi.RateManagerConstant, c.Wifi.RateManager)
	}
	if err := c.Wifi.MacConfig(c.Wifi.SSID).Validate(); err != nil {
		add("wifi: %v", err)
	}
	if err := c.Wifi.Phy.Validate(); err != nil {
		add("wifi.phy: %v", err)
	}
	if c.Output.SimTag == "" {
		add("output.sim_tag must not be empty")
	}

	names := map[string]bool{AccessPointName: true, StationName: true}
	for i, e := range c.Endpoints {
		if e.Name == "" {
			add("endpoints[%d]: name is required", i)
			continue
		}
		if names[e.Name] {
			add("endpoints[%d]: duplicate name %q", i, e.Name)
		}
		names[e.Name] = true
	}
	for i, n := range c.Unplaced {
		if n != AccessPointName && n != StationName {
			add("unplaced[%d]: must be %q or %q, got %q", i, AccessPointName, StationName, n)
		}
	}
	for i, o := range c.Propagation.Overrides {
		if !names[o.Sender] {
			add("propagation.overrides[%d]: unknown sender %q", i, o.Sender)
		}
		if !names[o.Receiver] {
			add("propagation.overrides[%d]: unknown receiver %q", i, o.Receiver)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// PacketInterval is the gap between packets of size bytes offered at
// rateBps, truncated to whole nanoseconds.
func PacketInterval(size uint32, rateBps uint64) time.Duration {
	return time.Duration(float64(size) * 8 / float64(rateBps) * float64(time.Second))
}

// Window returns the observation window of the run.
func (c *SimulationConfig) Window() flowmon.Window {
	return flowmon.Window{AppStart: c.Traffic.AppStart.Std(), Stop: c.SimTime.Std()}
}
