// Package scenario holds named link setups that overlay positions,
// auxiliary endpoints and RSSI overrides onto a configuration.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"wifi-rssi-sim/internal/config"
	"wifi-rssi-sim/internal/mobility"
)

// ErrUnknown is returned by Lookup for a name that is neither a preset nor
// a readable file.
var ErrUnknown = errors.New("unknown scenario")

// Scenario describes a link setup. Unset positions keep the configured
// ones; endpoints and overrides replace the configured lists.
type Scenario struct {
	Name        string            `yaml:"name,omitempty"`
	Description string            `yaml:"description,omitempty"`
	AP          *mobility.Vector  `yaml:"ap,omitempty"`
	STA         *mobility.Vector  `yaml:"sta,omitempty"`
	Endpoints   []config.Endpoint `yaml:"endpoints,omitempty"`
	Overrides   []config.Override `yaml:"overrides,omitempty"`
	Unplaced    []string          `yaml:"unplaced,omitempty"`
	StationSSID string            `yaml:"station_ssid,omitempty"`
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &s, nil
}

// Lookup returns the built-in preset called name, or loads name as a file.
func Lookup(name string) (*Scenario, error) {
	if s, ok := BuiltIn()[name]; ok {
		return &s, nil
	}
	if _, err := os.Stat(name); err == nil {
		return Load(name)
	}
	return nil, fmt.Errorf("%w %q (presets: %v)", ErrUnknown, name, Names())
}

// Names lists the built-in presets in alphabetical order.
func Names() []string {
	presets := BuiltIn()
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply overlays the scenario onto cfg.
func (s *Scenario) Apply(cfg *config.SimulationConfig) {
	if s.Name != "" {
		cfg.Name = s.Name
	}
	if s.Description != "" {
		cfg.Description = s.Description
	}
	if s.AP != nil {
		cfg.AP = *s.AP
	}
	if s.STA != nil {
		cfg.STA = *s.STA
	}
	cfg.Endpoints = append([]config.Endpoint(nil), s.Endpoints...)
	cfg.Propagation.Overrides = append([]config.Override(nil), s.Overrides...)
	cfg.Unplaced = append([]string(nil), s.Unplaced...)
	if s.StationSSID != "" {
		cfg.Wifi.StationSSID = s.StationSSID
	}
}
