package wifi

import (
	"fmt"

	"wifi-rssi-sim/internal/mobility"
)

// Rate manager names accepted by NewRateManager.
const (
	RateManagerIdeal    = "ideal"
	RateManagerConstant = "constant"
)

// RateManager picks the data mode for the next frame to a peer and learns
// from the outcome of each attempt.
type RateManager interface {
	Select(peer mobility.EndpointID) Mode
	Report(peer mobility.EndpointID, snrDB float64, ok bool)
}

// NewRateManager builds the named manager over modes. mode is only used by
// the constant manager; an empty name picks the fastest mode.
func NewRateManager(name string, modes []Mode, mode string) (RateManager, error) {
	if len(modes) == 0 {
		return nil, fmt.Errorf("rate manager %q: no modes", name)
	}
	switch name {
	case RateManagerIdeal, "":
		return &IdealManager{modes: modes, snr: make(map[mobility.EndpointID]float64)}, nil
	case RateManagerConstant:
		if mode == "" {
			return &ConstantManager{mode: modes[len(modes)-1]}, nil
		}
		for _, m := range modes {
			if m.Name == mode {
				return &ConstantManager{mode: m}, nil
			}
		}
		return nil, fmt.Errorf("constant rate manager: unknown mode %q", mode)
	}
	return nil, fmt.Errorf("unknown rate manager %q", name)
}

// IdealManager uses the fastest mode whose SNR threshold is met by the last
// SNR observed towards the peer. Until something is observed it uses the
// slowest mode.
type IdealManager struct {
	modes []Mode
	snr   map[mobility.EndpointID]float64
}

func (m *IdealManager) Select(peer mobility.EndpointID) Mode {
	snr, ok := m.snr[peer]
	if !ok {
		return m.modes[0]
	}
	best := m.modes[0]
	for _, mode := range m.modes {
		if mode.MinSNRdB <= snr {
			best = mode
		}
	}
	return best
}

func (m *IdealManager) Report(peer mobility.EndpointID, snrDB float64, ok bool) {
	m.snr[peer] = snrDB
}

// ConstantManager always uses one mode.
type ConstantManager struct {
	mode Mode
}

func (m *ConstantManager) Select(mobility.EndpointID) Mode { return m.mode }

func (m *ConstantManager) Report(mobility.EndpointID, float64, bool) {}
