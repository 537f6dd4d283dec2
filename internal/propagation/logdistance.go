package propagation

import (
	"fmt"
	"math"
)

// Defaults of the log-distance model: exponent 3 and the Friis loss at 1 m
// for a 5.15 GHz carrier.
const (
	DefaultExponent          = 3.0
	DefaultReferenceDistance = 1.0
	DefaultReferenceLoss     = 46.6777
)

// LogDistance is the log-distance path loss model
//
//	L(d) = L0 + 10 * n * log10(d / d0)
//
// Distances below d0 are clamped to d0, so co-located endpoints see L0.
type LogDistance struct {
	Exponent          float64 `yaml:"exponent" json:"exponent"`
	ReferenceDistance float64 `yaml:"reference_distance_m" json:"reference_distance_m"`
	ReferenceLoss     float64 `yaml:"reference_loss_db" json:"reference_loss_db"`
}

// DefaultLogDistance returns the model with its default parameters.
func DefaultLogDistance() LogDistance {
	return LogDistance{
		Exponent:          DefaultExponent,
		ReferenceDistance: DefaultReferenceDistance,
		ReferenceLoss:     DefaultReferenceLoss,
	}
}

// Validate checks that the model yields finite, non-decreasing losses.
func (m LogDistance) Validate() error {
	if !(m.ReferenceDistance > 0) || math.IsInf(m.ReferenceDistance, 0) {
		return fmt.Errorf("log-distance: reference distance must be positive, got %v", m.ReferenceDistance)
	}
	if m.Exponent < 0 || math.IsNaN(m.Exponent) || math.IsInf(m.Exponent, 0) {
		return fmt.Errorf("log-distance: exponent must be a non-negative number, got %v", m.Exponent)
	}
	if math.IsNaN(m.ReferenceLoss) || math.IsInf(m.ReferenceLoss, 0) {
		return fmt.Errorf("log-distance: reference loss must be finite, got %v", m.ReferenceLoss)
	}
	return nil
}

// Loss returns the attenuation in dB at the given distance in metres.
func (m LogDistance) Loss(distance float64) float64 {
	ref := m.ReferenceDistance
	if !(ref > 0) {
		ref = DefaultReferenceDistance
	}
	d := distance
	if !(d > ref) {
		d = ref
	}
	return m.ReferenceLoss + 10*m.Exponent*math.Log10(d/ref)
}

// RxPower returns txPowerDbm minus the loss at distance.
func (m LogDistance) RxPower(txPowerDbm, distance float64) float64 {
	return txPowerDbm - m.Loss(distance)
}
