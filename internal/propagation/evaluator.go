package propagation

import (
	"wifi-rssi-sim/internal/mobility"
)

// Observer is told about every evaluation. It must not influence results.
type Observer interface {
	ObservePropagation(overridden bool, rxPowerDbm float64)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithObserver attaches an observer to the evaluator.
func WithObserver(o Observer) Option {
	return func(e *Evaluator) { e.observer = o }
}

// Evaluator computes received power for a transmission between two
// endpoints. It only reads the registry and the override table; both are
// owned by the scenario setup and must outlive the evaluator.
type Evaluator struct {
	registry  *mobility.Registry
	overrides *OverrideTable
	model     LogDistance
	observer  Observer
}

// NewEvaluator creates an evaluator. A nil override table behaves as empty.
func NewEvaluator(registry *mobility.Registry, overrides *OverrideTable, model LogDistance, opts ...Option) *Evaluator {
	e := &Evaluator{
		registry:  registry,
		overrides: overrides,
		model:     model,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the fallback path loss model.
func (e *Evaluator) Model() LogDistance { return e.model }

// CalcRxPower returns the power in dBm received by receiver when sender
// transmits at txPowerDbm.
//
// A pinned pair returns its fixed value regardless of transmit power and
// geometry. Otherwise the log-distance loss over the current Euclidean
// distance is subtracted from txPowerDbm.
func (e *Evaluator) CalcRxPower(txPowerDbm float64, sender, receiver mobility.EndpointID) (float64, error) {
	if rssi, ok := e.overrides.Lookup(sender, receiver); ok {
		e.observe(true, rssi)
		return rssi, nil
	}

	var (
		from, to mobility.Vector
		ok       bool
	)
	if e.registry != nil {
		from, ok = e.registry.Position(sender)
	}
	if !ok {
		return 0, &UnknownEndpointError{ID: sender}
	}
	to, ok = e.registry.Position(receiver)
	if !ok {
		return 0, &UnknownEndpointError{ID: receiver}
	}

	rx := e.model.RxPower(txPowerDbm, from.DistanceTo(to))
	e.observe(false, rx)
	return rx, nil
}

func (e *Evaluator) observe(overridden bool, rx float64) {
	if e.observer != nil {
		e.observer.ObservePropagation(overridden, rx)
	}
}
