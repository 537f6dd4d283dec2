package wifi

import (
	"time"

	"wifi-rssi-sim/internal/mobility"
)

// SpeedOfLight in metres per second.
const SpeedOfLight = 299792458.0

// LossModel computes the power received by one endpoint from another.
type LossModel interface {
	CalcRxPower(txPowerDbm float64, sender, receiver mobility.EndpointID) (float64, error)
}

// Channel connects devices through a loss model and a constant-speed
// propagation delay.
type Channel struct {
	loss      LossModel
	positions *mobility.Registry
	speed     float64
}

// NewChannel creates a channel. positions is only used for delays.
func NewChannel(loss LossModel, positions *mobility.Registry) *Channel {
	return &Channel{loss: loss, positions: positions, speed: SpeedOfLight}
}

// RxPower returns the received power of a transmission.
func (c *Channel) RxPower(txPowerDbm float64, from, to mobility.EndpointID) (float64, error) {
	return c.loss.CalcRxPower(txPowerDbm, from, to)
}

// Delay returns the propagation delay between two endpoints, or zero when
// either position is unknown.
func (c *Channel) Delay(from, to mobility.EndpointID) time.Duration {
	if c.positions == nil {
		return 0
	}
	a, ok := c.positions.Position(from)
	if !ok {
		return 0
	}
	b, ok := c.positions.Position(to)
	if !ok {
		return 0
	}
	return time.Duration(a.DistanceTo(b) / c.speed * float64(time.Second))
}
