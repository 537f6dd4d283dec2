package wifi

import (
	"fmt"
	"math"
)

// Defaults for the PHY.
const (
	DefaultTxPowerDbm       = 16.0206
	DefaultNoiseFigureDB    = 7.0
	DefaultChannelWidthMHz  = 20
	DefaultRxSensitivityDbm = -101.0
)

// PhyConfig configures the threshold receiver.
type PhyConfig struct {
	TxPowerDbm       float64 `yaml:"tx_power_dbm" json:"tx_power_dbm"`
	NoiseFigureDB    float64 `yaml:"noise_figure_db" json:"noise_figure_db"`
	ChannelWidthMHz  int     `yaml:"channel_width_mhz" json:"channel_width_mhz"`
	RxSensitivityDbm float64 `yaml:"rx_sensitivity_dbm" json:"rx_sensitivity_dbm"`
	// FrameErrorRate drops otherwise decodable frames at random.
	FrameErrorRate float64 `yaml:"frame_error_rate" json:"frame_error_rate"`
}

// DefaultPhyConfig returns a 20 MHz receiver with a 7 dB noise figure.
func DefaultPhyConfig() PhyConfig {
	return PhyConfig{
		TxPowerDbm:       DefaultTxPowerDbm,
		NoiseFigureDB:    DefaultNoiseFigureDB,
		ChannelWidthMHz:  DefaultChannelWidthMHz,
		RxSensitivityDbm: DefaultRxSensitivityDbm,
	}
}

// Validate checks the configuration.
func (p PhyConfig) Validate() error {
	if p.ChannelWidthMHz <= 0 {
		return fmt.Errorf("channel width must be positive, got %d MHz", p.ChannelWidthMHz)
	}
	if p.FrameErrorRate < 0 || p.FrameErrorRate >= 1 {
		return fmt.Errorf("frame error rate must be in [0,1), got %g", p.FrameErrorRate)
	}
	return nil
}

// NoiseFloorDbm is thermal noise over the channel width plus the noise figure.
func (p PhyConfig) NoiseFloorDbm() float64 {
	return -174 + 10*math.Log10(float64(p.ChannelWidthMHz)*1e6) + p.NoiseFigureDB
}

// SNR returns the signal to noise ratio in dB for a received power.
func (p PhyConfig) SNR(rxPowerDbm float64) float64 {
	return rxPowerDbm - p.NoiseFloorDbm()
}

// Outcome of a single frame reception.
type Outcome string

const (
	OutcomeDelivered  Outcome = "delivered"
	OutcomeUndetected Outcome = "undetected"
	OutcomeLowSNR     Outcome = "low-snr"
	OutcomeCorrupted  Outcome = "corrupted"
)

// Decode decides whether a frame at rxPowerDbm sent with mode is received.
// draw is a uniform sample in [0,1) used for the random frame error rate.
func (p PhyConfig) Decode(rxPowerDbm float64, mode Mode, draw float64) Outcome {
	if rxPowerDbm < p.RxSensitivityDbm {
		return OutcomeUndetected
	}
	if p.SNR(rxPowerDbm) < mode.MinSNRdB {
		return OutcomeLowSNR
	}
	if draw < p.FrameErrorRate {
		return OutcomeCorrupted
	}
	return OutcomeDelivered
}
