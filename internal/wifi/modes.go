// Package wifi models the parts of an 802.11 link the simulator needs:
// transmission modes, rate selection, a threshold PHY and a DCF-style MAC
// with a drop-tail queue and retransmissions.
package wifi

import (
	"fmt"
	"strings"
	"time"
)

// Standard selects the mode table and PHY timing.
type Standard string

const (
	Standard80211a Standard = "80211a"
	Standard80211g Standard = "80211g"
	Standard80211n Standard = "80211n"
)

// Mode is one modulation and coding scheme.
type Mode struct {
	Name        string  `json:"name"`
	DataRateBps uint64  `json:"data_rate_bps"`
	MinSNRdB    float64 `json:"min_snr_db"`
}

// Mbps returns the data rate in megabits per second.
func (m Mode) Mbps() float64 { return float64(m.DataRateBps) / 1e6 }

var ofdmModes = []Mode{
	{"OfdmRate6Mbps", 6_000_000, 5},
	{"OfdmRate9Mbps", 9_000_000, 6},
	{"OfdmRate12Mbps", 12_000_000, 8},
	{"OfdmRate18Mbps", 18_000_000, 11},
	{"OfdmRate24Mbps", 24_000_000, 14},
	{"OfdmRate36Mbps", 36_000_000, 18},
	{"OfdmRate48Mbps", 48_000_000, 22},
	{"OfdmRate54Mbps", 54_000_000, 24},
}

// HT MCS 0-7, one spatial stream, 20 MHz, long guard interval.
var htModes = []Mode{
	{"HtMcs0", 6_500_000, 5},
	{"HtMcs1", 13_000_000, 8},
	{"HtMcs2", 19_500_000, 11},
	{"HtMcs3", 26_000_000, 14},
	{"HtMcs4", 39_000_000, 18},
	{"HtMcs5", 52_000_000, 22},
	{"HtMcs6", 58_500_000, 24},
	{"HtMcs7", 65_000_000, 26},
}

// ParseStandard accepts "80211n", "802.11n" and "n" style names.
func ParseStandard(s string) (Standard, error) {
	n := strings.ToLower(strings.ReplaceAll(s, ".", ""))
	n = strings.TrimPrefix(n, "80211")
	switch n {
	case "a":
		return Standard80211a, nil
	case "g":
		return Standard80211g, nil
	case "n", "":
		return Standard80211n, nil
	}
	return "", fmt.Errorf("unknown wifi standard %q", s)
}

// Modes returns the data modes of the standard, slowest first.
func (s Standard) Modes() []Mode {
	var src []Mode
	if s == Standard80211n {
		src = htModes
	} else {
		src = ofdmModes
	}
	out := make([]Mode, len(src))
	copy(out, src)
	return out
}

// ControlMode is the rate used for RTS, CTS and ACK frames.
func (s Standard) ControlMode() Mode {
	return ofdmModes[0]
}

// Timing holds the interframe spaces and PHY header duration.
type Timing struct {
	Slot     time.Duration
	SIFS     time.Duration
	Preamble time.Duration
	Symbol   time.Duration
	CWMin    int
	CWMax    int
}

// DIFS returns SIFS plus two slots.
func (t Timing) DIFS() time.Duration { return t.SIFS + 2*t.Slot }

// Timing returns the timing parameters of the standard.
func (s Standard) Timing() Timing {
	t := Timing{
		Slot:     9 * time.Microsecond,
		SIFS:     16 * time.Microsecond,
		Preamble: 20 * time.Microsecond,
		Symbol:   4 * time.Microsecond,
		CWMin:    15,
		CWMax:    1023,
	}
	switch s {
	case Standard80211g:
		t.SIFS = 10 * time.Microsecond
	case Standard80211n:
		// HT mixed format adds HT-SIG and training fields.
		t.Preamble = 36 * time.Microsecond
	}
	return t
}

// Airtime returns how long a frame of size bytes occupies the medium.
func (t Timing) Airtime(size uint32, m Mode) time.Duration {
	bitsPerSymbol := float64(m.DataRateBps) * t.Symbol.Seconds()
	// SERVICE (16) and tail (6) bits wrap the PSDU.
	bits := 16 + 8*float64(size) + 6
	symbols := int64(bits / bitsPerSymbol)
	if float64(symbols)*bitsPerSymbol < bits {
		symbols++
	}
	return t.Preamble + time.Duration(symbols)*t.Symbol
}
