// ColorStdoutWriter prints human-friendly, colorized rows to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"wifi-rssi-sim/internal/config"
	"wifi-rssi-sim/internal/flowmon"
	"wifi-rssi-sim/internal/telemetry"
	"wifi-rssi-sim/internal/wifi"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints flow and frame rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg  *config.SimulationConfig
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	c := w.cfg
	fmt.Fprintf(w.out, "Scenario %s%s%s\n", colorCyan, c.Name, colorReset)
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Access point:\t%s\n", c.AP)
	fmt.Fprintf(tw, "Station:\t%s\n", c.STA)
	fmt.Fprintf(tw, "Standard:\t%s (%s)\n", c.Wifi.Standard, c.Wifi.RateManager)
	fmt.Fprintf(tw, "Rate:\t%s\n", c.Traffic.Rate)
	fmt.Fprintf(tw, "RTS threshold:\t%d\n", c.Wifi.RTSThreshold)
	fmt.Fprintf(tw, "Window:\t%s - %s\n", c.Traffic.AppStart, c.SimTime)
	tw.Flush()

	if len(c.Propagation.Overrides) > 0 {
		fmt.Fprintln(w.out, "\nOverrides:")
		tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Sender\tReceiver\tRSSI (dBm)\tSymmetric\n")
		for _, o := range c.Propagation.Overrides {
			fmt.Fprintf(tw, "%s%s%s\t%s%s%s\t%.2f\t%t\n",
				colorBlue, o.Sender, colorReset, colorBlue, o.Receiver, colorReset, o.RSSIDbm, o.Symmetric)
		}
		tw.Flush()
	}
	fmt.Fprintln(w.out)
}

// WriteFlow outputs a single flow row in colorized format.
func (w *ColorStdoutWriter) WriteFlow(r telemetry.FlowRow) error {
	w.once.Do(w.printOverview)

	thrColor := colorGreen
	if r.RxPackets == 0 {
		thrColor = colorRed
	}
	lostColor := colorGray
	if r.LostPackets > 0 {
		lostColor = colorYellow
	}
	fmt.Fprintf(w.out, "%sflow=%d%s ", colorCyan, r.FlowID, colorReset)
	fmt.Fprintf(w.out, "%s%s:%d -> %s:%d %s%s ", colorBlue,
		r.Source, r.SourcePort, r.Destination, r.DestinationPort, flowmon.ProtocolLabel(r.Protocol), colorReset)
	fmt.Fprintf(w.out, "tx=%d rx=%d ", r.TxPackets, r.RxPackets)
	fmt.Fprintf(w.out, "%slost=%d%s ", lostColor, r.LostPackets, colorReset)
	fmt.Fprintf(w.out, "%sthroughput=%.3fMbps%s ", thrColor, r.ThroughputMbps, colorReset)
	fmt.Fprintf(w.out, "%sdelay=%.3fms jitter=%.3fms%s", colorMagenta, r.MeanDelayMs, r.MeanJitterMs, colorReset)
	fmt.Fprintln(w.out)
	return nil
}

// WriteFrame outputs a single frame row in colorized format.
func (w *ColorStdoutWriter) WriteFrame(r telemetry.FrameRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintln(w.out, frameLine(r))
	return nil
}

func frameLine(r telemetry.FrameRow) string {
	outColor := colorGreen
	switch wifi.Outcome(r.Outcome) {
	case wifi.OutcomeCorrupted, wifi.OutcomeLowSNR:
		outColor = colorYellow
	case wifi.OutcomeUndetected:
		outColor = colorRed
	}
	rts := ""
	if r.RTS {
		rts = " rts"
	}
	return fmt.Sprintf("%s[%12.6fs]%s %s%s->%s%s uid=%d try=%d %s%s%s rx=%.2fdBm snr=%.2fdB%s %s%s%s",
		colorGray, float64(r.SimTimeNs)/1e9, colorReset,
		colorBlue, r.Sender, r.Receiver, colorReset,
		r.PacketUID, r.Attempt,
		colorCyan, r.Mode, colorReset,
		r.RxPowerDbm, r.SNRdB, rts,
		outColor, r.Outcome, colorReset)
}
