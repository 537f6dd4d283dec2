package scenario

import (
	"wifi-rssi-sim/internal/config"
	"wifi-rssi-sim/internal/mobility"
)

func at(x, y, z float64) *mobility.Vector { return &mobility.Vector{X: x, Y: y, Z: z} }

// BuiltIn returns the predefined link setups.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"real-rssi-test": {
			Name: "real-rssi-test",
			Description: "The access point streams UDP to a station 2 m away. The access point and an " +
				"auxiliary endpoint at 5 m are pinned to -50 dBm in both directions, which leaves the " +
				"station link on the log-distance model.",
			Endpoints: []config.Endpoint{{Name: "aux", Position: mobility.Vector{X: 5}}},
			Overrides: []config.Override{
				{Sender: config.AccessPointName, Receiver: "aux", RSSIDbm: -50, Symmetric: true},
			},
		},
		"pinned-link": {
			Name: "pinned-link",
			Description: "The station sits 40 m away but the link is pinned to -82 dBm in both directions, " +
				"as measured on a real deployment. Geometry no longer matters for this pair.",
			STA: at(40, 0, 0),
			Overrides: []config.Override{
				{Sender: config.AccessPointName, Receiver: config.StationName, RSSIDbm: -82, Symmetric: true},
			},
		},
		"distance-only": {
			Name:        "distance-only",
			Description: "No overrides. Both directions follow the log-distance model over 2 m.",
			STA:         at(2, 0, 0),
		},
		"asymmetric-link": {
			Name: "asymmetric-link",
			Description: "Downlink frames arrive at -60 dBm but the station's acknowledgements fade to " +
				"-96 dBm on the way back, so every frame is retried until the MAC gives up.",
			Overrides: []config.Override{
				{Sender: config.AccessPointName, Receiver: config.StationName, RSSIDbm: -60},
				{Sender: config.StationName, Receiver: config.AccessPointName, RSSIDbm: -96},
			},
		},
		"override-only": {
			Name: "override-only",
			Description: "The station has no known position. Both directions of the link are pinned to " +
				"-70 dBm, so the path loss model is never consulted for it.",
			Unplaced: []string{config.StationName},
			Overrides: []config.Override{
				{Sender: config.AccessPointName, Receiver: config.StationName, RSSIDbm: -70, Symmetric: true},
			},
		},
		"wrong-ssid": {
			Name: "wrong-ssid",
			Description: "The station looks for a network the access point does not serve. Traffic is " +
				"offered but nothing is received, so every flow reports zero throughput.",
			StationSSID: "not-the-ap",
		},
	}
}
