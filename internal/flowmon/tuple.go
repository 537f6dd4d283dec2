package flowmon

import (
	"fmt"
	"net/netip"
	"strconv"
)

// IP protocol numbers with a textual label in reports.
const (
	ProtoTCP uint8 = 6
	ProtoUDP uint8 = 17
)

// FlowID identifies a flow within one monitor, starting at 1.
type FlowID uint32

// FiveTuple identifies a unidirectional flow.
type FiveTuple struct {
	Source          netip.Addr `json:"src_addr"`
	Destination     netip.Addr `json:"dst_addr"`
	SourcePort      uint16     `json:"src_port"`
	DestinationPort uint16     `json:"dst_port"`
	Protocol        uint8      `json:"proto"`
}

func (t FiveTuple) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d proto %s",
		t.Source, t.SourcePort, t.Destination, t.DestinationPort, ProtocolLabel(t.Protocol))
}

// ProtocolLabel renders TCP and UDP by name and anything else as its number.
func ProtocolLabel(proto uint8) string {
	switch proto {
	case ProtoTCP:
		return "TCP"
	case ProtoUDP:
		return "UDP"
	default:
		return strconv.Itoa(int(proto))
	}
}
