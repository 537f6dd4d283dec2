package flowmon

import (
	"bufio"
	"fmt"
	"io"
)

// WriteText renders the report in the plain-text layout used for report
// files: one block per flow in discovery order, then the two means.
func WriteText(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)
	for _, f := range r.Flows {
		t := f.Tuple
		fmt.Fprintf(bw, "Flow %d (%s:%d -> %s:%d) proto %s\n",
			f.ID, t.Source, t.SourcePort, t.Destination, t.DestinationPort, ProtocolLabel(t.Protocol))
		fmt.Fprintf(bw, "  Tx Packets: %d\n", f.TxPackets)
		fmt.Fprintf(bw, "  Tx Bytes:   %d\n", f.TxBytes)
		fmt.Fprintf(bw, "  TxOffered:  %f Mbps\n", f.TxOfferedMbps)
		fmt.Fprintf(bw, "  Rx Bytes:   %d\n", f.RxBytes)
		fmt.Fprintf(bw, "  Throughput: %f Mbps\n", f.ThroughputMbps)
		fmt.Fprintf(bw, "  Mean delay:  %f ms\n", f.MeanDelayMs)
		fmt.Fprintf(bw, "  Mean jitter:  %f ms\n", f.MeanJitterMs)
		fmt.Fprintf(bw, "  Rx Packets: %d\n", f.RxPackets)
	}
	fmt.Fprintf(bw, "\n\n  Mean flow throughput: %f\n", r.MeanFlowThroughputMbps)
	fmt.Fprintf(bw, "  Mean flow delay: %f\n", r.MeanFlowDelayMs)
	return bw.Flush()
}
