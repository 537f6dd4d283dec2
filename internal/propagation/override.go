// Package propagation computes received signal strength between endpoints.
//
// An OverrideTable pins the received power of specific ordered endpoint
// pairs; every other pair falls back to a log-distance path loss model
// evaluated against the endpoints' current positions.
package propagation

import (
	"sort"

	"wifi-rssi-sim/internal/mobility"
)

type pairKey struct {
	sender   mobility.EndpointID
	receiver mobility.EndpointID
}

type overrideEntry struct {
	rssiDbm float64
	// mirror is true when the entry only exists because the reverse pair was
	// registered as symmetric.
	mirror bool
}

// Override is a registered fixed RSSI for one ordered pair.
type Override struct {
	Sender    mobility.EndpointID `json:"sender"`
	Receiver  mobility.EndpointID `json:"receiver"`
	RSSIDbm   float64             `json:"rssi_dbm"`
	Symmetric bool                `json:"symmetric"`
	// Mirror marks the implicit reverse of a symmetric registration.
	Mirror bool `json:"mirror"`
}

// OverrideTable maps ordered endpoint pairs to a fixed RSSI.
//
// Overrides are set once and live for the whole run. Values for a direction
// must agree: registering a different value for a pair that already has one,
// explicitly or as a mirror, fails with *ConflictError in either order.
type OverrideTable struct {
	entries   map[pairKey]overrideEntry
	symmetric map[pairKey]bool
}

// NewOverrideTable creates an empty table.
func NewOverrideTable() *OverrideTable {
	return &OverrideTable{
		entries:   make(map[pairKey]overrideEntry),
		symmetric: make(map[pairKey]bool),
	}
}

// SetOverride pins the RSSI seen by receiver for frames from sender. When
// symmetric is set the reverse direction is pinned to the same value.
// The table is left untouched when any affected direction conflicts.
func (t *OverrideTable) SetOverride(sender, receiver mobility.EndpointID, rssiDbm float64, symmetric bool) error {
	fwd := pairKey{sender: sender, receiver: receiver}
	rev := pairKey{sender: receiver, receiver: sender}

	if err := t.check(fwd, rssiDbm); err != nil {
		return err
	}
	if symmetric && rev != fwd {
		if err := t.check(rev, rssiDbm); err != nil {
			return err
		}
	}

	t.entries[fwd] = overrideEntry{rssiDbm: rssiDbm}
	if symmetric {
		t.symmetric[fwd] = true
		if rev != fwd {
			if _, ok := t.entries[rev]; !ok {
				t.entries[rev] = overrideEntry{rssiDbm: rssiDbm, mirror: true}
			}
		}
	}
	return nil
}

func (t *OverrideTable) check(key pairKey, rssiDbm float64) error {
	existing, ok := t.entries[key]
	if !ok || existing.rssiDbm == rssiDbm {
		return nil
	}
	return &ConflictError{
		Sender:    key.sender,
		Receiver:  key.receiver,
		Existing:  existing.rssiDbm,
		Requested: rssiDbm,
	}
}

// Lookup returns the pinned RSSI for the ordered pair, if any.
func (t *OverrideTable) Lookup(sender, receiver mobility.EndpointID) (float64, bool) {
	if t == nil {
		return 0, false
	}
	e, ok := t.entries[pairKey{sender: sender, receiver: receiver}]
	return e.rssiDbm, ok
}

// Len returns the number of active directions, mirrors included.
func (t *OverrideTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries lists every active direction sorted by sender then receiver.
func (t *OverrideTable) Entries() []Override {
	if t == nil {
		return nil
	}
	out := make([]Override, 0, len(t.entries))
	for k, e := range t.entries {
		out = append(out, Override{
			Sender:    k.sender,
			Receiver:  k.receiver,
			RSSIDbm:   e.rssiDbm,
			Symmetric: t.symmetric[k],
			Mirror:    e.mirror,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sender != out[j].Sender {
			return out[i].Sender < out[j].Sender
		}
		return out[i].Receiver < out[j].Receiver
	})
	return out
}
