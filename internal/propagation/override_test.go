package propagation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverrideSymmetricLookup(t *testing.T) {
	tbl := NewOverrideTable()
	require.NoError(t, tbl.SetOverride("ap", "sta", -50, true))

	fwd, ok := tbl.Lookup("ap", "sta")
	require.True(t, ok)
	rev, ok := tbl.Lookup("sta", "ap")
	require.True(t, ok)
	require.Equal(t, fwd, rev)
	require.Equal(t, -50.0, fwd)
	require.Equal(t, 2, tbl.Len())
}

func TestOverrideAsymmetricLeavesReverseOpen(t *testing.T) {
	tbl := NewOverrideTable()
	require.NoError(t, tbl.SetOverride("ap", "sta", -60, false))

	_, ok := tbl.Lookup("sta", "ap")
	require.False(t, ok)
	require.Equal(t, 1, tbl.Len())
}

func TestOverrideConflicts(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*OverrideTable) error
		apply func(*OverrideTable) error
	}{
		{
			name:  "same direction different value",
			setup: func(tb *OverrideTable) error { return tb.SetOverride("a", "b", -50, false) },
			apply: func(tb *OverrideTable) error { return tb.SetOverride("a", "b", -40, false) },
		},
		{
			name:  "explicit reverse against mirror",
			setup: func(tb *OverrideTable) error { return tb.SetOverride("a", "b", -50, true) },
			apply: func(tb *OverrideTable) error { return tb.SetOverride("b", "a", -70, false) },
		},
		{
			name:  "symmetric against existing explicit reverse",
			setup: func(tb *OverrideTable) error { return tb.SetOverride("b", "a", -70, false) },
			apply: func(tb *OverrideTable) error { return tb.SetOverride("a", "b", -50, true) },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tbl := NewOverrideTable()
			require.NoError(t, tc.setup(tbl))
			before := tbl.Entries()

			err := tc.apply(tbl)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrConflict))
			var ce *ConflictError
			require.True(t, errors.As(err, &ce))
			require.NotEqual(t, ce.Existing, ce.Requested)
			require.Equal(t, before, tbl.Entries(), "conflicting registration must not modify the table")
		})
	}
}

func TestOverrideIdempotent(t *testing.T) {
	tbl := NewOverrideTable()
	require.NoError(t, tbl.SetOverride("a", "b", -50, true))
	require.NoError(t, tbl.SetOverride("a", "b", -50, true))
	require.NoError(t, tbl.SetOverride("a", "b", -50, false))
	require.Equal(t, 2, tbl.Len())
}

func TestOverrideExplicitPromotesMirror(t *testing.T) {
	tbl := NewOverrideTable()
	require.NoError(t, tbl.SetOverride("a", "b", -50, true))

	entries := tbl.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, Override{Sender: "a", Receiver: "b", RSSIDbm: -50, Symmetric: true}, entries[0])
	require.Equal(t, Override{Sender: "b", Receiver: "a", RSSIDbm: -50, Mirror: true}, entries[1])

	require.NoError(t, tbl.SetOverride("b", "a", -50, false))
	entries = tbl.Entries()
	require.False(t, entries[1].Mirror)
}

func TestOverrideSelfPair(t *testing.T) {
	tbl := NewOverrideTable()
	require.NoError(t, tbl.SetOverride("a", "a", -30, true))
	require.Equal(t, 1, tbl.Len())
	v, ok := tbl.Lookup("a", "a")
	require.True(t, ok)
	require.Equal(t, -30.0, v)
}

func TestNilTableLookup(t *testing.T) {
	var tbl *OverrideTable
	_, ok := tbl.Lookup("a", "b")
	require.False(t, ok)
	require.Zero(t, tbl.Len())
	require.Nil(t, tbl.Entries())
}
