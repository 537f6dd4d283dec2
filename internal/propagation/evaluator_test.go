package propagation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"wifi-rssi-sim/internal/mobility"
)

type countingObserver struct {
	overridden int
	pathloss   int
	last       float64
}

func (c *countingObserver) ObservePropagation(overridden bool, rx float64) {
	if overridden {
		c.overridden++
	} else {
		c.pathloss++
	}
	c.last = rx
}

func newTestRegistry(t *testing.T, positions map[mobility.EndpointID]mobility.Vector) (*mobility.Registry, map[mobility.EndpointID]*mobility.ConstantPosition) {
	t.Helper()
	reg := mobility.NewRegistry()
	providers := make(map[mobility.EndpointID]*mobility.ConstantPosition)
	for id, pos := range positions {
		p := mobility.NewConstantPosition(pos)
		providers[id] = p
		require.NoError(t, reg.Register(id, p))
	}
	return reg, providers
}

func TestLogDistanceFormula(t *testing.T) {
	m := DefaultLogDistance()
	require.NoError(t, m.Validate())
	require.InDelta(t, 46.6777, m.Loss(1), 1e-9)
	require.InDelta(t, 46.6777+30, m.Loss(10), 1e-9)
	require.InDelta(t, 46.6777+30*math.Log10(2), m.Loss(2), 1e-9)
	require.InDelta(t, 16.0206-46.6777-30*math.Log10(5), m.RxPower(16.0206, 5), 1e-9)
}

func TestLogDistanceValidate(t *testing.T) {
	bad := []LogDistance{
		{Exponent: 3, ReferenceDistance: 0, ReferenceLoss: 40},
		{Exponent: -1, ReferenceDistance: 1, ReferenceLoss: 40},
		{Exponent: 3, ReferenceDistance: 1, ReferenceLoss: math.NaN()},
		{Exponent: 3, ReferenceDistance: math.Inf(1), ReferenceLoss: 40},
	}
	for _, m := range bad {
		require.Error(t, m.Validate(), "%+v", m)
	}
}

func TestEvaluatorPathLossMatchesModel(t *testing.T) {
	reg, _ := newTestRegistry(t, map[mobility.EndpointID]mobility.Vector{
		"ap":  {X: 0},
		"sta": {X: 3, Y: 4},
	})
	obs := &countingObserver{}
	ev := NewEvaluator(reg, NewOverrideTable(), DefaultLogDistance(), WithObserver(obs))

	rx, err := ev.CalcRxPower(20, "ap", "sta")
	require.NoError(t, err)
	require.InDelta(t, 20-DefaultLogDistance().Loss(5), rx, 1e-12)
	require.Equal(t, 1, obs.pathloss)
	require.Equal(t, rx, obs.last)
}

func TestEvaluatorMonotonicInDistance(t *testing.T) {
	reg, providers := newTestRegistry(t, map[mobility.EndpointID]mobility.Vector{
		"ap":  {},
		"sta": {},
	})
	ev := NewEvaluator(reg, nil, DefaultLogDistance())

	prev := math.Inf(1)
	for d := 0.0; d <= 200; d += 0.25 {
		providers["sta"].SetPosition(mobility.Vector{X: d})
		rx, err := ev.CalcRxPower(16.0206, "ap", "sta")
		require.NoError(t, err)
		require.LessOrEqual(t, rx, prev, "distance %v", d)
		prev = rx
	}
}

func TestEvaluatorOverrideIgnoresGeometryAndPower(t *testing.T) {
	reg, providers := newTestRegistry(t, map[mobility.EndpointID]mobility.Vector{
		"ap":  {},
		"sta": {X: 2},
	})
	tbl := NewOverrideTable()
	require.NoError(t, tbl.SetOverride("ap", "sta", -50, true))
	obs := &countingObserver{}
	ev := NewEvaluator(reg, tbl, DefaultLogDistance(), WithObserver(obs))

	for _, pos := range []mobility.Vector{{X: 2}, {X: 0}, {X: 500, Y: 10, Z: 3}} {
		providers["sta"].SetPosition(pos)
		for _, tx := range []float64{0, 16.0206, 30} {
			rx, err := ev.CalcRxPower(tx, "ap", "sta")
			require.NoError(t, err)
			require.Equal(t, -50.0, rx)
			rx, err = ev.CalcRxPower(tx, "sta", "ap")
			require.NoError(t, err)
			require.Equal(t, -50.0, rx)
		}
	}
	require.Equal(t, 18, obs.overridden)
	require.Zero(t, obs.pathloss)
}

func TestEvaluatorZeroDistanceIsFinite(t *testing.T) {
	reg, _ := newTestRegistry(t, map[mobility.EndpointID]mobility.Vector{
		"ap":  {X: 1, Y: 1, Z: 1},
		"sta": {X: 1, Y: 1, Z: 1},
	})
	ev := NewEvaluator(reg, nil, DefaultLogDistance())

	first, err := ev.CalcRxPower(16.0206, "ap", "sta")
	require.NoError(t, err)
	require.False(t, math.IsInf(first, 0))
	require.False(t, math.IsNaN(first))
	require.InDelta(t, 16.0206-DefaultReferenceLoss, first, 1e-12)

	second, err := ev.CalcRxPower(16.0206, "ap", "sta")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEvaluatorUnknownEndpoint(t *testing.T) {
	reg, _ := newTestRegistry(t, map[mobility.EndpointID]mobility.Vector{"ap": {}})
	tbl := NewOverrideTable()
	require.NoError(t, tbl.SetOverride("ap", "aux", -50, false))
	ev := NewEvaluator(reg, tbl, DefaultLogDistance())

	_, err := ev.CalcRxPower(16, "ap", "ghost")
	require.True(t, errors.Is(err, ErrUnknownEndpoint))
	var ue *UnknownEndpointError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, mobility.EndpointID("ghost"), ue.ID)

	_, err = ev.CalcRxPower(16, "ghost", "ap")
	require.True(t, errors.As(err, &ue))
	require.Equal(t, mobility.EndpointID("ghost"), ue.ID)

	rx, err := ev.CalcRxPower(16, "ap", "aux")
	require.NoError(t, err, "an override must resolve even without a registered position")
	require.Equal(t, -50.0, rx)

	_, err = ev.CalcRxPower(16, "aux", "ap")
	require.True(t, errors.Is(err, ErrUnknownEndpoint))
}
