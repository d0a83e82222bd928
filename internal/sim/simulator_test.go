package sim

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/field"
	"github.com/san-kum/qmfsim/internal/integrators"
)

func testDevice(t *testing.T) *field.Device {
	t.Helper()
	dev, err := field.NewDevice(field.Drive{RF: 120, DC: 5, Frequency: 1.2e6, Radius: 4e-3}, []field.ZoneSpec{
		{Kind: field.KindHMEntry, Span: 0.002},
		{Kind: field.KindIdeal, Span: 0.30},
		{Kind: field.KindLinearExit, Span: 0.05},
	})
	require.NoError(t, err)
	return dev
}

func ion(tag string, amu float64, count int) dynamo.Species {
	return dynamo.Species{
		Tag:      tag,
		Count:    count,
		Mass:     amu * 1.66053906660e-27,
		Charge:   1.602176634e-19,
		SpreadX:  2e-4,
		SpreadY:  2e-4,
		SpreadVX: 5,
		SpreadVY: 5,
		SpreadVZ: 100,
		Speed:    3e3,
	}
}

func TestStepPlan(t *testing.T) {
	dev := testDevice(t)

	plan, err := StepPlan(dev, ion("a", 40, 1), 0, 0)
	require.NoError(t, err)

	assert.InDelta(t, 1/(1.2e6*100), plan.H, 1e-20)
	want := DefaultMargin * dev.Length() / 3e3 / plan.H
	assert.LessOrEqual(t, float64(plan.Steps), want+1e-6)
	assert.GreaterOrEqual(t, float64(plan.Steps), want-1)
	assert.Equal(t, 14784, plan.Steps)
	assert.Greater(t, plan.Duration()*3e3, 0.352)
}

func TestStepPlanExactTransit(t *testing.T) {
	dev, err := field.NewDevice(field.Drive{Frequency: 1, Radius: 1}, []field.ZoneSpec{
		{Kind: field.KindIdeal, Span: 0.2},
		{Kind: field.KindIdeal, Span: 0.5},
	})
	require.NoError(t, err)

	sp := ion("slow", 40, 1)
	sp.Speed = 0.1
	plan, err := StepPlan(dev, sp, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, 700, plan.Steps)
}

func TestStepPlanRejects(t *testing.T) {
	dev := testDevice(t)
	sp := ion("a", 40, 1)

	_, err := StepPlan(dev, sp, -5, 0)
	assert.ErrorIs(t, err, dynamo.ErrParameterBounds)
	_, err = StepPlan(dev, sp, 100, 0.5)
	assert.ErrorIs(t, err, dynamo.ErrParameterBounds)
	sp.Speed = 1e-20
	_, err = StepPlan(dev, sp, 100, 1)
	assert.ErrorIs(t, err, dynamo.ErrParameterBounds)
	_, err = FixedPlan(dev, 100, 0)
	assert.ErrorIs(t, err, dynamo.ErrParameterBounds)
}

func TestRunRecordsEveryTimepoint(t *testing.T) {
	s := New(testDevice(t), func() dynamo.Integrator { return integrators.NewRK4() })

	res, err := s.Run(context.Background(), ion("Ar+", 40, 16), Config{Steps: 50, Seed: 3})
	require.NoError(t, err)

	assert.Equal(t, 50, res.History.Steps())
	assert.Equal(t, 16, res.History.Particles())
	assert.Len(t, res.Time, 50)
	for i, tm := range res.Time {
		assert.InDelta(t, float64(i)*res.Plan.H, tm, 1e-18)
	}
	assert.Equal(t, 16, res.Alive+res.Lost+res.Detected)

	final := res.History.Row(49)
	for n := 0; n < 16; n++ {
		assert.Equal(t, float64(res.Final.Membership[n]), final[n*dynamo.Channels])
		assert.Equal(t, res.Final.Pos[dynamo.Z][n], final[n*dynamo.Channels+3])
	}
}

func TestRunFrozenParticlesStayPut(t *testing.T) {
	dev := testDevice(t)
	sp := ion("wide", 40, 64)
	sp.SpreadX = 3.9e-3
	sp.SpreadVX = 4000

	res, err := New(dev, func() dynamo.Integrator { return integrators.NewRK4() }).
		Run(context.Background(), sp, Config{Steps: 400, Seed: 11})
	require.NoError(t, err)
	require.Positive(t, res.Lost)

	for n, ev := range res.EventStep {
		if ev < 0 {
			continue
		}
		at := res.History.At(ev, n)
		for step := ev; step < res.History.Steps(); step++ {
			s := res.History.At(step, n)
			assert.Equal(t, at.Membership, s.Membership)
			assert.Equal(t, [3]float64{}, s.Vel)
			assert.Equal(t, at.Pos, s.Pos)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	s := New(testDevice(t), func() dynamo.Integrator { return integrators.NewRK4() })
	sp := ion("N2+", 28, 8)

	a, err := s.Run(context.Background(), sp, Config{Steps: 30, Seed: 5})
	require.NoError(t, err)
	b, err := s.Run(context.Background(), sp, Config{Steps: 30, Seed: 5})
	require.NoError(t, err)

	assert.Equal(t, a.History.Row(29), b.History.Row(29))
}

func TestRunSkipHistory(t *testing.T) {
	s := New(testDevice(t), func() dynamo.Integrator { return integrators.NewEuler() })

	res, err := s.Run(context.Background(), ion("a", 40, 4), Config{Steps: 20, SkipHistory: true})
	require.NoError(t, err)

	assert.Equal(t, 1, res.History.Steps())
	assert.InDelta(t, 19*res.Plan.H, res.Time[0], 1e-18)
	assert.Equal(t, res.Final.Pos[dynamo.Z][2], res.History.At(0, 2).Pos[dynamo.Z])
}

func TestRunHardSwitchMatchesBlended(t *testing.T) {
	dev := testDevice(t)
	newRK4 := func() dynamo.Integrator { return integrators.NewRK4() }
	sp := ion("a", 40, 4)

	blended, err := New(dev, newRK4).Run(context.Background(), sp, Config{Steps: 200, Seed: 2})
	require.NoError(t, err)
	hard, err := New(dev, newRK4).Run(context.Background(), sp, Config{Steps: 200, Seed: 2, HardSwitch: true})
	require.NoError(t, err)

	for n := 0; n < sp.Count; n++ {
		a, b := blended.History.At(199, n), hard.History.At(199, n)
		assert.Equal(t, a.Membership, b.Membership)
		for ax := 0; ax < 3; ax++ {
			assert.InDelta(t, b.Pos[ax], a.Pos[ax], 1e-9)
		}
	}
}

type countMetric struct{ n int }

func (c *countMetric) Name() string                          { return "count" }
func (c *countMetric) Observe(ens *dynamo.Ensemble, t float64) { c.n++ }
func (c *countMetric) Value() float64                        { return float64(c.n) }
func (c *countMetric) Reset()                                { c.n = 0 }

func TestRunMetricsAndObservers(t *testing.T) {
	s := New(testDevice(t), func() dynamo.Integrator { return integrators.NewEuler() })
	s.AddMetric(func() Metric { return &countMetric{} })

	var calls atomic.Int32
	last := 0
	s.AddObserver(ObserverFunc(func(tag string, step, total int, ens *dynamo.Ensemble) {
		calls.Add(1)
		last = step
		assert.Equal(t, 9, total)
	}))

	res, err := s.Run(context.Background(), ion("a", 40, 2), Config{Steps: 10})
	require.NoError(t, err)

	assert.Equal(t, 10.0, res.Metrics["count"])
	assert.EqualValues(t, 9, calls.Load())
	assert.Equal(t, 9, last)
}

func TestRunCancelled(t *testing.T) {
	s := New(testDevice(t), func() dynamo.Integrator { return integrators.NewEuler() })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, ion("a", 40, 2), Config{Steps: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejects(t *testing.T) {
	dev := testDevice(t)
	s := New(dev, func() dynamo.Integrator { return integrators.NewEuler() })

	bad := ion("a", 40, 2)
	bad.Mass = 0
	_, err := s.Run(context.Background(), bad, Config{})
	assert.ErrorIs(t, err, dynamo.ErrParameterBounds)

	ens := dynamo.NewEnsemble(ion("a", 40, 2), 7)
	_, err = s.RunEnsemble(context.Background(), ens, Config{})
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)

	_, err = New(dev, nil).Run(context.Background(), ion("a", 40, 2), Config{})
	assert.Error(t, err)
}

func TestRunInvalidState(t *testing.T) {
	dev := testDevice(t)
	ens := dynamo.NewEnsemble(ion("a", 40, 1), dev.Zones())
	ens.Vel[dynamo.X][0] = math.Inf(1)

	_, err := New(dev, func() dynamo.Integrator { return integrators.NewEuler() }).
		RunEnsemble(context.Background(), ens, Config{Steps: 5})

	var simErr *dynamo.SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Equal(t, 0, simErr.Step)
	assert.ErrorIs(t, err, dynamo.ErrInvalidState)
}

func TestRunCluster(t *testing.T) {
	s := New(testDevice(t), func() dynamo.Integrator { return integrators.NewRK4() })
	species := []dynamo.Species{ion("N2+", 28, 8), ion("Ar+", 40, 8), ion("Kr+", 84, 8)}
	cfg := Config{Steps: 40, Seed: 100}

	results, err := s.RunCluster(context.Background(), species, cfg)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, sp := range species {
		assert.Equal(t, sp.Tag, results[i].Tag)
		single, err := s.Run(context.Background(), sp, Config{Steps: 40, Seed: 100 + int64(i)})
		require.NoError(t, err)
		assert.Equal(t, single.History.Row(39), results[i].History.Row(39))
	}
}

func TestRunClusterRejectsDuplicateTags(t *testing.T) {
	s := New(testDevice(t), func() dynamo.Integrator { return integrators.NewRK4() })
	_, err := s.RunCluster(context.Background(), []dynamo.Species{ion("a", 1, 1), ion("a", 2, 1)}, Config{Steps: 2})
	assert.ErrorIs(t, err, dynamo.ErrParameterBounds)
}

func TestCalibrateTerminalStates(t *testing.T) {
	dev := testDevice(t)
	ens := dynamo.NewEnsemble(ion("a", 40, 5), dev.Zones())
	r := dev.Drive().Radius
	// inside zone 2; outside radially in zone 1; past the detector; already lost back inside; detected but pulled back
	ens.Pos = dynamo.Coords{
		{0, 2 * r, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0.1, 0.01, 0.5, 0.1, 0.1},
	}
	ens.Membership = []int{1, 1, 3, dynamo.Lost, 4}
	for n := 0; n < 5; n++ {
		ens.Vel[dynamo.Z][n] = 1
	}

	changed := NewCalibrator(dev, 5).Calibrate(ens)

	assert.Equal(t, 2, changed)
	assert.Equal(t, []int{2, dynamo.Lost, 4, dynamo.Lost, 4}, ens.Membership)
	assert.Equal(t, []float64{1, 0, 0, 0, 0}, ens.Vel[dynamo.Z])
}
