package field

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

func testEnv() Env {
	return Env{QOverM: 2.4e6, Phase: 0.3, DC: 5, RF: 120, Omega: 2 * math.Pi * 1.2e6, Radius: 4e-3}
}

func coords(x, y, z []float64) dynamo.Coords {
	return dynamo.Coords{x, y, z}
}

func allLaws() map[string]Law {
	return map[string]Law{
		"ideal":        Ideal{},
		"null":         Null{},
		"linear entry": LinearFringe{Span: 0.02},
		"linear exit":  LinearFringe{Span: 0.05, Exit: true},
		"hm entry":     NewExpFringe(0.02, 4e-3, false),
		"hm exit":      NewExpFringe(0.02, 4e-3, true),
	}
}

func TestIdealAntisymmetry(t *testing.T) {
	env := testEnv()
	pos := coords([]float64{1e-3, -2e-3, 0}, []float64{1e-3, -2e-3, 0}, []float64{0, 0.1, 0.2})
	dst := dynamo.NewCoords(3)

	for _, tm := range []float64{0, 1e-7, 3.3e-7, 5e-6} {
		Ideal{}.Accel(dst, pos, tm, env)
		for n := 0; n < 3; n++ {
			assert.Equal(t, -dst[dynamo.Y][n], dst[dynamo.X][n], "t=%g n=%d", tm, n)
			assert.Zero(t, dst[dynamo.Z][n])
		}
	}
}

func TestIdealMatchesMathieu(t *testing.T) {
	env := testEnv()
	pos := coords([]float64{1e-3}, []float64{2e-3}, []float64{0})
	dst := dynamo.NewCoords(1)
	tm := 2e-7

	Ideal{}.Accel(dst, pos, tm, env)

	j := (env.DC - env.RF*math.Cos(env.Omega*tm+env.Phase)) / (env.Radius * env.Radius)
	assert.InDelta(t, -env.QOverM*j*1e-3, dst[dynamo.X][0], 1e-9)
	assert.InDelta(t, env.QOverM*j*2e-3, dst[dynamo.Y][0], 1e-9)
}

func TestLawsAcceptEmptyEnsemble(t *testing.T) {
	for name, law := range allLaws() {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				law.Accel(dynamo.NewCoords(0), dynamo.NewCoords(0), 1e-6, testEnv())
			})
		})
	}
}

func TestLawsDeterministic(t *testing.T) {
	pos := coords([]float64{1e-3, -5e-4}, []float64{-2e-4, 7e-4}, []float64{0.004, 0.011})
	for name, law := range allLaws() {
		t.Run(name, func(t *testing.T) {
			a, b := dynamo.NewCoords(2), dynamo.NewCoords(2)
			law.Accel(a, pos, 4.2e-7, testEnv())
			law.Accel(b, pos, 4.2e-7, testEnv())
			assert.Equal(t, a, b)
		})
	}
}

func TestNullIsZero(t *testing.T) {
	dst := coords([]float64{1, 2}, []float64{3, 4}, []float64{5, 6})
	Null{}.Accel(dst, dynamo.NewCoords(2), 0, testEnv())
	assert.Equal(t, dynamo.NewCoords(2), dst)
}

func TestFringeContinuity(t *testing.T) {
	tests := []struct {
		name string
		ramp func(float64) (float64, float64)
		want float64
	}{
		{"linear entry", LinearFringe{Span: 0.02}.Ramp, 0},
		{"linear exit", LinearFringe{Span: 0.02, Exit: true}.Ramp, 1},
		{"hm entry", NewExpFringe(0.02, 4e-3, false).Ramp, 0},
		{"hm exit", NewExpFringe(0.02, 4e-3, true).Ramp, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := tt.ramp(0)
			assert.InDelta(t, tt.want, v, 1e-15)
		})
	}
}

func TestLinearRampEnds(t *testing.T) {
	entry := LinearFringe{Span: 0.05}
	exit := LinearFringe{Span: 0.05, Exit: true}

	v, s := entry.Ramp(0.05)
	assert.InDelta(t, 1, v, 1e-15)
	assert.InDelta(t, 20, s, 1e-12)

	v, s = exit.Ramp(0.05)
	assert.InDelta(t, 0, v, 1e-15)
	assert.InDelta(t, -20, s, 1e-12)
}

func TestExpFringeSlopeIsDerivative(t *testing.T) {
	for _, exit := range []bool{false, true} {
		h := NewExpFringe(0.015, 5e-3, exit)
		for _, z := range []float64{0, 0.002, 0.0075, 0.015} {
			const dz = 1e-9
			up, _ := h.Ramp(z + dz)
			down, _ := h.Ramp(z - dz)
			_, slope := h.Ramp(z)
			assert.InEpsilon(t, (up-down)/(2*dz), slope, 1e-5, "exit=%v z=%g", exit, z)
		}
	}
}

func TestLinearFringeAxialTerm(t *testing.T) {
	env := testEnv()
	const d = 0.02
	pos := coords([]float64{2e-3}, []float64{1e-3}, []float64{0.01})
	tm := 1e-7
	eJ := env.QOverM * env.J(tm)

	entry, exit := dynamo.NewCoords(1), dynamo.NewCoords(1)
	LinearFringe{Span: d}.Accel(entry, pos, tm, env)
	LinearFringe{Span: d, Exit: true}.Accel(exit, pos, tm, env)

	want := 0.5 * eJ * (4e-6 - 1e-6) / d
	assert.InEpsilon(t, -want, entry[dynamo.Z][0], 1e-12)
	assert.InEpsilon(t, want, exit[dynamo.Z][0], 1e-12)
	// half way through the gap both ramps are at one half
	assert.InEpsilon(t, -eJ*2e-3*0.5, entry[dynamo.X][0], 1e-12)
	assert.InEpsilon(t, -eJ*2e-3*0.5, exit[dynamo.X][0], 1e-12)
}
