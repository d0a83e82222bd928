package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

// RK4 is the classical four-stage Runge-Kutta method on the coupled
// first-order system x' = v, v' = a(x, t).
type RK4 struct {
	k1v, k2v, k3v, k4v dynamo.Coords
	k2x, k3x, k4x      dynamo.Coords
	trial              dynamo.Coords
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if r.trial.Len() != n || r.trial[0] == nil {
		r.k1v = dynamo.NewCoords(n)
		r.k2v = dynamo.NewCoords(n)
		r.k3v = dynamo.NewCoords(n)
		r.k4v = dynamo.NewCoords(n)
		r.k2x = dynamo.NewCoords(n)
		r.k3x = dynamo.NewCoords(n)
		r.k4x = dynamo.NewCoords(n)
		r.trial = dynamo.NewCoords(n)
	}
}

func (r *RK4) Step(f dynamo.Field, ens *dynamo.Ensemble, t, h float64) {
	r.ensureScratch(ens.Len())
	x, v := ens.Pos, ens.Vel
	half := 0.5 * h

	// k1x is v itself.
	f.Pulse(r.k1v, x, t)

	for a := range x {
		floats.AddScaledTo(r.trial[a], x[a], half, v[a])
		floats.AddScaledTo(r.k2x[a], v[a], half, r.k1v[a])
	}
	f.Pulse(r.k2v, r.trial, t+half)

	for a := range x {
		floats.AddScaledTo(r.trial[a], x[a], half, r.k2x[a])
		floats.AddScaledTo(r.k3x[a], v[a], half, r.k2v[a])
	}
	f.Pulse(r.k3v, r.trial, t+half)

	for a := range x {
		floats.AddScaledTo(r.trial[a], x[a], h, r.k3x[a])
		floats.AddScaledTo(r.k4x[a], v[a], h, r.k3v[a])
	}
	f.Pulse(r.k4v, r.trial, t+h)

	h6 := h / 6.0
	for a := range x {
		xa, va := x[a], v[a]
		for i := range xa {
			xa[i] += h6 * (va[i] + 2*r.k2x[a][i] + 2*r.k3x[a][i] + r.k4x[a][i])
		}
		for i := range va {
			va[i] += h6 * (r.k1v[a][i] + 2*r.k2v[a][i] + 2*r.k3v[a][i] + r.k4v[a][i])
		}
	}
}
