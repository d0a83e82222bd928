package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

// RK2 is the explicit midpoint method.
type RK2 struct {
	k1v, k2v dynamo.Coords
	k2x      dynamo.Coords
	trial    dynamo.Coords
}

func NewRK2() *RK2 {
	return &RK2{}
}

func (r *RK2) Step(f dynamo.Field, ens *dynamo.Ensemble, t, h float64) {
	if n := ens.Len(); r.trial.Len() != n || r.trial[0] == nil {
		r.k1v = dynamo.NewCoords(n)
		r.k2v = dynamo.NewCoords(n)
		r.k2x = dynamo.NewCoords(n)
		r.trial = dynamo.NewCoords(n)
	}
	x, v := ens.Pos, ens.Vel
	half := 0.5 * h

	f.Pulse(r.k1v, x, t)
	for a := range x {
		floats.AddScaledTo(r.trial[a], x[a], half, v[a])
		floats.AddScaledTo(r.k2x[a], v[a], half, r.k1v[a])
	}
	f.Pulse(r.k2v, r.trial, t+half)

	for a := range x {
		floats.AddScaled(x[a], h, r.k2x[a])
		floats.AddScaled(v[a], h, r.k2v[a])
	}
}
