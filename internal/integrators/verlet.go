package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

// Verlet is velocity Verlet. The force depends on position and time only,
// so the second evaluation at the new position is exact for the scheme.
type Verlet struct {
	acc     dynamo.Coords
	accNext dynamo.Coords
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(f dynamo.Field, ens *dynamo.Ensemble, t, h float64) {
	if n := ens.Len(); v.acc.Len() != n || v.acc[0] == nil {
		v.acc = dynamo.NewCoords(n)
		v.accNext = dynamo.NewCoords(n)
	}
	x, vel := ens.Pos, ens.Vel
	h2 := 0.5 * h * h

	f.Pulse(v.acc, x, t)
	for a := range x {
		floats.AddScaled(x[a], h, vel[a])
		floats.AddScaled(x[a], h2, v.acc[a])
	}

	f.Pulse(v.accNext, x, t+h)
	halfDt := 0.5 * h
	for a := range vel {
		floats.AddScaled(vel[a], halfDt, v.acc[a])
		floats.AddScaled(vel[a], halfDt, v.accNext[a])
	}
}
