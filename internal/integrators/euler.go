package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

// Euler is the semi-implicit (symplectic) Euler step: velocity first, then
// position from the new velocity.
type Euler struct {
	acc dynamo.Coords
}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(f dynamo.Field, ens *dynamo.Ensemble, t, h float64) {
	if e.acc.Len() != ens.Len() {
		e.acc = dynamo.NewCoords(ens.Len())
	}

	f.Pulse(e.acc, ens.Pos, t)
	for a := range ens.Pos {
		floats.AddScaled(ens.Vel[a], h, e.acc[a])
		floats.AddScaled(ens.Pos[a], h, ens.Vel[a])
	}
}
