package metrics

import (
	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/sim"
)

// electronVolt converts joules to eV.
const electronVolt = 1.602176634e-19

// TransverseEnergy is the time-averaged mean transverse kinetic energy of
// the particles still inside the device, in eV.
type TransverseEnergy struct {
	name    string
	total   float64
	samples int
}

func NewTransverseEnergy() sim.Metric {
	return &TransverseEnergy{name: "transverse_energy_ev"}
}

func (e *TransverseEnergy) Name() string { return e.name }

func (e *TransverseEnergy) Observe(ens *dynamo.Ensemble, t float64) {
	sum, alive := 0.0, 0
	for n := range ens.Membership {
		if !ens.Active(n) {
			continue
		}
		vx, vy := ens.Vel[dynamo.X][n], ens.Vel[dynamo.Y][n]
		sum += 0.5 * ens.Species.Mass * (vx*vx + vy*vy)
		alive++
	}
	if alive == 0 {
		return
	}
	e.total += sum / float64(alive) / electronVolt
	e.samples++
}

func (e *TransverseEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *TransverseEnergy) Reset() {
	e.total = 0
	e.samples = 0
}

// All returns factories for every ensemble metric.
func All() []sim.MetricFactory {
	return []sim.MetricFactory{NewTransmission, NewLossFraction, NewMaxExcursion, NewTransverseEnergy}
}
