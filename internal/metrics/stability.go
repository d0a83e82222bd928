package metrics

import (
	"math"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/sim"
)

// Transmission is the detected fraction of the ensemble at the last
// observation.
type Transmission struct {
	name  string
	value float64
}

func NewTransmission() sim.Metric {
	return &Transmission{name: "transmission"}
}

func (m *Transmission) Name() string { return m.name }

func (m *Transmission) Observe(ens *dynamo.Ensemble, t float64) {
	if ens.Len() == 0 {
		m.value = 0
		return
	}
	_, _, detected := ens.Counts()
	m.value = float64(detected) / float64(ens.Len())
}

func (m *Transmission) Value() float64 { return m.value }

func (m *Transmission) Reset() { m.value = 0 }

// LossFraction is the share of particles that struck an electrode.
type LossFraction struct {
	name  string
	value float64
}

func NewLossFraction() sim.Metric {
	return &LossFraction{name: "loss_fraction"}
}

func (m *LossFraction) Name() string { return m.name }

func (m *LossFraction) Observe(ens *dynamo.Ensemble, t float64) {
	if ens.Len() == 0 {
		m.value = 0
		return
	}
	_, lost, _ := ens.Counts()
	m.value = float64(lost) / float64(ens.Len())
}

func (m *LossFraction) Value() float64 { return m.value }

func (m *LossFraction) Reset() { m.value = 0 }

// MaxExcursion tracks the largest radial distance reached by any particle
// still inside the device.
type MaxExcursion struct {
	name string
	max  float64
}

func NewMaxExcursion() sim.Metric {
	return &MaxExcursion{name: "max_excursion"}
}

func (m *MaxExcursion) Name() string { return m.name }

func (m *MaxExcursion) Observe(ens *dynamo.Ensemble, t float64) {
	for n := range ens.Membership {
		if !ens.Active(n) {
			continue
		}
		r := math.Hypot(ens.Pos[dynamo.X][n], ens.Pos[dynamo.Y][n])
		if r > m.max {
			m.max = r
		}
	}
}

func (m *MaxExcursion) Value() float64 { return m.max }

func (m *MaxExcursion) Reset() { m.max = 0 }
