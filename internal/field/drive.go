package field

import (
	"fmt"
	"math"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

// Drive holds the electrical parameters of the filter, in SI units.
type Drive struct {
	Tag          string
	RF           float64 // RF amplitude, V
	DC           float64 // DC potential, V
	Frequency    float64 // drive frequency, Hz
	Radius       float64 // inscribed radius r0, m
	MaxPotential float64 // V, informational
}

// Omega returns the angular drive frequency.
func (d Drive) Omega() float64 {
	return 2 * math.Pi * d.Frequency
}

// Period returns one RF period in seconds.
func (d Drive) Period() float64 {
	return 1 / d.Frequency
}

func (d Drive) Validate() error {
	if !(d.Frequency > 0) || math.IsInf(d.Frequency, 0) {
		return fmt.Errorf("%w: drive frequency must be positive, got %g", dynamo.ErrParameterBounds, d.Frequency)
	}
	if !(d.Radius > 0) || math.IsInf(d.Radius, 0) {
		return fmt.Errorf("%w: inscribed radius must be positive, got %g", dynamo.ErrParameterBounds, d.Radius)
	}
	if math.IsNaN(d.RF) || math.IsNaN(d.DC) {
		return fmt.Errorf("%w: drive potentials must be numbers", dynamo.ErrParameterBounds)
	}
	return nil
}

// Env is everything a force law needs besides position and time.
type Env struct {
	QOverM float64
	Phase  float64
	DC     float64
	RF     float64
	Omega  float64
	Radius float64
}

func NewEnv(d Drive, sp dynamo.Species) Env {
	return Env{
		QOverM: sp.QOverM(),
		Phase:  sp.Phase,
		DC:     d.DC,
		RF:     d.RF,
		Omega:  d.Omega(),
		Radius: d.Radius,
	}
}

// J returns (U_dc - U_rf cos(wt + phase)) / r0^2.
func (e Env) J(t float64) float64 {
	return (e.DC - e.RF*math.Cos(e.Omega*t+e.Phase)) / (e.Radius * e.Radius)
}
