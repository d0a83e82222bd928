package dynamo

import (
	"fmt"
	"math"
	"math/rand"
)

// Axis indices into Coords.
const (
	X = iota
	Y
	Z
)

// Lost is the membership value of a particle that struck an electrode.
const Lost = 0

// Coords holds one 3-vector per particle, one slice per axis.
type Coords [3][]float64

func NewCoords(n int) Coords {
	return Coords{make([]float64, n), make([]float64, n), make([]float64, n)}
}

// Len returns the number of particles.
func (c Coords) Len() int {
	return len(c[X])
}

func (c Coords) Clone() Coords {
	out := NewCoords(c.Len())
	out.CopyFrom(c)
	return out
}

func (c Coords) CopyFrom(src Coords) {
	for a := range c {
		copy(c[a], src[a])
	}
}

func (c Coords) Zero() {
	for a := range c {
		for i := range c[a] {
			c[a][i] = 0
		}
	}
}

func (c Coords) IsValid() bool {
	for a := range c {
		for _, v := range c[a] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Species carries the scalar parameters of one ion species, in SI units.
type Species struct {
	Tag      string
	Count    int
	Mass     float64 // kg
	Charge   float64 // C
	SpreadX  float64 // m
	SpreadY  float64 // m
	SpreadVX float64 // m/s
	SpreadVY float64 // m/s
	SpreadVZ float64 // m/s, one-sided
	Speed    float64 // injection speed, m/s
	Phase    float64 // initial RF phase, rad
}

// QOverM returns the specific charge e = q/m.
func (s Species) QOverM() float64 {
	return s.Charge / s.Mass
}

func (s Species) Validate() error {
	switch {
	case s.Count < 0:
		return fmt.Errorf("%w: species %q count %d", ErrParameterBounds, s.Tag, s.Count)
	case !(s.Mass > 0):
		return fmt.Errorf("%w: species %q mass must be positive", ErrParameterBounds, s.Tag)
	case s.Charge == 0 || math.IsNaN(s.Charge):
		return fmt.Errorf("%w: species %q charge must be non-zero", ErrParameterBounds, s.Tag)
	case !(s.Speed > 0):
		return fmt.Errorf("%w: species %q injection speed must be positive", ErrParameterBounds, s.Tag)
	case s.SpreadX < 0 || s.SpreadY < 0 || s.SpreadVX < 0 || s.SpreadVY < 0 || s.SpreadVZ < 0:
		return fmt.Errorf("%w: species %q spreads must be non-negative", ErrParameterBounds, s.Tag)
	}
	return nil
}

// Ensemble is the mutable state of every particle of one species.
type Ensemble struct {
	Species    Species
	Zones      int
	Membership []int
	Pos        Coords
	Vel        Coords
}

// NewEnsemble allocates an ensemble for a device with the given number of
// non-terminal zones. All particles start at the origin in zone 1.
func NewEnsemble(sp Species, zones int) *Ensemble {
	e := &Ensemble{
		Species:    sp,
		Zones:      zones,
		Membership: make([]int, sp.Count),
		Pos:        NewCoords(sp.Count),
		Vel:        NewCoords(sp.Count),
	}
	for i := range e.Membership {
		e.Membership[i] = 1
	}
	return e
}

func (e *Ensemble) Len() int {
	return len(e.Membership)
}

// Detected returns the terminal membership value.
func (e *Ensemble) Detected() int {
	return e.Zones + 1
}

// Active reports whether particle n is still inside one of the device zones.
func (e *Ensemble) Active(n int) bool {
	m := e.Membership[n]
	return m >= 1 && m <= e.Zones
}

// Seed places every particle in zone 1 with uniform random offsets.
func (e *Ensemble) Seed(rng *rand.Rand) {
	sp := e.Species
	for n := range e.Membership {
		e.Membership[n] = 1
		e.Pos[X][n] = sp.SpreadX * (2*rng.Float64() - 1)
		e.Pos[Y][n] = sp.SpreadY * (2*rng.Float64() - 1)
		e.Pos[Z][n] = 0
		e.Vel[X][n] = sp.SpreadVX * (2*rng.Float64() - 1)
		e.Vel[Y][n] = sp.SpreadVY * (2*rng.Float64() - 1)
		e.Vel[Z][n] = sp.Speed + sp.SpreadVZ*rng.Float64()
	}
}

// Freeze zeroes the velocity of every particle whose mask entry is set.
func (e *Ensemble) Freeze(mask []bool) {
	for n, frozen := range mask {
		if !frozen {
			continue
		}
		e.Vel[X][n] = 0
		e.Vel[Y][n] = 0
		e.Vel[Z][n] = 0
	}
}

// Counts returns how many particles are alive, lost and detected.
func (e *Ensemble) Counts() (alive, lost, detected int) {
	for _, m := range e.Membership {
		switch {
		case m == Lost:
			lost++
		case m > e.Zones:
			detected++
		default:
			alive++
		}
	}
	return
}

// Field evaluates the ensemble-wide acceleration at trial positions.
type Field interface {
	Pulse(dst, pos Coords, t float64)
}

// Integrator advances an ensemble by one step of size h in place.
type Integrator interface {
	Step(f Field, ens *Ensemble, t, h float64)
}
