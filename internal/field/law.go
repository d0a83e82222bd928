package field

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

// Law maps ensemble positions and time to an acceleration for one regime.
// Positions are zone-local on the z axis. Implementations write into dst
// and must not retain or modify pos.
type Law interface {
	Accel(dst, pos dynamo.Coords, t float64, env Env)
}

// Ideal is the hyperbolic quadrupole field: the Mathieu restoring force.
type Ideal struct{}

func (Ideal) Accel(dst, pos dynamo.Coords, t float64, env Env) {
	eJ := env.QOverM * env.J(t)
	floats.ScaleTo(dst[dynamo.X], -eJ, pos[dynamo.X])
	floats.ScaleTo(dst[dynamo.Y], eJ, pos[dynamo.Y])
	zero(dst[dynamo.Z])
}

// Null is the detector: no force anywhere.
type Null struct{}

func (Null) Accel(dst, pos dynamo.Coords, t float64, env Env) {
	dst.Zero()
}

// LinearFringe ramps the transverse field linearly across a gap of length
// Span: up from zero on entry, down from full strength on exit.
type LinearFringe struct {
	Span float64
	Exit bool
}

// Ramp returns the field fraction at local z and its derivative.
func (l LinearFringe) Ramp(z float64) (v, slope float64) {
	if l.Exit {
		return 1 - z/l.Span, -1 / l.Span
	}
	return z / l.Span, 1 / l.Span
}

func (l LinearFringe) Accel(dst, pos dynamo.Coords, t float64, env Env) {
	fringe(dst, pos, env.QOverM*env.J(t), l.Ramp)
}

// ExpFringe is the Hunter-McIntosh fringe: f(z) = 1 - exp(-(a*s + b*s^2))
// with s = z/Span. Exit zones use 1 - f, which starts at full strength.
type ExpFringe struct {
	Span float64
	A, B float64
	Exit bool
}

// NewExpFringe fits the shape coefficients from the gap and inscribed radius.
func NewExpFringe(span, radius float64, exit bool) ExpFringe {
	a, b := ShapeCoefficients(span, radius)
	return ExpFringe{Span: span, A: a, B: b, Exit: exit}
}

func (h ExpFringe) Ramp(z float64) (v, slope float64) {
	s := z / h.Span
	g := math.Exp(-(h.A*s + h.B*s*s))
	fp := (h.A/h.Span + 2*h.B*z/(h.Span*h.Span)) * g
	if h.Exit {
		return g, -fp
	}
	return 1 - g, fp
}

func (h ExpFringe) Accel(dst, pos dynamo.Coords, t float64, env Env) {
	fringe(dst, pos, env.QOverM*env.J(t), h.Ramp)
}

// fringe scales the ideal transverse force by ramp(z) and adds the axial
// term -1/2 eJ (x^2 - y^2) ramp'(z).
func fringe(dst, pos dynamo.Coords, eJ float64, ramp func(float64) (float64, float64)) {
	xs, ys, zs := pos[dynamo.X], pos[dynamo.Y], pos[dynamo.Z]
	for n := range zs {
		x, y := xs[n], ys[n]
		v, slope := ramp(zs[n])
		dst[dynamo.X][n] = -eJ * x * v
		dst[dynamo.Y][n] = eJ * y * v
		dst[dynamo.Z][n] = -0.5 * eJ * (x*x - y*y) * slope
	}
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
