package analysis

import (
	"math"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/field"
)

// Mathieu returns the x-axis stability parameters of sp in drive d.
func Mathieu(d field.Drive, sp dynamo.Species) (a, q float64) {
	k := sp.QOverM() / (d.Radius * d.Radius * d.Omega() * d.Omega())
	return 4 * k * d.DC, 2 * k * d.RF
}

// LowerBoundary is the characteristic curve a0(q) below which motion is
// unstable.
func LowerBoundary(q float64) float64 {
	q2 := q * q
	return -q2/2 + 7*q2*q2/128 - 29*q2*q2*q2/2304 + 68687*q2*q2*q2*q2/18874368
}

// UpperBoundary is the characteristic curve b1(q) closing the first
// stability region from above.
func UpperBoundary(q float64) float64 {
	q2 := q * q
	return 1 - q - q2/8 + q2*q/64 - q2*q2/1536 - 11*q2*q2*q/36864
}

// stableAxis tests one axis against the first stability region.
func stableAxis(a, q float64) bool {
	q = math.Abs(q)
	return a > LowerBoundary(q) && a < UpperBoundary(q)
}

// Stable reports whether (a, q) lies in the first stability region for
// both transverse axes.
func Stable(a, q float64) bool {
	return stableAxis(a, q) && stableAxis(-a, -q)
}

// Apex is the tip of the first stability region, where the two axes'
// boundaries cross.
const (
	ApexA = 0.23699
	ApexQ = 0.70600
)

// Beta approximates the secular frequency parameter for small q, so that
// the secular angular frequency is beta*w/2.
func Beta(a, q float64) float64 {
	b2 := a + q*q/2
	if b2 <= 0 {
		return 0
	}
	return math.Sqrt(b2)
}

// MassAt returns the mass (kg) with the given q for charge c in drive d.
func MassAt(d field.Drive, charge, q float64) float64 {
	return 2 * charge * d.RF / (q * d.Radius * d.Radius * d.Omega() * d.Omega())
}
