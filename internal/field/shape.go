package field

// ShapeCoefficients returns the Hunter-McIntosh coefficients (a, b) for a
// fringe gap of the given length, from a linear fit in gap/r0 for a and a
// piecewise-linear fit for b.
func ShapeCoefficients(gap, radius float64) (a, b float64) {
	z := gap / radius

	a = 2.6688 - 2.3383*z

	switch {
	case z < 0.125:
		b = 1.47
	case z <= 0.25:
		b = 1.47 + (z-0.125)*(8.0/125)
	case z <= 0.5:
		b = 1.55 + (z-0.25)*(4.0/100)
	case z <= 1:
		b = 1.56 - (z-0.5)*(102.0/100)
	default:
		b = 1.0
	}
	return a, b
}
