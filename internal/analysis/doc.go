// Package analysis provides stability and frequency tools for quadrupole
// filters.
//
//   - [Mathieu]: a and q parameters of a species in a drive
//   - [Stable]: first stability region test on both transverse axes
//   - [SecularFrequency]: dominant frequency of a recorded track
//
// # Conventions
//
// With the force law a_x = -e J x, a_y = +e J y and
// J = (U - V cos wt) / r0^2, the transverse motion reduces to the Mathieu
// equation with
//
//	a = 4 e U / (r0^2 w^2)
//	q = 2 e V / (r0^2 w^2)
//
// on the x axis and (-a, -q) on the y axis.
package analysis
