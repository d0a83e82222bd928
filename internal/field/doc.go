// Package field models the electrostatic regimes of a segmented quadrupole.
//
// A [Device] is built from a [Drive] and an ordered list of [ZoneSpec]s.
// Each zone wraps a [Law]:
//
//   - [Ideal]: hyperbolic quadrupole field (Mathieu equation)
//   - [LinearFringe]: linear ramp across an entry or exit gap
//   - [ExpFringe]: Hunter-McIntosh exponential ramp
//   - [Null]: the detector, appended automatically
//
// # Blending
//
// [Field.Pulse] does not branch on zone membership. It evaluates every law
// for every particle and weights zone k by 1/(1 + S*(k-m)^2), where m is
// the particle's membership and S the steepness. With the default S the
// weight of an adjacent zone is about 1e-11.
//
//	dev, err := field.NewDevice(drive, []field.ZoneSpec{
//	    {Kind: field.KindHMEntry, Span: 0.002},
//	    {Kind: field.KindIdeal, Span: 0.30},
//	    {Kind: field.KindLinearExit, Span: 0.05},
//	})
//	f := dev.Bind(ensemble)
//	f.Pulse(acc, ensemble.Pos, t)
package field
