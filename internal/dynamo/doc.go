// Package dynamo provides the core data model of the trajectory engine.
//
// The package defines the ensemble state and the two capabilities that
// act on it:
//
//   - [Coords]: per-axis particle coordinates (struct of arrays)
//   - [Ensemble]: membership, position and velocity of one species
//   - [History]: time-major record of every particle at every step
//   - [Field]: ensemble-wide acceleration, a(x, t)
//   - [Integrator]: advances an ensemble by one step in place
//
// # Membership
//
// Each particle carries an integer membership: [Lost] (0), a zone index
// 1..K, or K+1 once it reaches the detector. Lost and detected particles
// have zero velocity and receive zero acceleration, so they stay put.
//
// # Thread Safety
//
// Ensemble and History are NOT thread-safe. Species are independent, so
// run each species on its own goroutine with its own ensemble.
package dynamo
