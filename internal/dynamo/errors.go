package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates positions or velocities went NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrInvalidSpan indicates a zone with zero, negative or non-finite span.
	ErrInvalidSpan = errors.New("dynamo: zone span must be positive and finite")

	// ErrNonMonotonic indicates zone boundaries that are not strictly increasing.
	ErrNonMonotonic = errors.New("dynamo: zone boundaries not strictly increasing")

	// ErrSteepness indicates a blending steepness that leaks or overflows.
	ErrSteepness = errors.New("dynamo: blending steepness out of range")

	// ErrDimensionMismatch indicates mismatched ensemble and buffer sizes.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between ensemble and buffers")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Tag     string
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s: step %d (t=%.4e): %v", e.Tag, e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
