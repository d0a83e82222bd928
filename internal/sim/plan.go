package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/field"
)

const (
	DefaultStepsPerPeriod = 100
	DefaultMargin         = 1.05
)

// Plan is the fixed time grid of a run: Steps timepoints spaced H apart.
type Plan struct {
	H     float64
	Steps int
}

// StepPlan sizes a run so that a particle at the nominal injection speed
// crosses the whole device with the given margin.
func StepPlan(dev *field.Device, sp dynamo.Species, stepsPerPeriod int, margin float64) (Plan, error) {
	h, err := stepSize(dev, stepsPerPeriod)
	if err != nil {
		return Plan{}, err
	}
	if margin == 0 {
		margin = DefaultMargin
	}
	if !(margin >= 1) {
		return Plan{}, fmt.Errorf("%w: margin %g must be at least 1", dynamo.ErrParameterBounds, margin)
	}
	if !(sp.Speed > 0) {
		return Plan{}, fmt.Errorf("%w: species %q injection speed must be positive", dynamo.ErrParameterBounds, sp.Tag)
	}

	// Relative slack keeps an exact transit from flooring one step short.
	steps := math.Floor(margin * dev.Length() / sp.Speed / h * (1 + 1e-12))
	if steps > math.MaxInt32 {
		return Plan{}, fmt.Errorf("%w: %g timepoints for species %q", dynamo.ErrParameterBounds, steps, sp.Tag)
	}
	return Plan{H: h, Steps: max(int(steps), 1)}, nil
}

// FixedPlan is a grid of exactly steps timepoints at the usual resolution.
func FixedPlan(dev *field.Device, stepsPerPeriod, steps int) (Plan, error) {
	h, err := stepSize(dev, stepsPerPeriod)
	if err != nil {
		return Plan{}, err
	}
	if steps < 1 {
		return Plan{}, fmt.Errorf("%w: %d timepoints", dynamo.ErrParameterBounds, steps)
	}
	return Plan{H: h, Steps: steps}, nil
}

func stepSize(dev *field.Device, stepsPerPeriod int) (float64, error) {
	if stepsPerPeriod == 0 {
		stepsPerPeriod = DefaultStepsPerPeriod
	}
	if stepsPerPeriod < 1 {
		return 0, fmt.Errorf("%w: steps per period %d", dynamo.ErrParameterBounds, stepsPerPeriod)
	}
	return dev.Drive().Period() / float64(stepsPerPeriod), nil
}

// Duration is the time of the last timepoint.
func (p Plan) Duration() float64 {
	return float64(p.Steps-1) * p.H
}
