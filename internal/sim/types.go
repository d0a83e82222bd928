package sim

import (
	"github.com/san-kum/qmfsim/internal/dynamo"
)

// IntegratorFactory builds a fresh integrator. Integrators keep scratch
// buffers, so every concurrently running species needs its own.
type IntegratorFactory func() dynamo.Integrator

// Metric accumulates a scalar over the steps of one species.
type Metric interface {
	Name() string
	Observe(ens *dynamo.Ensemble, t float64)
	Value() float64
	Reset()
}

// MetricFactory builds a fresh metric for each species run.
type MetricFactory func() Metric

// Observer is notified after every calibrated step. It may be called
// from several goroutines during a cluster run.
type Observer interface {
	OnStep(tag string, step, total int, ens *dynamo.Ensemble)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(tag string, step, total int, ens *dynamo.Ensemble)

func (f ObserverFunc) OnStep(tag string, step, total int, ens *dynamo.Ensemble) {
	f(tag, step, total, ens)
}

// Config controls the length and resolution of a run.
type Config struct {
	// StepsPerPeriod is the number of steps per RF period. Zero means
	// DefaultStepsPerPeriod.
	StepsPerPeriod int
	// Margin scales the nominal transit time. Zero means DefaultMargin.
	Margin float64
	// Steps overrides the planned number of timepoints when positive.
	Steps int
	// Seed for the initial offsets. Species i of a cluster uses Seed+i.
	Seed int64
	// HardSwitch evaluates only each particle's own zone instead of the
	// blended field.
	HardSwitch bool
	// SkipHistory drops the per-step record and keeps only the final state.
	SkipHistory bool
}

// Result is everything a finished species run produced.
type Result struct {
	Tag     string
	Species dynamo.Species
	Plan    Plan
	History *dynamo.History
	Time    []float64
	// EventStep is the first recorded timepoint at which a particle was
	// lost or detected, or -1.
	EventStep []int
	Final     *dynamo.Ensemble

	Alive    int
	Lost     int
	Detected int
	Metrics  map[string]float64
}

// Transmission is the fraction of particles that reached the detector.
func (r *Result) Transmission() float64 {
	if r.Species.Count == 0 {
		return 0
	}
	return float64(r.Detected) / float64(r.Species.Count)
}

// Survivors returns the indices of particles that were never lost.
func (r *Result) Survivors() []int {
	out := make([]int, 0, r.Alive+r.Detected)
	for n, m := range r.Final.Membership {
		if m != dynamo.Lost {
			out = append(out, n)
		}
	}
	return out
}
