package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/qmfsim/internal/config"
	"github.com/san-kum/qmfsim/internal/field"
	"github.com/san-kum/qmfsim/internal/sim"
)

// Experiment is a configured device, integrator and species list, ready
// to run.
type Experiment struct {
	setup     *config.Setup
	device    *field.Device
	simulator *sim.Simulator
}

// New validates cfg and wires the simulator with the registry's
// integrator and default metrics.
func New(cfg *config.Config, reg *Registry) (*Experiment, error) {
	setup, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	dev, err := setup.Device()
	if err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(setup.Integrator)
	if err != nil {
		return nil, err
	}

	s := sim.New(dev, integ)
	for _, m := range reg.DefaultMetrics() {
		s.AddMetric(m)
	}
	return &Experiment{setup: setup, device: dev, simulator: s}, nil
}

// Run simulates every configured species.
func (e *Experiment) Run(ctx context.Context) ([]*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	if len(e.setup.Species) == 1 {
		res, err := e.simulator.Run(ctx, e.setup.Species[0], e.setup.Run)
		if err != nil {
			return nil, err
		}
		return []*sim.Result{res}, nil
	}
	return e.simulator.RunCluster(ctx, e.setup.Species, e.setup.Run)
}

func (e *Experiment) Setup() *config.Setup { return e.setup }

func (e *Experiment) Device() *field.Device { return e.device }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}
