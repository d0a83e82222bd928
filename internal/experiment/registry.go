package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/integrators"
	"github.com/san-kum/qmfsim/internal/metrics"
	"github.com/san-kum/qmfsim/internal/sim"
)

type Registry struct {
	integrators map[string]sim.IntegratorFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]sim.IntegratorFactory),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk2"] = func() dynamo.Integrator { return integrators.NewRK2() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["verlet"] = func() dynamo.Integrator { return integrators.NewVerlet() }

	return r
}

// GetIntegrator returns a factory, since each species needs its own
// integrator instance.
func (r *Registry) GetIntegrator(name string) (sim.IntegratorFactory, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn, nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []sim.MetricFactory {
	return metrics.All()
}
