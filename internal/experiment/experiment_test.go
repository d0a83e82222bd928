package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/qmfsim/internal/config"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{"euler", "rk2", "rk4", "verlet"}, reg.ListIntegrators())

	for _, name := range reg.ListIntegrators() {
		fn, err := reg.GetIntegrator(name)
		require.NoError(t, err)
		a, b := fn(), fn()
		assert.NotSame(t, a, b, name)
	}

	_, err := reg.GetIntegrator("rk45")
	assert.ErrorContains(t, err, "unknown integrator: rk45")
	assert.Len(t, reg.DefaultMetrics(), 4)
}

func TestExperimentRunsCluster(t *testing.T) {
	cfg := config.GetPreset("cluster")
	cfg.Run.Steps = 20
	for i := range cfg.Species {
		cfg.Species[i].Count = 5
	}

	exp, err := New(cfg, NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, 3, exp.Device().Zones())

	results, err := exp.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, cfg.Species[i].Tag, res.Tag)
		assert.Contains(t, res.Metrics, "transmission")
		assert.Equal(t, 20, res.History.Steps())
	}
}

func TestExperimentRejects(t *testing.T) {
	cfg := config.GetPreset("standard")
	cfg.Integrator = "leapfrog"
	_, err := New(cfg, NewRegistry())
	assert.ErrorContains(t, err, "unknown integrator")

	cfg = config.GetPreset("standard")
	cfg.Zones = nil
	_, err = New(cfg, NewRegistry())
	assert.Error(t, err)
}
