package automation

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/qmfsim/internal/config"
	"github.com/san-kum/qmfsim/internal/experiment"
	"github.com/san-kum/qmfsim/internal/sim"
	"github.com/san-kum/qmfsim/internal/storage"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run: a preset or config file plus overrides.
type ScenarioStep struct {
	Preset     string   `yaml:"preset"`
	Config     string   `yaml:"config"`
	Integrator string   `yaml:"integrator"`
	Seed       int64    `yaml:"seed"`
	Count      int      `yaml:"count"`
	RF         *float64 `yaml:"rf_v,omitempty"`
	DC         *float64 `yaml:"dc_v,omitempty"`
	SaveAs     string   `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Resolve builds the run configuration of a step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case s.Preset != "":
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	default:
		cfg = config.DefaultConfig()
	}

	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Seed != 0 {
		cfg.Run.Seed = s.Seed
	}
	if s.Count > 0 {
		for i := range cfg.Species {
			cfg.Species[i].Count = s.Count
		}
	}
	if s.RF != nil {
		cfg.Device.RF = *s.RF
	}
	if s.DC != nil {
		cfg.Device.DC = *s.DC
	}
	return cfg, nil
}

// StepResult is one executed scenario step. RunID is empty unless the
// step was saved.
type StepResult struct {
	Name    string
	RunID   string
	Results []*sim.Result
}

// RunScenario executes all steps in order. Steps with save_as are written
// to store when it is not nil.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, store *storage.Store) ([]StepResult, error) {
	log := sim.Logger().With(zap.String("scenario", scenario.Name))
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.SaveAs
		if name == "" {
			name = fmt.Sprintf("%s_%d", scenario.Name, i+1)
		}
		log.Info("running step", zap.Int("step", i+1), zap.Int("of", len(scenario.Steps)), zap.String("name", name))

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := experiment.New(cfg, registry)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: name, Results: res}
		if store != nil && step.SaveAs != "" {
			sr.RunID, err = store.Save(storage.Run{
				Name:       step.SaveAs,
				Integrator: exp.Setup().Integrator,
				Seed:       exp.Setup().Run.Seed,
				Device:     exp.Device(),
				Results:    res,
			})
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// VoltageSweep steps one drive potential across a range. With KeepRatio
// the other potential follows so that DC/RF stays at its base value,
// which moves the operating point along a scan line.
type VoltageSweep struct {
	Base      *config.Config
	Param     string // "rf" or "dc"
	Min       float64
	Max       float64
	Points    int
	KeepRatio bool
}

// SweepResult holds the transmission of every species at one setting.
type SweepResult struct {
	RF           float64
	DC           float64
	Transmission map[string]float64
}

// RunSweep executes a voltage sweep. Histories are not kept.
func RunSweep(ctx context.Context, sweep *VoltageSweep, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.Base == nil {
		return nil, fmt.Errorf("sweep has no base configuration")
	}
	if sweep.Param != "rf" && sweep.Param != "dc" {
		return nil, fmt.Errorf("unknown sweep parameter: %s", sweep.Param)
	}
	if sweep.Points < 1 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d", sweep.Points)
	}
	base := sweep.Base.Device
	if sweep.KeepRatio && sweep.Param == "dc" && base.DC == 0 {
		return nil, fmt.Errorf("cannot keep DC/RF fixed with zero base DC")
	}

	step := 0.0
	if sweep.Points > 1 {
		step = (sweep.Max - sweep.Min) / float64(sweep.Points-1)
	}

	results := make([]SweepResult, 0, sweep.Points)
	for i := 0; i < sweep.Points; i++ {
		v := sweep.Min + float64(i)*step

		cfg := *sweep.Base
		cfg.Run.SkipHistory = true
		switch sweep.Param {
		case "rf":
			cfg.Device.RF = v
			if sweep.KeepRatio && base.RF != 0 {
				cfg.Device.DC = base.DC * v / base.RF
			}
		case "dc":
			cfg.Device.DC = v
			if sweep.KeepRatio {
				cfg.Device.RF = base.RF * v / base.DC
			}
		}

		exp, err := experiment.New(&cfg, registry)
		if err != nil {
			return nil, fmt.Errorf("%s = %g: %w", sweep.Param, v, err)
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s = %g: %w", sweep.Param, v, err)
		}

		sr := SweepResult{RF: cfg.Device.RF, DC: cfg.Device.DC, Transmission: make(map[string]float64, len(res))}
		for _, r := range res {
			sr.Transmission[r.Tag] = r.Transmission()
		}
		results = append(results, sr)

		sim.Logger().Debug("sweep point",
			zap.Int("point", i+1),
			zap.Float64("rf", sr.RF),
			zap.Float64("dc", sr.DC))
	}

	return results, nil
}
