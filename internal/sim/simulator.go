package sim

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/field"
)

// Simulator runs ensembles through one device. The device is shared
// read-only, so a single Simulator can run many species at once.
type Simulator struct {
	dev       *field.Device
	newInteg  IntegratorFactory
	metrics   []MetricFactory
	observers []Observer
}

func New(dev *field.Device, integ IntegratorFactory) *Simulator {
	return &Simulator{
		dev:       dev,
		newInteg:  integ,
		metrics:   make([]MetricFactory, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) Device() *field.Device { return s.dev }

func (s *Simulator) AddMetric(m MetricFactory) { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)    { s.observers = append(s.observers, o) }

// hardField adapts the hard-switched evaluator to dynamo.Field.
type hardField struct{ f *field.Field }

func (h hardField) Pulse(dst, pos dynamo.Coords, t float64) { h.f.Select(dst, pos, t) }

// Run seeds a fresh ensemble for sp and integrates it over the planned
// time grid.
func (s *Simulator) Run(ctx context.Context, sp dynamo.Species, cfg Config) (*Result, error) {
	if err := sp.Validate(); err != nil {
		return nil, err
	}
	ens := dynamo.NewEnsemble(sp, s.dev.Zones())
	ens.Seed(rand.New(rand.NewSource(cfg.Seed)))
	return s.RunEnsemble(ctx, ens, cfg)
}

// RunEnsemble integrates an already initialised ensemble. Each step
// records the current state, advances it and then calibrates membership;
// the state after the last step is recorded as the final timepoint.
func (s *Simulator) RunEnsemble(ctx context.Context, ens *dynamo.Ensemble, cfg Config) (*Result, error) {
	if ens.Zones != s.dev.Zones() {
		return nil, fmt.Errorf("%w: ensemble built for %d zones, device has %d",
			dynamo.ErrDimensionMismatch, ens.Zones, s.dev.Zones())
	}
	if s.newInteg == nil {
		return nil, fmt.Errorf("simulator has no integrator")
	}

	sp := ens.Species
	var (
		plan Plan
		err  error
	)
	if cfg.Steps > 0 {
		plan, err = FixedPlan(s.dev, cfg.StepsPerPeriod, cfg.Steps)
	} else {
		plan, err = StepPlan(s.dev, sp, cfg.StepsPerPeriod, cfg.Margin)
	}
	if err != nil {
		return nil, err
	}

	log := Logger().With(zap.String("species", sp.Tag))
	log.Debug("step plan",
		zap.Int("particles", ens.Len()),
		zap.Float64("h", plan.H),
		zap.Int("steps", plan.Steps),
		zap.Float64("length", s.dev.Length()))

	var f dynamo.Field = s.dev.Bind(ens)
	if cfg.HardSwitch {
		f = hardField{s.dev.Bind(ens)}
	}
	integ := s.newInteg()
	cal := NewCalibrator(s.dev, ens.Len())

	recordRows := plan.Steps
	if cfg.SkipHistory {
		recordRows = 1
	}
	history := dynamo.NewHistory(ens.Len(), recordRows, plan.H)

	result := &Result{
		Tag:       sp.Tag,
		Species:   sp,
		Plan:      plan,
		History:   history,
		Time:      history.Time,
		EventStep: make([]int, ens.Len()),
		Final:     ens,
		Metrics:   make(map[string]float64),
	}
	if cfg.SkipHistory {
		result.Time = []float64{plan.Duration()}
		history.Time[0] = plan.Duration()
	}
	for n := range result.EventStep {
		result.EventStep[n] = -1
	}

	metrics := make([]Metric, len(s.metrics))
	for i, newMetric := range s.metrics {
		metrics[i] = newMetric()
		metrics[i].Reset()
	}

	last := plan.Steps - 1
	for t := 0; t < last; t++ {
		select {
		case <-ctx.Done():
			log.Info("run cancelled", zap.Int("step", t))
			return result, ctx.Err()
		default:
		}

		tm := float64(t) * plan.H
		if !cfg.SkipHistory {
			history.Record(t, ens)
		}
		for _, m := range metrics {
			m.Observe(ens, tm)
		}

		integ.Step(f, ens, tm, plan.H)

		if !ens.Pos.IsValid() || !ens.Vel.IsValid() {
			return result, &dynamo.SimulationError{Tag: sp.Tag, Step: t, Time: tm, Wrapped: dynamo.ErrInvalidState}
		}

		if cal.Calibrate(ens) > 0 {
			for n := range ens.Membership {
				if result.EventStep[n] < 0 && !ens.Active(n) {
					result.EventStep[n] = t + 1
				}
			}
		}

		for _, obs := range s.observers {
			obs.OnStep(sp.Tag, t+1, last, ens)
		}
	}

	if cfg.SkipHistory {
		history.Record(0, ens)
	} else {
		history.Record(last, ens)
	}
	for _, m := range metrics {
		m.Observe(ens, float64(last)*plan.H)
		result.Metrics[m.Name()] = m.Value()
	}

	result.Alive, result.Lost, result.Detected = ens.Counts()
	log.Info("species finished",
		zap.Int("alive", result.Alive),
		zap.Int("lost", result.Lost),
		zap.Int("detected", result.Detected),
		zap.Float64("transmission", result.Transmission()))

	return result, nil
}

// RunCluster runs every species concurrently through the same device.
// Species i is seeded with cfg.Seed+i, so results do not depend on
// scheduling. Results keep the order of species.
func (s *Simulator) RunCluster(ctx context.Context, species []dynamo.Species, cfg Config) ([]*Result, error) {
	tags := make(map[string]bool, len(species))
	for _, sp := range species {
		if tags[sp.Tag] {
			return nil, fmt.Errorf("%w: duplicate species tag %q", dynamo.ErrParameterBounds, sp.Tag)
		}
		tags[sp.Tag] = true
	}

	results := make([]*Result, len(species))
	g, ctx := errgroup.WithContext(ctx)
	for i, sp := range species {
		g.Go(func() error {
			c := cfg
			c.Seed = cfg.Seed + int64(i)
			res, err := s.Run(ctx, sp, c)
			if err != nil {
				return fmt.Errorf("species %q: %w", sp.Tag, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	Logger().Info("cluster finished", zap.Int("species", len(species)))
	return results, nil
}
