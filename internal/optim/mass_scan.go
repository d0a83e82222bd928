package optim

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/sim"
)

// ScanPoint is the transmission of one probe mass.
type ScanPoint struct {
	MassAMU      float64
	Transmission float64
	Lost         int
	Detected     int
}

// MassScan sweeps a probe species over a mass grid through one device.
type MassScan struct {
	sim     *sim.Simulator
	probe   dynamo.Species
	amu     float64
	workers int
}

// NewMassScan scans copies of probe, with masses given in units of amu kg.
func NewMassScan(s *sim.Simulator, probe dynamo.Species, amu float64, workers int) *MassScan {
	if workers < 1 {
		workers = 1
	}
	return &MassScan{sim: s, probe: probe, amu: amu, workers: workers}
}

// Grid returns n evenly spaced masses from lo to hi inclusive.
func Grid(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Run simulates every mass and returns the points in ascending mass
// order. Every point uses the same seed, so only the mass differs.
func (m *MassScan) Run(ctx context.Context, masses []float64, cfg sim.Config) ([]ScanPoint, error) {
	points := make([]ScanPoint, len(masses))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, mass := range masses {
		g.Go(func() error {
			sp := m.probe
			sp.Mass = mass * m.amu
			sp.Tag = fmt.Sprintf("%s@%.3f", m.probe.Tag, mass)

			c := cfg
			c.SkipHistory = true
			res, err := m.sim.Run(ctx, sp, c)
			if err != nil {
				return fmt.Errorf("mass %g: %w", mass, err)
			}
			points[i] = ScanPoint{
				MassAMU:      mass,
				Transmission: res.Transmission(),
				Lost:         res.Lost,
				Detected:     res.Detected,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(points, func(i, j int) bool { return points[i].MassAMU < points[j].MassAMU })
	sim.Logger().Info("mass scan finished", zap.Int("points", len(points)))
	return points, nil
}

// Peak returns the point with the highest transmission, the lowest mass
// on ties.
func Peak(points []ScanPoint) (ScanPoint, bool) {
	if len(points) == 0 {
		return ScanPoint{}, false
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.Transmission > best.Transmission {
			best = p
		}
	}
	return best, true
}
