package sim

import (
	"github.com/san-kum/qmfsim/internal/dynamo"
	"github.com/san-kum/qmfsim/internal/field"
)

// parallelChunk is the smallest slice of an ensemble worth its own goroutine.
const parallelChunk = 4096

// Calibrator reclassifies an ensemble after each step. It owns the
// per-particle scratch and is not safe for concurrent use.
type Calibrator struct {
	dev    *field.Device
	zone   []int
	inside []bool
	frozen []bool
}

func NewCalibrator(dev *field.Device, n int) *Calibrator {
	return &Calibrator{
		dev:    dev,
		zone:   make([]int, n),
		inside: make([]bool, n),
		frozen: make([]bool, n),
	}
}

// Calibrate sets each particle's membership from its new position. A
// particle outside the electrodes is lost whatever its zone; one past the
// last boundary is detected. Lost and detected are terminal, and the
// velocity of every particle in either state is zeroed. It returns the
// number of particles that changed to a terminal state.
func (c *Calibrator) Calibrate(ens *dynamo.Ensemble) int {
	n := ens.Len()
	det := ens.Detected()

	dynamo.ParallelFor(n, parallelChunk, func(start, end int) {
		c.dev.Classify(ens.Pos[dynamo.Z][start:end], c.zone[start:end])
		c.dev.InBounds(ens.Pos[dynamo.X][start:end], ens.Pos[dynamo.Y][start:end], c.inside[start:end])
	})

	changed := 0
	for i := 0; i < n; i++ {
		m := ens.Membership[i]
		switch {
		case m == dynamo.Lost || m == det:
		case !c.inside[i]:
			m = dynamo.Lost
			changed++
		default:
			m = c.zone[i]
			if m == det {
				changed++
			}
		}
		ens.Membership[i] = m
		c.frozen[i] = m == dynamo.Lost || m == det
	}
	ens.Freeze(c.frozen)
	return changed
}
