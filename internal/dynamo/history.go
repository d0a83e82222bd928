package dynamo

import "fmt"

// Channels per particle in a history record: membership, x, y, z, vx, vy, vz.
const Channels = 7

// Snapshot is one particle at one recorded step.
type Snapshot struct {
	Membership int
	Pos        [3]float64
	Vel        [3]float64
}

// History is a pre-sized, time-major record of an ensemble. Row t holds
// the 7-tuples of particles 0..N-1 back to back.
type History struct {
	Time []float64
	n    int
	data []float64
}

// NewHistory allocates room for steps timepoints of n particles, with
// Time[t] = t*h.
func NewHistory(n, steps int, h float64) *History {
	hs := &History{
		Time: make([]float64, steps),
		n:    n,
		data: make([]float64, n*steps*Channels),
	}
	for t := range hs.Time {
		hs.Time[t] = float64(t) * h
	}
	return hs
}

// NewHistoryFromRows rebuilds a history from time-major rows, as read back
// from storage.
func NewHistoryFromRows(times []float64, rows [][]float64) (*History, error) {
	if len(times) != len(rows) {
		return nil, fmt.Errorf("%w: %d times for %d rows", ErrDimensionMismatch, len(times), len(rows))
	}
	hs := &History{Time: append([]float64(nil), times...)}
	if len(rows) == 0 {
		return hs, nil
	}
	width := len(rows[0])
	if width%Channels != 0 {
		return nil, fmt.Errorf("%w: row width %d", ErrDimensionMismatch, width)
	}
	hs.n = width / Channels
	hs.data = make([]float64, 0, width*len(rows))
	for t, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, t, len(row), width)
		}
		hs.data = append(hs.data, row...)
	}
	return hs, nil
}

// Particles returns the number of particles per row.
func (h *History) Particles() int {
	return h.n
}

// Steps returns the number of recorded timepoints.
func (h *History) Steps() int {
	return len(h.Time)
}

// Record copies the ensemble into row t.
func (h *History) Record(t int, ens *Ensemble) {
	row := h.Row(t)
	for n := 0; n < h.n; n++ {
		o := n * Channels
		row[o] = float64(ens.Membership[n])
		row[o+1] = ens.Pos[X][n]
		row[o+2] = ens.Pos[Y][n]
		row[o+3] = ens.Pos[Z][n]
		row[o+4] = ens.Vel[X][n]
		row[o+5] = ens.Vel[Y][n]
		row[o+6] = ens.Vel[Z][n]
	}
}

// Row returns the backing slice of step t. Callers must not modify it.
func (h *History) Row(t int) []float64 {
	w := h.n * Channels
	return h.data[t*w : (t+1)*w]
}

func (h *History) At(t, n int) Snapshot {
	r := h.Row(t)[n*Channels:]
	return Snapshot{
		Membership: int(r[0]),
		Pos:        [3]float64{r[1], r[2], r[3]},
		Vel:        [3]float64{r[4], r[5], r[6]},
	}
}

// Track returns one channel of particle n over every recorded step.
func (h *History) Track(n, channel int) []float64 {
	out := make([]float64, len(h.Time))
	for t := range h.Time {
		out[t] = h.Row(t)[n*Channels+channel]
	}
	return out
}

// Select returns a copy restricted to the given particles, in order.
func (h *History) Select(particles []int) *History {
	out := &History{
		Time: append([]float64(nil), h.Time...),
		n:    len(particles),
		data: make([]float64, 0, len(particles)*len(h.Time)*Channels),
	}
	for t := range h.Time {
		row := h.Row(t)
		for _, n := range particles {
			out.data = append(out.data, row[n*Channels:(n+1)*Channels]...)
		}
	}
	return out
}
