package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

// PowerSpectrum returns the magnitude of the positive-frequency half of
// the Hann-windowed transform of data, mean removed.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n < 2 {
		return nil
	}
	x := append([]float64(nil), data...)
	floats.AddConst(-floats.Sum(x)/float64(n), x)
	floats.Mul(x, window.Hann(n))

	spec := fft.FFTReal(x)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

// SecularFrequency is the frequency (Hz) of the strongest non-zero bin in
// a track sampled every h seconds.
func SecularFrequency(track []float64, h float64) (float64, error) {
	if !(h > 0) {
		return 0, fmt.Errorf("sample spacing must be positive, got %g", h)
	}
	ps := PowerSpectrum(track)
	if len(ps) < 2 {
		return 0, fmt.Errorf("track of %d samples is too short", len(track))
	}
	peak := floats.MaxIdx(ps[1:]) + 1
	return float64(peak) / (float64(len(track)) * h), nil
}
