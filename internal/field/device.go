package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

const (
	// DefaultSteepness weights a neighbouring zone by about 1e-11.
	DefaultSteepness = 1e11

	// LeakTolerance bounds the weight a particle may take from an adjacent zone.
	LeakTolerance = 1e-9
)

// Device is an ordered sequence of zones followed by an open-ended
// detector. It is read-only once built and may be shared across species.
type Device struct {
	drive     Drive
	zones     []Zone
	bounds    []float64
	steepness float64
}

type Option func(*Device)

// WithSteepness overrides the blending steepness.
func WithSteepness(s float64) Option {
	return func(d *Device) { d.steepness = s }
}

// NewDevice lays out the zones end to end from z = 0 and appends the
// terminal detector.
func NewDevice(drive Drive, specs []ZoneSpec, opts ...Option) (*Device, error) {
	if err := drive.Validate(); err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: device needs at least one zone", dynamo.ErrParameterBounds)
	}

	d := &Device{
		drive:     drive,
		zones:     make([]Zone, 0, len(specs)+1),
		bounds:    make([]float64, 0, len(specs)),
		steepness: DefaultSteepness,
	}
	for _, opt := range opts {
		opt(d)
	}

	origin := 0.0
	for i, spec := range specs {
		if spec.Kind == KindDetector {
			return nil, fmt.Errorf("zone %d: detector is implicit and cannot be placed", i+1)
		}
		if !(spec.Span > 0) || math.IsInf(spec.Span, 0) {
			return nil, fmt.Errorf("zone %d (%s): %w, got %g", i+1, spec.Kind, dynamo.ErrInvalidSpan, spec.Span)
		}
		law, err := newLaw(spec.Kind, spec.Span, drive.Radius)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", i+1, err)
		}
		end := origin + spec.Span
		if !(end > origin) {
			return nil, fmt.Errorf("zone %d: %w at %g", i+1, dynamo.ErrNonMonotonic, end)
		}
		d.zones = append(d.zones, Zone{Kind: spec.Kind, Law: law, Span: spec.Span, Origin: origin})
		d.bounds = append(d.bounds, end)
		origin = end
	}
	d.zones = append(d.zones, Zone{Kind: KindDetector, Law: Null{}, Origin: origin})

	if err := ValidateSteepness(d.steepness, len(specs)); err != nil {
		return nil, err
	}
	if err := d.checkFringeLeak(); err != nil {
		return nil, err
	}
	return d, nil
}

// ValidateSteepness checks that a neighbouring zone's weight stays below
// LeakTolerance and that the weight denominator stays finite for every
// index gap a device of k zones can produce. It bounds the weight only;
// NewDevice also scales it by how far a linear ramp grows along the device.
func ValidateSteepness(s float64, k int) error {
	if !(s > 0) || math.IsInf(s, 0) {
		return fmt.Errorf("%w: %g is not a positive finite number", dynamo.ErrSteepness, s)
	}
	if leak := 1 / (1 + s); leak > LeakTolerance {
		return fmt.Errorf("%w: %g leaks %.2e into adjacent zones (max %.0e)", dynamo.ErrSteepness, s, leak, LeakTolerance)
	}
	gap := float64(k + 1)
	if math.IsInf(s*gap*gap, 0) {
		return fmt.Errorf("%w: %g overflows for %d zones", dynamo.ErrSteepness, s, k)
	}
	return nil
}

// checkFringeLeak bounds the leak of every linear fringe evaluated away
// from its gap. The ramp reaches 1+L/span anywhere in the device and the
// axial term r0/(2 span) relative to the transverse field at r0.
func (d *Device) checkFringeLeak() error {
	length := d.Length()
	for i, z := range d.zones {
		if _, ok := z.Law.(LinearFringe); !ok {
			continue
		}
		growth := math.Max(1+length/z.Span, d.drive.Radius/(2*z.Span))
		if leak := growth / (1 + d.steepness); leak > LeakTolerance {
			return fmt.Errorf("%w: zone %d (%s) spans %g m of a %g m device; steepness %g leaks %.2e (need at least %.2g)",
				dynamo.ErrSteepness, i+1, z.Kind, z.Span, length, d.steepness, leak, growth/LeakTolerance)
		}
	}
	return nil
}

// BlendWeight is the weight of zone k for a particle with membership m.
func BlendWeight(s float64, k, m int) float64 {
	d := float64(k - m)
	return 1 / (1 + s*d*d)
}

func (d *Device) Drive() Drive { return d.drive }

func (d *Device) Steepness() float64 { return d.steepness }

// Zones returns the number of zones before the detector.
func (d *Device) Zones() int { return len(d.bounds) }

// Zone returns zone k, 1-based; k = Zones()+1 is the detector.
func (d *Device) Zone(k int) Zone { return d.zones[k-1] }

// Length is the axial position of the detector.
func (d *Device) Length() float64 { return d.bounds[len(d.bounds)-1] }

func (d *Device) Boundaries() []float64 {
	return append([]float64(nil), d.bounds...)
}

// Classify writes the zone index of every axial position: 1 below the
// first boundary, k+1 at or past boundary k, Zones()+1 past the last.
func (d *Device) Classify(z []float64, dst []int) {
	for n, zn := range z {
		k := 1
		for _, b := range d.bounds {
			if zn >= b {
				k++
			}
		}
		dst[n] = k
	}
}

// InBounds reports whether each particle is still inside the electrodes.
func (d *Device) InBounds(x, y []float64, dst []bool) {
	r := d.drive.Radius
	for n := range x {
		dst[n] = math.Abs(x[n]) <= r && math.Abs(y[n]) <= r
	}
}

// Bind returns an evaluator of the blended field for one species.
func (d *Device) Bind(ens *dynamo.Ensemble) *Field {
	n := ens.Len()
	return &Field{
		dev:     d,
		ens:     ens,
		env:     NewEnv(d.drive, ens.Species),
		localZ:  make([]float64, n),
		partial: dynamo.NewCoords(n),
		active:  make([]float64, n),
		weight:  make([]float64, n),
	}
}

// Field is the blended acceleration of a device acting on one ensemble.
// It holds scratch buffers and is not safe for concurrent use.
type Field struct {
	dev     *Device
	ens     *dynamo.Ensemble
	env     Env
	localZ  []float64
	partial dynamo.Coords
	active  []float64
	weight  []float64
}

func (f *Field) Env() Env { return f.env }

// Pulse evaluates every zone over the whole ensemble and sums the results
// weighted by each particle's membership. Lost and detected particles get
// exactly zero.
func (f *Field) Pulse(dst, pos dynamo.Coords, t float64) {
	dst.Zero()

	k := f.dev.Zones()
	for n, m := range f.ens.Membership {
		if m >= 1 && m <= k {
			f.active[n] = 1
		} else {
			f.active[n] = 0
		}
	}

	s := f.dev.steepness
	for i, zone := range f.dev.zones {
		zone.Accel(f.partial, pos, f.localZ, t, f.env)
		for n, m := range f.ens.Membership {
			f.weight[n] = f.active[n] * BlendWeight(s, i+1, m)
		}
		for a := range dst {
			floats.Mul(f.partial[a], f.weight)
			floats.Add(dst[a], f.partial[a])
		}
	}
}

// Select is the hard-switched field: each particle feels only the law of
// its own zone.
func (f *Field) Select(dst, pos dynamo.Coords, t float64) {
	dst.Zero()
	k := f.dev.Zones()
	for i, zone := range f.dev.zones {
		zone.Accel(f.partial, pos, f.localZ, t, f.env)
		for n, m := range f.ens.Membership {
			if m != i+1 || m > k {
				continue
			}
			for a := range dst {
				dst[a][n] = f.partial[a][n]
			}
		}
	}
}
