package field

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/qmfsim/internal/dynamo"
)

// Kind names a zone's force regime in configuration.
type Kind string

const (
	KindIdeal       Kind = "ideal"
	KindLinearEntry Kind = "linear_entry"
	KindLinearExit  Kind = "linear_exit"
	KindHMEntry     Kind = "hm_entry"
	KindHMExit      Kind = "hm_exit"
	KindDetector    Kind = "detector"
)

// Kinds lists the zone kinds accepted in a device layout.
func Kinds() []Kind {
	return []Kind{KindIdeal, KindLinearEntry, KindLinearExit, KindHMEntry, KindHMExit}
}

// ZoneSpec describes one segment of a device layout. Span is in metres.
type ZoneSpec struct {
	Kind Kind
	Span float64
}

// Zone is a force law placed on the transit axis.
type Zone struct {
	Kind   Kind
	Law    Law
	Span   float64
	Origin float64
}

func newLaw(kind Kind, span, radius float64) (Law, error) {
	switch kind {
	case KindIdeal:
		return Ideal{}, nil
	case KindLinearEntry:
		return LinearFringe{Span: span}, nil
	case KindLinearExit:
		return LinearFringe{Span: span, Exit: true}, nil
	case KindHMEntry:
		return NewExpFringe(span, radius, false), nil
	case KindHMExit:
		return NewExpFringe(span, radius, true), nil
	case KindDetector:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("unknown zone kind: %s", kind)
	}
}

// Accel evaluates the zone's law with z measured from the zone origin.
// localZ is scratch of the ensemble's length.
func (z Zone) Accel(dst, pos dynamo.Coords, localZ []float64, t float64, env Env) {
	copy(localZ, pos[dynamo.Z])
	floats.AddConst(-z.Origin, localZ)
	z.Law.Accel(dst, dynamo.Coords{pos[dynamo.X], pos[dynamo.Y], localZ}, t, env)
}
