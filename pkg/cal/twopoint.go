// Package cal derives linear calibration constants from a two-point factory
// calibration: one zero-load reading and one reading under a known load.
package cal

import (
	"log"

	"github.com/chewxy/math32"
)

// Point pairs a known applied weight with the averaged raw reading measured
// under it.
type Point struct {
	Expected float32
	Measured int32
}

// Constants maps raw readings to weight units: weight = M * (raw - B).
type Constants struct {
	M float32
	B int32
}

// TwoPoint accumulates calibration points. An expected weight of exactly 0.0
// stores (or overwrites) the zero point; any other weight stores (or
// overwrites) the single non-zero point. The zero value is ready to use.
type TwoPoint struct {
	zero      int32
	haveZero  bool
	other     Point
	haveOther bool
}

// AddPoint records one calibration point.
func (t *TwoPoint) AddPoint(p Point) {
	log.Printf("cal: new calibration point: expected=%v measured=%d", p.Expected, p.Measured)
	if p.Expected == 0.0 {
		t.zero = p.Measured
		t.haveZero = true
	} else {
		t.other = p
		t.haveOther = true
	}
}

// Constants derives the calibration constants. It reports false when either
// point is missing or the two measured values coincide; derived constants
// are never silently wrong.
func (t *TwoPoint) Constants() (Constants, bool) {
	if !t.haveZero || !t.haveOther {
		log.Printf("cal: not enough calibration points")
		return Constants{}, false
	}
	denom := int64(t.other.Measured) - int64(t.zero)
	if denom == 0 {
		log.Printf("cal: identical readings for both points, refusing to divide by zero")
		return Constants{}, false
	}
	m := t.other.Expected / float32(denom)
	if math32.IsNaN(m) || math32.IsInf(m, 0) {
		log.Printf("cal: degenerate slope %v", m)
		return Constants{}, false
	}
	return Constants{M: m, B: t.zero}, true
}
