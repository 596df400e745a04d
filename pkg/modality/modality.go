// Package modality defines the input channels the pipeline understands and the
// raw readings sensor adapters push into it.
package modality

import (
	"fmt"
	"math"
	"time"
)

// Modality identifies one input channel.
type Modality string

const (
	Gaze        Modality = "gaze"
	Switch      Modality = "switch"
	Keyboard    Modality = "keyboard"
	Orientation Modality = "orientation"
	Breath      Modality = "breath"
	Voice       Modality = "voice"
)

var all = []Modality{Gaze, Switch, Keyboard, Orientation, Breath, Voice}

// All returns every known modality in a stable order.
func All() []Modality {
	out := make([]Modality, len(all))
	copy(out, all)
	return out
}

// Parse converts a name into a Modality.
func Parse(name string) (Modality, error) {
	m := Modality(name)
	if !m.Valid() {
		return "", fmt.Errorf("modality: unknown modality %q", name)
	}
	return m, nil
}

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	for _, k := range all {
		if k == m {
			return true
		}
	}
	return false
}

// RequiresCalibration reports whether select decisions for m must be gated on
// a calibrated profile.
func (m Modality) RequiresCalibration() bool {
	return m == Gaze || m == Breath
}

// Calibratable reports whether a calibration protocol exists for m.
func (m Modality) Calibratable() bool {
	return m == Gaze || m == Breath || m == Orientation
}

// HighReliability reports whether m is a discrete, low-effort fallback method.
func (m Modality) HighReliability() bool {
	return m == Keyboard || m == Switch
}

// Continuous reports whether m produces a continuous signal (as opposed to discrete stimuli).
func (m Modality) Continuous() bool {
	return m == Gaze || m == Orientation || m == Breath
}

func (m Modality) String() string {
	return string(m)
}

// Point is a 2-D coordinate on the addressable surface.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Viewport is the addressable surface size in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Diagonal returns the viewport diagonal length.
func (v Viewport) Diagonal() float64 {
	return math.Hypot(v.Width, v.Height)
}

// Contains reports whether p lies on the surface.
func (v Viewport) Contains(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= v.Width && p.Y <= v.Height
}

// Sample is a raw reading pushed by a sensor adapter.
//
// Values layout per modality:
//   - gaze:        [x, y] in viewport pixels
//   - orientation: [pitch, roll] in degrees
//   - breath:      [level] normalised 0-1
type Sample struct {
	Modality   Modality  `json:"modality"`
	Values     []float64 `json:"values"`
	Time       time.Time `json:"time"`
	Confidence float64   `json:"confidence,omitempty"` // 0 when the sensor does not report one
}

// Point interprets the first two values as a coordinate.
func (s Sample) Point() (Point, bool) {
	if len(s.Values) < 2 {
		return Point{}, false
	}
	return Point{X: s.Values[0], Y: s.Values[1]}, true
}

// Finite reports whether every component is a finite number.
func (s Sample) Finite() bool {
	for _, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return len(s.Values) > 0
}
