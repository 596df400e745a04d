package calibration

import (
	"math"
	"time"

	"github.com/teslashibe/go-access/pkg/modality"
)

// Accuracy bounds.
const (
	MinAccuracy     = 0.1
	MaxAccuracy     = 1.0
	UnknownAccuracy = 0.5 // no samples: cannot assert failure or success
)

// ReferencePoint is one multi-point target with the samples gathered for it.
type ReferencePoint struct {
	Target  modality.Point   `json:"target"`
	Samples []modality.Point `json:"samples"`
}

// Profile is the calibration result for one modality.
type Profile struct {
	Modality     modality.Modality `json:"modality"`
	Baseline     []float64         `json:"baseline,omitempty"`
	Points       []ReferencePoint  `json:"points,omitempty"`
	Accuracy     float64           `json:"accuracy"`
	SampleCount  int               `json:"sample_count"`
	CalibratedAt time.Time         `json:"calibrated_at"`
	IsCalibrated bool              `json:"is_calibrated"`
}

// Delta returns values minus the baseline, component-wise. Missing baseline
// components count as zero.
func (p Profile) Delta(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if i < len(p.Baseline) {
			v -= p.Baseline[i]
		}
		out[i] = v
	}
	return out
}

// Accuracy maps an average error onto [MinAccuracy, MaxAccuracy].
// With no samples the accuracy is UnknownAccuracy.
func Accuracy(averageError, maxError float64, samples int) float64 {
	if samples == 0 {
		return UnknownAccuracy
	}
	if maxError <= 0 {
		return MinAccuracy
	}
	return math.Max(MinAccuracy, math.Min(MaxAccuracy, 1-averageError/maxError))
}

// averagePointError returns the mean target-to-sample distance and the sample count.
func averagePointError(points []ReferencePoint) (float64, int) {
	var sum float64
	var n int
	for _, rp := range points {
		for _, s := range rp.Samples {
			sum += rp.Target.Distance(s)
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// averageBaselineError returns the mean distance of readings from baseline.
func averageBaselineError(baseline []float64, readings [][]float64) float64 {
	if len(readings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range readings {
		var sq float64
		for i, v := range r {
			var b float64
			if i < len(baseline) {
				b = baseline[i]
			}
			sq += (v - b) * (v - b)
		}
		sum += math.Sqrt(sq)
	}
	return sum / float64(len(readings))
}
