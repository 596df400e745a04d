package modality

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	m, err := Parse("gaze")
	assert.NoError(t, err)
	assert.Equal(t, Gaze, m)

	_, err = Parse("telepathy")
	assert.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		m           Modality
		calibration bool
		reliable    bool
		continuous  bool
	}{
		{Gaze, true, false, true},
		{Breath, true, false, true},
		{Orientation, false, false, true},
		{Switch, false, true, false},
		{Keyboard, false, true, false},
		{Voice, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.m), func(t *testing.T) {
			assert.Equal(t, tt.calibration, tt.m.RequiresCalibration())
			assert.Equal(t, tt.reliable, tt.m.HighReliability())
			assert.Equal(t, tt.continuous, tt.m.Continuous())
		})
	}
}

func TestSampleFinite(t *testing.T) {
	assert.True(t, Sample{Values: []float64{1, 2}}.Finite())
	assert.False(t, Sample{Values: []float64{1, math.NaN()}}.Finite())
	assert.False(t, Sample{Values: []float64{math.Inf(-1)}}.Finite())
	assert.False(t, Sample{}.Finite())
}

func TestViewport(t *testing.T) {
	vp := Viewport{Width: 300, Height: 400}
	assert.Equal(t, 500.0, vp.Diagonal())
	assert.True(t, vp.Contains(Point{X: 0, Y: 400}))
	assert.False(t, vp.Contains(Point{X: -1, Y: 10}))
}

func TestSensorUnavailableError(t *testing.T) {
	cause := errors.New("permission denied")
	err := Unavailable(Gaze, cause)

	assert.ErrorIs(t, err, ErrSensorUnavailable)
	assert.ErrorIs(t, err, cause)

	var sue *SensorUnavailableError
	assert.True(t, errors.As(err, &sue))
	assert.Equal(t, Gaze, sue.Modality)
	assert.Contains(t, err.Error(), "permission denied")
}
