package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
)

var t0 = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

func ev(m modality.Modality, accuracy float64, rt time.Duration) events.InputEvent {
	e := events.New(events.ActionSelect, m, t0)
	e.Accuracy = accuracy
	e.Confidence = 1
	e.ResponseTime = rt
	e.Context = "menu@afternoon"
	return e
}

func repeat(n int, fn func(i int) events.InputEvent) []events.InputEvent {
	out := make([]events.InputEvent, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

func TestAnalyze_NothingBelowMinHistory(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)

	// worst possible history, but too short
	history := repeat(9, func(int) events.InputEvent { return ev(modality.Gaze, 0, 100*time.Millisecond) })
	got := e.Analyze(history, Context{Active: modality.Gaze, Fatigue: 1})

	assert.Empty(t, got)
	assert.Zero(t, e.Session().Delivered())
}

func TestAnalyze_RecalibrateOnLowTrailingAccuracy(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	history := repeat(20, func(i int) events.InputEvent {
		acc := 0.3
		if i%2 == 1 {
			acc = 0.5
		}
		return ev(modality.Gaze, acc, 2*time.Second)
	})

	got := e.Analyze(history, Context{Active: modality.Gaze, Now: t0})

	require.Len(t, got, 1)
	assert.Equal(t, KindRecalibrate, got[0].Kind)
	assert.Equal(t, modality.Gaze, got[0].Payload.Modality)
	assert.InDelta(t, 0.6, got[0].Confidence, 1e-9)
	assert.InDelta(t, 0.4, got[0].Payload.Accuracy, 1e-9)
	assert.Equal(t, ReasonLowAccuracy, got[0].Reason)
}

func TestAnalyze_RecalibrateOnlyForCalibratedModalities(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	history := repeat(12, func(int) events.InputEvent { return ev(modality.Orientation, 0.2, 0) })

	for _, r := range e.Candidates(history, Context{Active: modality.Orientation}) {
		assert.NotEqual(t, KindRecalibrate, r.Kind)
	}
}

func TestAnalyze_FatigueSwitchesToKeyboard(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	history := repeat(12, func(int) events.InputEvent { return ev(modality.Gaze, 0.9, 1500*time.Millisecond) })

	got := e.Analyze(history, Context{Active: modality.Gaze, Fatigue: 0.9, Now: t0})

	require.Len(t, got, 1)
	assert.Equal(t, KindSwitchMethod, got[0].Kind)
	assert.Equal(t, modality.Keyboard, got[0].Payload.To)
	assert.Equal(t, modality.Gaze, got[0].Payload.From)
	assert.InDelta(t, 0.9, got[0].Confidence, 1e-9)
	assert.Equal(t, ReasonFatigue, got[0].Reason)
}

func TestAnalyze_FatigueOverridesPerformanceSwitch(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	var history []events.InputEvent
	history = append(history, repeat(6, func(int) events.InputEvent { return ev(modality.Gaze, 0.55, 900*time.Millisecond) })...)
	history = append(history, repeat(6, func(int) events.InputEvent { return ev(modality.Switch, 1, 200*time.Millisecond) })...)

	cands := e.Candidates(history, Context{Active: modality.Gaze, Fatigue: 0.8})

	var switches []Recommendation
	for _, r := range cands {
		if r.Kind == KindSwitchMethod {
			switches = append(switches, r)
		}
	}
	require.Len(t, switches, 1)
	assert.Equal(t, modality.Keyboard, switches[0].Payload.To)
}

func TestAnalyze_FatigueBreakWhenAlreadyReliable(t *testing.T) {
	tests := []struct {
		fatigue float64
		want    time.Duration
	}{
		{0.8, 4 * time.Minute},
		{1.0, 5 * time.Minute},
	}
	for _, tt := range tests {
		e := NewEngine(DefaultConfig(), nil)
		history := repeat(12, func(int) events.InputEvent { return ev(modality.Switch, 1, 1500*time.Millisecond) })

		got := e.Analyze(history, Context{Active: modality.Switch, Fatigue: tt.fatigue})

		require.Len(t, got, 1)
		assert.Equal(t, KindSuggestBreak, got[0].Kind)
		assert.InDelta(t, float64(tt.want), float64(got[0].Payload.Break), float64(time.Millisecond))
	}
}

func TestAnalyze_PerformanceSwitch(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	var history []events.InputEvent
	history = append(history, repeat(6, func(int) events.InputEvent { return ev(modality.Gaze, 0.55, 900*time.Millisecond) })...)
	history = append(history, repeat(6, func(int) events.InputEvent { return ev(modality.Switch, 1, 200*time.Millisecond) })...)

	got := e.Analyze(history, Context{Active: modality.Gaze, Key: "menu@afternoon"})

	require.NotEmpty(t, got)
	assert.Equal(t, KindSwitchMethod, got[0].Kind)
	assert.Equal(t, modality.Switch, got[0].Payload.To)
	assert.Greater(t, got[0].Payload.ToScore-got[0].Payload.FromScore, 0.15)
	assert.GreaterOrEqual(t, got[0].Confidence, 0.7)
}

func TestAnalyze_NoSwitchWithinThreshold(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	var history []events.InputEvent
	history = append(history, repeat(6, func(int) events.InputEvent { return ev(modality.Gaze, 0.9, 900*time.Millisecond) })...)
	history = append(history, repeat(6, func(int) events.InputEvent { return ev(modality.Switch, 0.95, 900*time.Millisecond) })...)

	for _, r := range e.Candidates(history, Context{Active: modality.Gaze}) {
		assert.NotEqual(t, KindSwitchMethod, r.Kind)
	}
}

func TestAnalyze_Timing(t *testing.T) {
	tests := []struct {
		name      string
		accuracy  func(i int) float64
		rt        time.Duration
		direction string
	}{
		{
			name:      "errors while fast",
			accuracy:  func(i int) float64 { return []float64{0.2, 0.9}[i%2] },
			rt:        300 * time.Millisecond,
			direction: "increase",
		},
		{
			name:      "accurate but slow",
			accuracy:  func(int) float64 { return 0.95 },
			rt:        3 * time.Second,
			direction: "decrease",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(DefaultConfig(), nil)
			history := repeat(12, func(i int) events.InputEvent { return ev(modality.Switch, tt.accuracy(i), tt.rt) })

			var timing []Recommendation
			for _, r := range e.Candidates(history, Context{Active: modality.Switch}) {
				if r.Kind == KindAdjustTiming {
					timing = append(timing, r)
				}
			}
			require.Len(t, timing, 1)
			assert.Equal(t, tt.direction, timing[0].Payload.Direction)
			assert.GreaterOrEqual(t, timing[0].Confidence, 0.7)
		})
	}
}

func TestAnalyze_SessionCap(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil)
	// gaze and breath both inaccurate: two recalibrations per pass
	var history []events.InputEvent
	history = append(history, repeat(10, func(int) events.InputEvent { return ev(modality.Gaze, 0.2, 2*time.Second) })...)
	history = append(history, repeat(10, func(int) events.InputEvent { return ev(modality.Breath, 0.1, 2*time.Second) })...)
	ctx := Context{Active: modality.Gaze, Fatigue: 0.95}

	var counts []int
	for i := 0; i < 4; i++ {
		counts = append(counts, len(e.Analyze(history, ctx)))
	}

	assert.Equal(t, []int{2, 2, 1, 0}, counts)
	assert.Equal(t, 5, e.Session().Delivered())

	e.Session().Reset()
	assert.Len(t, e.Analyze(history, ctx), 2)
}

func TestAnalyze_SortedByConfidence(t *testing.T) {
	e := NewEngine(DefaultConfig().WithCaps(10, 10), nil)
	var history []events.InputEvent
	history = append(history, repeat(10, func(int) events.InputEvent { return ev(modality.Gaze, 0.2, 2*time.Second) })...)
	history = append(history, repeat(10, func(int) events.InputEvent { return ev(modality.Breath, 0.1, 2*time.Second) })...)

	got := e.Analyze(history, Context{Active: modality.Gaze, Fatigue: 0.85})

	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Confidence, got[i].Confidence)
	}
	assert.Equal(t, KindRecalibrate, got[0].Kind) // breath, 0.9
}

func TestRecommendation_Message(t *testing.T) {
	r := Recommendation{Kind: KindSuggestBreak, Payload: Payload{Break: 4 * time.Minute}}
	assert.Equal(t, "Consider a 4m0s break", r.Message())

	r = Recommendation{Kind: KindSwitchMethod, Payload: Payload{To: modality.Keyboard}}
	assert.Equal(t, "Try switching to keyboard input", r.Message())
}
