package calibration

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/schedule"
	"github.com/teslashibe/go-access/pkg/signal"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeEnvelope struct {
	mu     sync.Mutex
	calls  []bool
	resets int
}

func (f *fakeEnvelope) Reset(modality.Modality) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeEnvelope) Relax(_ modality.Modality, relaxed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, relaxed)
}

type fakePresenter struct {
	mu      sync.Mutex
	current *modality.Point
	shown   int
}

func (f *fakePresenter) ShowTarget(_ modality.Modality, _, _ int, p modality.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = &p
	f.shown++
}

func (f *fakePresenter) HideTarget(modality.Modality) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = nil
}

func (f *fakePresenter) target() (modality.Point, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return modality.Point{}, false
	}
	return *f.current, true
}

func newTestEngine(t *testing.T) (*Engine, *schedule.Manual, *fakeEnvelope, *fakePresenter, *announce.Recorder) {
	t.Helper()
	clock := schedule.NewManual(t0)
	env := &fakeEnvelope{}
	rec := announce.NewRecorder(0)
	e := NewEngine(DefaultConfig(), clock, env, rec)
	p := &fakePresenter{}
	e.SetPresenter(p)
	return e, clock, env, p, rec
}

func feedPoint(e *Engine, p modality.Point) bool {
	return e.Feed(signal.Conditioned{Modality: modality.Gaze, Values: []float64{p.X, p.Y}, Window: 1})
}

// runGaze walks the whole multi-point protocol, feeding offset samples per target.
func runGaze(t *testing.T, e *Engine, clock *schedule.Manual, p *fakePresenter, offset float64, perPoint int) {
	t.Helper()
	cfg := DefaultConfig()
	for i := 0; i < cfg.GridRows*cfg.GridCols; i++ {
		target, ok := p.target()
		require.True(t, ok, "target %d not shown", i)
		for j := 0; j < perPoint; j++ {
			feedPoint(e, modality.Point{X: target.X + offset, Y: target.Y})
			clock.Advance(10 * time.Millisecond)
		}
		clock.Advance(cfg.PointDwell - time.Duration(perPoint)*10*time.Millisecond)
		if i < cfg.GridRows*cfg.GridCols-1 {
			clock.Advance(cfg.PointGap)
		}
	}
}

func TestGaze_PerfectSamplesGiveFullAccuracy(t *testing.T) {
	e, clock, env, p, _ := newTestEngine(t)

	var completed []Profile
	e.OnComplete(func(pr Profile) { completed = append(completed, pr) })

	_, err := e.Start(modality.Gaze)
	require.NoError(t, err)
	runGaze(t, e, clock, p, 0, 8)

	require.Len(t, completed, 1)
	pr := completed[0]
	assert.True(t, pr.IsCalibrated)
	assert.InDelta(t, 1.0, pr.Accuracy, 1e-9)
	assert.Equal(t, 72, pr.SampleCount)
	assert.Len(t, pr.Points, 9)
	assert.False(t, e.Running(modality.Gaze))
	assert.Equal(t, []bool{true, false}, env.calls)
	assert.Equal(t, 9, env.resets, "window cleared for every target")
}

func TestGaze_AccuracyDecreasesWithError(t *testing.T) {
	var last float64 = 2
	for _, offset := range []float64{0, 50, 150, 300, 600} {
		e, clock, _, p, _ := newTestEngine(t)
		_, err := e.Start(modality.Gaze)
		require.NoError(t, err)
		runGaze(t, e, clock, p, offset, 4)

		pr, ok := e.Profile(modality.Gaze)
		require.True(t, ok)
		assert.LessOrEqual(t, pr.Accuracy, last, "offset %v", offset)
		assert.GreaterOrEqual(t, pr.Accuracy, MinAccuracy)
		assert.LessOrEqual(t, pr.Accuracy, MaxAccuracy)
		last = pr.Accuracy
	}
	assert.InDelta(t, MinAccuracy, last, 1e-9)
}

func TestGaze_SampleCapPerPoint(t *testing.T) {
	e, _, _, p, _ := newTestEngine(t)
	_, err := e.Start(modality.Gaze)
	require.NoError(t, err)

	target, _ := p.target()
	accepted := 0
	for i := 0; i < 20; i++ {
		if feedPoint(e, target) {
			accepted++
		}
	}
	assert.Equal(t, DefaultConfig().SamplesPerPoint, accepted)
}

func TestGaze_CollectWindowCloses(t *testing.T) {
	e, clock, _, p, _ := newTestEngine(t)
	_, err := e.Start(modality.Gaze)
	require.NoError(t, err)

	target, _ := p.target()
	clock.Advance(DefaultConfig().CollectWindow + time.Millisecond)
	assert.False(t, feedPoint(e, target))
}

func TestGaze_NoSamplesIsUnknownButCalibrated(t *testing.T) {
	e, clock, _, _, _ := newTestEngine(t)
	_, err := e.Start(modality.Gaze)
	require.NoError(t, err)

	clock.Advance(time.Minute)

	pr, ok := e.Profile(modality.Gaze)
	require.True(t, ok)
	assert.True(t, pr.IsCalibrated)
	assert.Equal(t, UnknownAccuracy, pr.Accuracy)
	assert.Zero(t, pr.SampleCount)
}

func TestStart_RejectsConcurrent(t *testing.T) {
	e, _, _, _, _ := newTestEngine(t)
	_, err := e.Start(modality.Gaze)
	require.NoError(t, err)

	_, err = e.Start(modality.Gaze)
	assert.ErrorIs(t, err, ErrCalibrationInProgress)

	// a different modality is independent
	_, err = e.Start(modality.Breath)
	assert.NoError(t, err)
}

func TestStart_UnsupportedModality(t *testing.T) {
	e, _, _, _, _ := newTestEngine(t)
	_, err := e.Start(modality.Keyboard)
	assert.ErrorIs(t, err, ErrUnsupportedModality)
}

func TestComplete_EarlyUsesCollectedSamples(t *testing.T) {
	e, _, _, p, _ := newTestEngine(t)
	_, err := e.Start(modality.Gaze)
	require.NoError(t, err)

	target, _ := p.target()
	feedPoint(e, target)
	feedPoint(e, target)

	pr, err := e.Complete(modality.Gaze)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pr.Accuracy, 1e-9)
	assert.Equal(t, 2, pr.SampleCount)
	_, shown := p.target()
	assert.False(t, shown)

	_, err = e.Complete(modality.Gaze)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestBreath_BaselineFromLatestReading(t *testing.T) {
	e, clock, _, _, rec := newTestEngine(t)
	_, err := e.Start(modality.Breath)
	require.NoError(t, err)

	for _, v := range []float64{0.30, 0.32, 0.31} {
		assert.True(t, e.Feed(signal.Conditioned{Modality: modality.Breath, Values: []float64{v}}))
	}
	clock.Advance(DefaultConfig().SettleDelay)

	pr, ok := e.Profile(modality.Breath)
	require.True(t, ok)
	assert.True(t, pr.IsCalibrated)
	assert.Equal(t, []float64{0.31}, pr.Baseline)
	assert.Greater(t, pr.Accuracy, 0.9)
	assert.InDelta(t, 0.04, pr.Delta([]float64{0.35})[0], 1e-9)
	assert.Contains(t, rec.Messages(), "Breath calibration complete. Accuracy 97 percent.")
}

func TestCancel_ProducesNoProfile(t *testing.T) {
	e, clock, env, _, _ := newTestEngine(t)
	_, err := e.Start(modality.Orientation)
	require.NoError(t, err)

	e.Cancel(modality.Orientation)
	clock.Advance(time.Minute)

	_, ok := e.Profile(modality.Orientation)
	assert.False(t, ok)
	assert.Equal(t, []bool{true, false}, env.calls)
	assert.Zero(t, clock.Pending())
}

func TestInvalidate_KeepsLastAccuracy(t *testing.T) {
	e, clock, _, _, _ := newTestEngine(t)
	_, err := e.Start(modality.Breath)
	require.NoError(t, err)
	e.Feed(signal.Conditioned{Modality: modality.Breath, Values: []float64{0.2}})
	clock.Advance(DefaultConfig().SettleDelay)

	var gotModality modality.Modality
	var gotAccuracy float64
	e.OnRecalibrationNeeded(func(m modality.Modality, acc float64) {
		gotModality, gotAccuracy = m, acc
	})

	e.Invalidate(modality.Breath, "sensor moved")

	pr, _ := e.Profile(modality.Breath)
	assert.False(t, pr.IsCalibrated)
	assert.InDelta(t, 1.0, pr.Accuracy, 1e-9)
	assert.Equal(t, modality.Breath, gotModality)
	assert.InDelta(t, 1.0, gotAccuracy, 1e-9)
}

func TestSetViewport_InvalidatesGazeOnChange(t *testing.T) {
	e, _, _, _, _ := newTestEngine(t)
	e.Restore(Profile{Modality: modality.Gaze, Accuracy: 0.8, IsCalibrated: true})

	e.SetViewport(modality.Viewport{Width: 1920, Height: 1080})
	pr, _ := e.Profile(modality.Gaze)
	assert.True(t, pr.IsCalibrated, "same size must not invalidate")

	e.SetViewport(modality.Viewport{Width: 1280, Height: 720})
	pr, _ = e.Profile(modality.Gaze)
	assert.False(t, pr.IsCalibrated)
	assert.Equal(t, 0.8, pr.Accuracy)
}

func TestAccuracy_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		avg     float64
		max     float64
		samples int
		want    float64
	}{
		{"perfect", 0, 100, 5, 1},
		{"half", 50, 100, 5, 0.5},
		{"clamped low", 500, 100, 5, MinAccuracy},
		{"no samples", 0, 100, 0, UnknownAccuracy},
		{"zero max", 1, 0, 5, MinAccuracy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Accuracy(tt.avg, tt.max, tt.samples), 1e-9)
		})
	}
}
