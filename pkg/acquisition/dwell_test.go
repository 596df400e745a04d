package acquisition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-access/pkg/calibration"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/schedule"
)

func newDwellFixture(t *testing.T, calibrated bool) (*Dwell, *schedule.Manual, *fakeSurface, *collector) {
	t.Helper()
	clock := schedule.NewManual(t0)
	surface := &fakeSurface{
		regions: []region{
			{ref: events.TargetRef{ID: "play", Interactive: true}, x: 100, y: 100, w: 200, h: 100},
			{ref: events.TargetRef{ID: "quit", Interactive: true}, x: 400, y: 100, w: 200, h: 100},
			{ref: events.TargetRef{ID: "label", Interactive: false}, x: 100, y: 300, w: 200, h: 100},
		},
		list: targets("play", "quit"),
	}
	gate := fakeGate{modality.Gaze: {Modality: modality.Gaze, Accuracy: 0.85, IsCalibrated: calibrated}}
	c := &collector{}
	d := NewDwell(modality.Gaze, DefaultDwellConfig(), clock, surface, gate, c.sink)
	return d, clock, surface, c
}

// hover feeds samples on (x,y) every 50ms for the given duration.
func hover(d *Dwell, clock *schedule.Manual, x, y float64, dur time.Duration) {
	step := 50 * time.Millisecond
	d.Update(gazeAt(x, y))
	for elapsed := time.Duration(0); elapsed+step <= dur; elapsed += step {
		clock.Advance(step)
		d.Update(gazeAt(x, y))
	}
	if rem := dur % step; rem > 0 {
		clock.Advance(rem)
	}
}

func TestDwell_EarlyExitThenFullHover(t *testing.T) {
	d, clock, _, c := newDwellFixture(t, true)
	dwell := DefaultDwellConfig().DwellTime

	d.Update(gazeAt(150, 150))
	clock.Advance(dwell - time.Millisecond)
	d.Update(gazeAt(900, 900))
	clock.Advance(time.Second)
	assert.Empty(t, c.all(), "early exit must not activate")

	d.Update(gazeAt(150, 150))
	clock.Advance(dwell + time.Millisecond)

	got := c.all()
	require.Len(t, got, 1)
	assert.Equal(t, events.ActionSelect, got[0].Action)
	assert.Equal(t, "play", got[0].Target.ID)
	assert.Equal(t, 0.85, got[0].Accuracy)
	assert.Equal(t, dwell, got[0].ResponseTime)
	assert.Equal(t, DwellIdle, d.State())
}

func TestDwell_NoPartialCredit(t *testing.T) {
	d, clock, _, c := newDwellFixture(t, true)

	d.Update(gazeAt(150, 150))
	clock.Advance(1500 * time.Millisecond)
	d.Update(gazeAt(450, 150)) // moves to quit
	clock.Advance(1500 * time.Millisecond)
	d.Update(gazeAt(150, 150)) // back to play
	clock.Advance(1500 * time.Millisecond)

	assert.Empty(t, c.all())
	assert.Equal(t, DwellCommitting, d.State())
	assert.InDelta(t, 0.75, d.Progress(), 1e-9)
}

func TestDwell_StationaryGazeActivatesOnce(t *testing.T) {
	d, clock, _, c := newDwellFixture(t, true)

	hover(d, clock, 150, 150, 3*DefaultDwellConfig().DwellTime)
	require.Len(t, c.all(), 1)

	// leaving and returning re-arms
	d.Update(gazeAt(900, 900))
	hover(d, clock, 150, 150, DefaultDwellConfig().DwellTime+time.Millisecond)
	assert.Len(t, c.all(), 2)
}

func TestDwell_StableGazeHasFullConfidence(t *testing.T) {
	d, clock, _, c := newDwellFixture(t, true)

	hover(d, clock, 150, 150, DefaultDwellConfig().DwellTime+time.Millisecond)

	got := c.all()
	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, got[0].Confidence, 1e-9)
}

func TestDwell_IneligibleTargetIgnored(t *testing.T) {
	d, clock, _, c := newDwellFixture(t, true)

	d.Update(gazeAt(150, 350))
	assert.Equal(t, DwellIdle, d.State())
	clock.Advance(5 * time.Second)
	assert.Empty(t, c.all())
}

func TestDwell_UncalibratedDowngradesToMove(t *testing.T) {
	d, clock, _, c := newDwellFixture(t, false)

	d.Update(gazeAt(150, 150))
	clock.Advance(DefaultDwellConfig().DwellTime)

	got := c.all()
	require.Len(t, got, 1)
	assert.Equal(t, events.ActionMove, got[0].Action)
	assert.Equal(t, "play", got[0].Target.ID)
	assert.InDelta(t, 0.5, got[0].Confidence, 1e-9)
}

func TestDwell_EmptyEligibleSetHoldsUntilRefresh(t *testing.T) {
	d, clock, surface, c := newDwellFixture(t, true)
	dwell := DefaultDwellConfig().DwellTime

	d.Update(gazeAt(150, 150))
	surface.setList(nil)
	clock.Advance(dwell)
	assert.Empty(t, c.all())
	assert.Equal(t, DwellCommitting, d.State())
	assert.Equal(t, 1.0, d.Progress())

	// still empty: keeps holding
	d.TargetsChanged()
	clock.Advance(dwell)
	assert.Empty(t, c.all())

	surface.setList(targets("play", "quit"))
	d.TargetsChanged()
	clock.Advance(dwell - time.Millisecond)
	assert.Empty(t, c.all(), "refresh re-arms a fresh timer")
	clock.Advance(time.Millisecond)
	assert.Len(t, c.all(), 1)
}

func TestDwell_StopCancelsPendingTimer(t *testing.T) {
	d, clock, _, c := newDwellFixture(t, true)

	d.Update(gazeAt(150, 150))
	d.Stop()
	clock.Advance(time.Minute)

	assert.Empty(t, c.all())
	assert.Zero(t, clock.Pending())
}

func TestGateSelect(t *testing.T) {
	tests := []struct {
		name     string
		m        modality.Modality
		gate     Gate
		wantMove bool
	}{
		{"calibrated gaze", modality.Gaze, fakeGate{modality.Gaze: {IsCalibrated: true}}, false},
		{"uncalibrated gaze", modality.Gaze, fakeGate{modality.Gaze: {IsCalibrated: false}}, true},
		{"no profile breath", modality.Breath, fakeGate{}, true},
		{"switch never gated", modality.Switch, fakeGate{}, false},
		{"nil gate", modality.Keyboard, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := events.New(events.ActionSelect, tt.m, t0)
			e.Confidence = 1
			out := gateSelect(tt.gate, e)
			if tt.wantMove {
				assert.Equal(t, events.ActionMove, out.Action)
				assert.Equal(t, 0.5, out.Confidence)
			} else {
				assert.Equal(t, events.ActionSelect, out.Action)
				assert.Equal(t, 1.0, out.Confidence)
			}
		})
	}
}

func TestAccuracyFor_Unknown(t *testing.T) {
	assert.Equal(t, calibration.UnknownAccuracy, accuracyFor(fakeGate{}, modality.Gaze))
}
