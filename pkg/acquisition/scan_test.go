package acquisition

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/schedule"
)

type scanFixture struct {
	scan      *Scan
	clock     *schedule.Manual
	surface   *fakeSurface
	out       *collector
	presenter *recordingPresenter
	announcer *announce.Recorder
}

func newScanFixture(t *testing.T, config ScanConfig, ids ...string) *scanFixture {
	t.Helper()
	f := &scanFixture{
		clock:     schedule.NewManual(t0),
		surface:   &fakeSurface{list: targets(ids...)},
		out:       &collector{},
		presenter: &recordingPresenter{},
		announcer: announce.NewRecorder(0),
	}
	f.scan = NewScan(modality.Switch, config, f.clock, f.surface, fakeGate{}, f.announcer, f.out.sink)
	f.scan.SetPresenter(f.presenter)
	return f
}

func highlighted(t *testing.T, s *Scan) string {
	t.Helper()
	h, ok := s.Highlighted()
	require.True(t, ok)
	return h.ID
}

func TestScan_PressWhileStoppedStartsAtFirst(t *testing.T) {
	f := newScanFixture(t, DefaultScanConfig().WithInterval(time.Second), "a", "b", "c")

	f.clock.Advance(2500 * time.Millisecond)
	f.scan.Press()

	assert.Equal(t, ScanScanning, f.scan.State())
	assert.Equal(t, "a", highlighted(t, f.scan))
	assert.Empty(t, f.out.all())
	assert.Equal(t, []string{"a"}, f.presenter.highlighted)
	assert.Contains(t, f.announcer.Messages(), "Scanning 3 items")
}

func TestScan_PressWhileScanningActivates(t *testing.T) {
	f := newScanFixture(t, DefaultScanConfig().WithInterval(time.Second), "a", "b", "c")

	f.scan.Press()
	f.clock.Advance(1100 * time.Millisecond)
	require.Equal(t, "b", highlighted(t, f.scan))
	f.scan.Press()

	got := f.out.all()
	require.Len(t, got, 1)
	assert.Equal(t, events.ActionSelect, got[0].Action)
	assert.Equal(t, "b", got[0].Target.ID)
	assert.Equal(t, 1.0, got[0].Accuracy)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, 1100*time.Millisecond, got[0].ResponseTime)
	assert.Equal(t, ScanStopped, f.scan.State())
	assert.Zero(t, f.clock.Pending())
}

func TestScan_PingPong(t *testing.T) {
	f := newScanFixture(t, DefaultScanConfig().WithInterval(time.Second), "a", "b", "c")

	f.scan.Press()
	var seen []string
	seen = append(seen, highlighted(t, f.scan))
	for i := 0; i < 6; i++ {
		f.clock.Advance(time.Second)
		seen = append(seen, highlighted(t, f.scan))
	}

	assert.Equal(t, []string{"a", "b", "c", "b", "a", "b", "c"}, seen)
}

func TestScan_WrapWithoutReverse(t *testing.T) {
	f := newScanFixture(t, DefaultScanConfig().WithInterval(time.Second).WithReverse(false), "a", "b", "c")

	f.scan.Press()
	var seen []string
	for i := 0; i < 4; i++ {
		f.clock.Advance(time.Second)
		seen = append(seen, highlighted(t, f.scan))
	}

	assert.Equal(t, []string{"b", "c", "a", "b"}, seen)
}

func TestScan_PingPongVisitsEveryCandidate(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 10} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			ids := make([]string, n)
			for i := range ids {
				ids[i] = fmt.Sprintf("t%d", i)
			}
			f := newScanFixture(t, DefaultScanConfig().WithInterval(time.Second), ids...)

			f.scan.Press()
			// one forward and one backward traversal
			f.clock.Advance(time.Duration(2*(n-1)) * time.Second)

			visits := f.scan.Visits()
			for _, id := range ids {
				assert.GreaterOrEqual(t, visits[id], 1, "starved %s", id)
			}
			idx, _ := f.scan.Index()
			assert.Equal(t, 0, idx)
		})
	}
}

func TestScan_LongPressReverses(t *testing.T) {
	f := newScanFixture(t, DefaultScanConfig().WithInterval(time.Second), "a", "b", "c", "d")

	f.scan.Press()
	f.clock.Advance(2 * time.Second) // at c
	f.scan.Reverse()
	f.clock.Advance(time.Second)

	assert.Equal(t, "b", highlighted(t, f.scan))
}

func TestScan_GroupsLargeSets(t *testing.T) {
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%d", i)
	}
	f := newScanFixture(t, DefaultScanConfig().WithInterval(time.Second), ids...)

	f.scan.Press()
	assert.Equal(t, ScanGroups, f.scan.State())
	assert.Contains(t, f.announcer.Messages(), "Scanning 3 groups")

	f.clock.Advance(time.Second) // second group: t4..t7
	f.scan.Press()
	assert.Equal(t, ScanItems, f.scan.State())
	assert.Equal(t, "t4", highlighted(t, f.scan))
	assert.Empty(t, f.out.all())

	// item scanning stays inside the group
	for i := 0; i < 8; i++ {
		f.clock.Advance(time.Second)
		h := highlighted(t, f.scan)
		assert.Contains(t, []string{"t4", "t5", "t6", "t7"}, h)
	}

	f.scan.Press()
	got := f.out.all()
	require.Len(t, got, 1)
	assert.Contains(t, []string{"t4", "t5", "t6", "t7"}, got[0].Target.ID)
	assert.Equal(t, ScanStopped, f.scan.State())
}

func TestScan_CancelClearsEverything(t *testing.T) {
	f := newScanFixture(t, DefaultScanConfig(), "a", "b")

	f.scan.Press()
	f.scan.Cancel()

	assert.Equal(t, ScanStopped, f.scan.State())
	assert.Zero(t, f.clock.Pending())
	assert.Equal(t, 1, f.presenter.cleared)
	_, ok := f.scan.Highlighted()
	assert.False(t, ok)

	f.clock.Advance(time.Minute)
	assert.Empty(t, f.out.all())
}

func TestScan_AutoRescan(t *testing.T) {
	cfg := DefaultScanConfig().WithInterval(time.Second).WithAutoRescan(true, 500*time.Millisecond)
	f := newScanFixture(t, cfg, "a", "b")

	f.scan.Press()
	f.scan.Press()
	require.Len(t, f.out.all(), 1)
	assert.Equal(t, ScanStopped, f.scan.State())

	f.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, ScanScanning, f.scan.State())
	assert.Equal(t, "a", highlighted(t, f.scan))
}

func TestScan_CancelStopsPendingRescan(t *testing.T) {
	cfg := DefaultScanConfig().WithAutoRescan(true, 500*time.Millisecond)
	f := newScanFixture(t, cfg, "a", "b")

	f.scan.Press()
	f.scan.Press()
	f.scan.Cancel()
	f.clock.Advance(time.Second)

	assert.Equal(t, ScanStopped, f.scan.State())
}

func TestScan_EmptySetSuppressesActivation(t *testing.T) {
	f := newScanFixture(t, DefaultScanConfig().WithInterval(time.Second), "a", "b", "c")

	f.scan.Press()
	f.surface.setList(nil)
	f.scan.TargetsChanged()
	f.clock.Advance(3 * time.Second)
	f.scan.Press()

	assert.Empty(t, f.out.all())
	assert.Equal(t, ScanScanning, f.scan.State())

	f.surface.setList(targets("x", "y"))
	f.scan.TargetsChanged()
	f.scan.Press()
	got := f.out.all()
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Target.ID)
}

func TestScan_NothingToScan(t *testing.T) {
	f := newScanFixture(t, DefaultScanConfig())

	f.scan.Press()

	assert.Equal(t, ScanStopped, f.scan.State())
	assert.Equal(t, []string{"Nothing to scan"}, f.announcer.Messages())
}

func TestScan_BreathSelectIsGated(t *testing.T) {
	clock := schedule.NewManual(t0)
	out := &collector{}
	s := NewScan(modality.Breath, DefaultScanConfig(), clock, &fakeSurface{list: targets("a")}, fakeGate{}, nil, out.sink)

	s.Press()
	s.Press()

	got := out.all()
	require.Len(t, got, 1)
	assert.Equal(t, events.ActionMove, got[0].Action)
	assert.Equal(t, 0.5, got[0].Confidence)
}

func TestGroup(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{1, []int{1}},
		{11, []int{4, 4, 3}},
		{16, []int{4, 4, 4, 4}},
		{17, []int{5, 5, 5, 2}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			ids := make([]string, tt.n)
			for i := range ids {
				ids[i] = fmt.Sprint(i)
			}
			groups := Group(targets(ids...))
			var sizes []int
			for _, g := range groups {
				sizes = append(sizes, len(g))
			}
			assert.Equal(t, tt.want, sizes)
		})
	}
}
