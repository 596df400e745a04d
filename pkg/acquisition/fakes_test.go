package acquisition

import (
	"sync"
	"time"

	"github.com/teslashibe/go-access/pkg/calibration"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/signal"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// region is a rectangular target on the fake surface.
type region struct {
	ref        events.TargetRef
	x, y, w, h float64
}

type fakeSurface struct {
	mu      sync.Mutex
	regions []region
	list    []events.TargetRef
}

func (f *fakeSurface) ResolveTargetAt(p modality.Point) *events.TargetRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	// last region is topmost
	for i := len(f.regions) - 1; i >= 0; i-- {
		r := f.regions[i]
		if p.X >= r.x && p.X < r.x+r.w && p.Y >= r.y && p.Y < r.y+r.h {
			ref := r.ref
			return &ref
		}
	}
	return nil
}

func (f *fakeSurface) ListEligibleTargets() []events.TargetRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.TargetRef(nil), f.list...)
}

func (f *fakeSurface) setList(list []events.TargetRef) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list = list
}

func targets(ids ...string) []events.TargetRef {
	out := make([]events.TargetRef, len(ids))
	for i, id := range ids {
		out[i] = events.TargetRef{ID: id, Interactive: true}
	}
	return out
}

type fakeGate map[modality.Modality]calibration.Profile

func (g fakeGate) Profile(m modality.Modality) (calibration.Profile, bool) {
	p, ok := g[m]
	return p, ok
}

type collector struct {
	mu     sync.Mutex
	events []events.InputEvent
}

func (c *collector) sink(e events.InputEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) all() []events.InputEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.InputEvent(nil), c.events...)
}

type recordingPresenter struct {
	mu          sync.Mutex
	highlighted []string
	cleared     int
}

func (r *recordingPresenter) Highlight(_ modality.Modality, t events.TargetRef, _ []events.TargetRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlighted = append(r.highlighted, t.ID)
}

func (r *recordingPresenter) ClearHighlight(modality.Modality) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *recordingPresenter) DwellProgress(modality.Modality, events.TargetRef, float64) {}

func gazeAt(x, y float64) signal.Conditioned {
	return signal.Conditioned{Modality: modality.Gaze, Values: []float64{x, y}, Window: 1}
}
