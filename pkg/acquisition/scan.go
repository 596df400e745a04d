package acquisition

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/schedule"
)

// ScanState is the state of a scan machine.
type ScanState int

const (
	// ScanStopped means nothing is highlighted.
	ScanStopped ScanState = iota

	// ScanScanning means single items are highlighted in turn.
	ScanScanning

	// ScanGroups means groups of items are highlighted in turn.
	ScanGroups

	// ScanItems means items within the chosen group are highlighted in turn.
	ScanItems
)

// String returns a human-readable state name.
func (s ScanState) String() string {
	switch s {
	case ScanStopped:
		return "stopped"
	case ScanScanning:
		return "scanning"
	case ScanGroups:
		return "group_scanning"
	case ScanItems:
		return "item_scanning"
	default:
		return "unknown"
	}
}

// Scan highlights candidates in turn on a fixed interval and activates the
// highlighted one when pressed.
type Scan struct {
	mu        sync.Mutex
	modality  modality.Modality
	config    ScanConfig
	sched     schedule.Scheduler
	surface   Surface
	gate      Gate
	presenter Presenter
	announcer announce.Announcer
	sink      Sink
	logger    *slog.Logger

	state     ScanState
	items     []events.TargetRef
	groups    [][]events.TargetRef
	group     int // chosen group while in ScanItems
	index     int
	direction int
	started   time.Time
	token     *schedule.Token
	gen       uint64
	visits    map[string]int
}

// NewScan creates a scan machine for m.
func NewScan(m modality.Modality, config ScanConfig, sched schedule.Scheduler, surface Surface, gate Gate, announcer announce.Announcer, sink Sink) *Scan {
	if announcer == nil {
		announcer = announce.Nop{}
	}
	return &Scan{
		modality:  m,
		config:    config,
		sched:     sched,
		surface:   surface,
		gate:      gate,
		presenter: nopPresenter{},
		announcer: announcer,
		sink:      sink,
		logger:    log.Component("scan").With("modality", string(m)),
		direction: 1,
	}
}

// SetPresenter sets the feedback presenter.
func (s *Scan) SetPresenter(p Presenter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		p = nopPresenter{}
	}
	s.presenter = p
}

// Configure replaces the configuration. The new interval applies from the
// next tick.
func (s *Scan) Configure(config ScanConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
}

// Press handles the switch stimulus: it starts a stopped scan, descends into
// a highlighted group, or activates the highlighted item.
func (s *Scan) Press() {
	s.mu.Lock()
	switch s.state {
	case ScanStopped:
		s.mu.Unlock()
		s.start()
		return

	case ScanGroups:
		if len(s.groups) == 0 {
			s.mu.Unlock()
			return
		}
		s.group = s.index
		s.items = s.groups[s.group]
		s.state = ScanItems
		s.index = 0
		s.direction = 1
		s.scheduleLocked()
		h := s.highlightLocked()
		s.mu.Unlock()
		h()
		return
	}

	// ScanScanning or ScanItems
	if len(s.items) == 0 {
		s.mu.Unlock()
		s.logger.Debug("press suppressed, no eligible targets")
		return
	}
	tgt := s.items[s.index]
	now := s.sched.Now()
	rt := now.Sub(s.started)
	s.stopLocked()
	if s.config.AutoRescan {
		s.gen++
		gen := s.gen
		s.token = s.sched.AfterFunc(s.config.RescanDelay, func() { s.rescan(gen) })
	}
	presenter := s.presenter
	s.mu.Unlock()

	presenter.ClearHighlight(s.modality)

	e := events.New(events.ActionSelect, s.modality, now)
	e.Target = &tgt
	e.Accuracy = 1
	e.Confidence = 1
	e.ResponseTime = rt
	e = gateSelect(s.gate, e)
	s.logger.Debug("scan activated", "target", tgt.ID, "action", e.Action)
	if s.sink != nil {
		s.sink(e)
	}
}

func (s *Scan) start() {
	candidates := s.surface.ListEligibleTargets()

	s.mu.Lock()
	if s.state != ScanStopped {
		s.mu.Unlock()
		return
	}
	if len(candidates) == 0 {
		s.mu.Unlock()
		s.announcer.Announce("Nothing to scan", announce.Polite)
		return
	}

	s.started = s.sched.Now()
	s.index = 0
	s.direction = 1
	s.visits = make(map[string]int)
	var msg string
	if len(candidates) > s.config.GroupThreshold {
		s.groups = Group(candidates)
		s.items = nil
		s.state = ScanGroups
		msg = fmt.Sprintf("Scanning %d groups", len(s.groups))
	} else {
		s.groups = nil
		s.items = candidates
		s.state = ScanScanning
		msg = fmt.Sprintf("Scanning %d items", len(candidates))
	}
	s.scheduleLocked()
	h := s.highlightLocked()
	s.mu.Unlock()

	s.announcer.Announce(msg, announce.Polite)
	h()
}

func (s *Scan) rescan(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != ScanStopped {
		s.mu.Unlock()
		return
	}
	s.token = nil
	s.mu.Unlock()
	s.start()
}

// scheduleLocked arms the next tick, cancelling any pending one.
func (s *Scan) scheduleLocked() {
	s.token.Cancel()
	s.gen++
	gen := s.gen
	s.token = s.sched.AfterFunc(s.config.Interval, func() { s.tick(gen) })
}

func (s *Scan) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state == ScanStopped {
		s.mu.Unlock()
		return
	}
	n := s.lenLocked()
	if n > 0 {
		s.index, s.direction = advance(s.index, s.direction, n, s.config.Reverse)
	}
	s.scheduleLocked()
	h := func() {}
	if n > 0 {
		h = s.highlightLocked()
	}
	s.mu.Unlock()
	h()
}

// advance moves i one step. With reverse it bounces at either end,
// otherwise it wraps.
func advance(i, dir, n int, reverse bool) (int, int) {
	if n <= 1 {
		return 0, dir
	}
	if !reverse {
		return ((i+dir)%n + n) % n, dir
	}
	next := i + dir
	if next < 0 || next >= n {
		dir = -dir
		next = i + dir
	}
	return next, dir
}

func (s *Scan) lenLocked() int {
	if s.state == ScanGroups {
		return len(s.groups)
	}
	return len(s.items)
}

// highlightLocked records the visit and returns the presenter call to make
// once the lock is released.
func (s *Scan) highlightLocked() func() {
	presenter := s.presenter
	m := s.modality
	if s.state == ScanGroups {
		if s.index >= len(s.groups) || len(s.groups[s.index]) == 0 {
			return func() {}
		}
		g := append([]events.TargetRef(nil), s.groups[s.index]...)
		for _, t := range g {
			s.visits[t.ID]++
		}
		return func() { presenter.Highlight(m, g[0], g) }
	}
	if s.index >= len(s.items) {
		return func() {}
	}
	t := s.items[s.index]
	s.visits[t.ID]++
	return func() { presenter.Highlight(m, t, nil) }
}

// Reverse flips the scan direction, for long-press input.
func (s *Scan) Reverse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != ScanStopped {
		s.direction = -s.direction
	}
}

// Cancel stops the scan and clears every highlight and timer.
func (s *Scan) Cancel() {
	s.mu.Lock()
	wasRunning := s.state != ScanStopped || s.token != nil
	s.stopLocked()
	presenter := s.presenter
	s.mu.Unlock()

	if wasRunning {
		presenter.ClearHighlight(s.modality)
		s.announcer.Announce("Scan stopped", announce.Polite)
	}
}

// Stop is Cancel without the announcement, used on deactivation.
func (s *Scan) Stop() {
	s.mu.Lock()
	s.stopLocked()
	presenter := s.presenter
	s.mu.Unlock()
	presenter.ClearHighlight(s.modality)
}

func (s *Scan) stopLocked() {
	s.token.Cancel()
	s.token = nil
	s.gen++
	s.state = ScanStopped
	s.items = nil
	s.groups = nil
	s.index = 0
	s.direction = 1
}

// TargetsChanged refreshes the candidates. An empty set holds the scan in
// place and suppresses activation until a later refresh.
func (s *Scan) TargetsChanged() {
	candidates := s.surface.ListEligibleTargets()

	s.mu.Lock()
	var h func()
	switch s.state {
	case ScanStopped:
		s.mu.Unlock()
		return
	case ScanScanning:
		s.items = candidates
	case ScanGroups:
		s.groups = Group(candidates)
		if len(candidates) > 0 && len(candidates) <= s.config.GroupThreshold {
			s.groups = nil
			s.items = candidates
			s.state = ScanScanning
		}
	case ScanItems:
		kept := s.items[:0:0]
		for _, t := range s.items {
			if containsTarget(candidates, t.ID) {
				kept = append(kept, t)
			}
		}
		s.items = kept
	}
	if n := s.lenLocked(); n > 0 {
		if s.index >= n {
			s.index = n - 1
		}
		h = s.highlightLocked()
	}
	s.mu.Unlock()
	if h != nil {
		h()
	}
}

// State returns the current state.
func (s *Scan) State() ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Highlighted returns the highlighted item, or the first item of the
// highlighted group.
func (s *Scan) Highlighted() (events.TargetRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case ScanScanning, ScanItems:
		if s.index < len(s.items) {
			return s.items[s.index], true
		}
	case ScanGroups:
		if s.index < len(s.groups) && len(s.groups[s.index]) > 0 {
			return s.groups[s.index][0], true
		}
	}
	return events.TargetRef{}, false
}

// Index returns the highlighted index and direction.
func (s *Scan) Index() (index, direction int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, s.direction
}

// Visits returns how often each target was highlighted since the scan started.
func (s *Scan) Visits() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.visits))
	for k, v := range s.visits {
		out[k] = v
	}
	return out
}

// Group splits items into consecutive buckets of ceil(sqrt(N)) items.
func Group(items []events.TargetRef) [][]events.TargetRef {
	n := len(items)
	if n == 0 {
		return nil
	}
	size := int(math.Ceil(math.Sqrt(float64(n))))
	groups := make([][]events.TargetRef, 0, (n+size-1)/size)
	for i := 0; i < n; i += size {
		end := i + size
		if end > n {
			end = n
		}
		groups = append(groups, items[i:end:end])
	}
	return groups
}
