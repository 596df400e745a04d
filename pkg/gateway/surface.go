package gateway

import (
	"sync"

	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/protocol"
)

// Surface is the most recent layout reported by the presentation layer.
// It implements acquisition.Surface.
type Surface struct {
	mu      sync.RWMutex
	regions []protocol.Region
}

// NewSurface returns an empty surface.
func NewSurface() *Surface {
	return &Surface{}
}

// Replace installs a new layout.
func (s *Surface) Replace(regions []protocol.Region) {
	cp := make([]protocol.Region, len(regions))
	copy(cp, regions)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = cp
}

// Regions returns a copy of the layout.
func (s *Surface) Regions() []protocol.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// ResolveTargetAt returns the topmost region containing p.
func (s *Surface) ResolveTargetAt(p modality.Point) *events.TargetRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.regions) - 1; i >= 0; i-- {
		r := s.regions[i]
		if r.Contains(p) {
			return &events.TargetRef{ID: r.ID, Interactive: r.Interactive}
		}
	}
	return nil
}

// ListEligibleTargets returns the interactive regions in reading order.
func (s *Surface) ListEligibleTargets() []events.TargetRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []events.TargetRef
	for _, r := range s.regions {
		if r.Interactive {
			out = append(out, events.TargetRef{ID: r.ID, Interactive: true})
		}
	}
	return out
}
