package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/teslashibe/go-access/pkg/modality"
)

// SensorProbe checks whether a modality's sensor can be used.
type SensorProbe interface {
	Probe(ctx context.Context, m modality.Modality) error
}

// ProbeFunc adapts a function to SensorProbe.
type ProbeFunc func(ctx context.Context, m modality.Modality) error

// Probe calls f.
func (f ProbeFunc) Probe(ctx context.Context, m modality.Modality) error {
	return f(ctx, m)
}

type permission struct {
	granted bool
	reason  string
}

// Permissions records permission results reported by sensor adapters.
// Modalities backed by a camera, microphone, or motion sensor need a granted
// result; discrete inputs are available unless explicitly denied.
type Permissions struct {
	mu      sync.Mutex
	results map[modality.Modality]permission
	changed chan struct{}
}

// NewPermissions creates an empty permission set.
func NewPermissions() *Permissions {
	return &Permissions{
		results: make(map[modality.Modality]permission),
		changed: make(chan struct{}),
	}
}

// Set records a permission result and wakes pending probes.
func (p *Permissions) Set(m modality.Modality, granted bool, reason string) {
	p.mu.Lock()
	p.results[m] = permission{granted: granted, reason: reason}
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
}

// Forget drops m's result.
func (p *Permissions) Forget(m modality.Modality) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.results, m)
}

// Granted reports m's recorded result.
func (p *Permissions) Granted(m modality.Modality) (granted, known bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.results[m]
	return r.granted, ok
}

// Probe returns nil when m may be used. For sensor-backed modalities without
// a result it waits for one until ctx is done.
func (p *Permissions) Probe(ctx context.Context, m modality.Modality) error {
	for {
		p.mu.Lock()
		r, ok := p.results[m]
		wait := p.changed
		p.mu.Unlock()

		switch {
		case ok && r.granted:
			return nil
		case ok:
			if r.reason != "" {
				return fmt.Errorf("%w: %s", ErrPermissionDenied, r.reason)
			}
			return ErrPermissionDenied
		case !needsPermission(m):
			return nil
		}

		select {
		case <-wait:
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrNoPermissionResult, ctx.Err())
		}
	}
}

func needsPermission(m modality.Modality) bool {
	switch m {
	case modality.Gaze, modality.Breath, modality.Voice, modality.Orientation:
		return true
	}
	return false
}
