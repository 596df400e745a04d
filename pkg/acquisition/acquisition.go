// Package acquisition turns conditioned signals and discrete stimuli into
// activation decisions. Dwell serves continuous pointing, Scan serves
// single-switch style input. Both emit events.InputEvent through a Sink.
package acquisition

import (
	"github.com/teslashibe/go-access/pkg/calibration"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
)

// Surface is the presentation layer's hit-testing collaborator.
type Surface interface {
	// ResolveTargetAt returns the topmost target at p, or nil.
	ResolveTargetAt(p modality.Point) *events.TargetRef

	// ListEligibleTargets returns the interactive targets in scan order.
	ListEligibleTargets() []events.TargetRef
}

// Presenter receives highlight and progress feedback. Optional.
type Presenter interface {
	Highlight(m modality.Modality, target events.TargetRef, group []events.TargetRef)
	ClearHighlight(m modality.Modality)
	DwellProgress(m modality.Modality, target events.TargetRef, fraction float64)
}

// Gate provides calibration profiles.
type Gate interface {
	Profile(m modality.Modality) (calibration.Profile, bool)
}

// Sink receives emitted events. Machines call it without holding locks.
type Sink func(events.InputEvent)

// gateSelect downgrades a select from a modality that requires calibration
// but is not calibrated: it becomes a move towards the same target at half
// confidence, so it never activates anything.
func gateSelect(g Gate, e events.InputEvent) events.InputEvent {
	if e.Action != events.ActionSelect || !e.Modality.RequiresCalibration() {
		return e
	}
	if g != nil {
		if p, ok := g.Profile(e.Modality); ok && p.IsCalibrated {
			return e
		}
	}
	e.Action = events.ActionMove
	e.Confidence *= 0.5
	return e
}

// accuracyFor returns m's calibration accuracy, or the unknown default.
func accuracyFor(g Gate, m modality.Modality) float64 {
	if g == nil {
		return calibration.UnknownAccuracy
	}
	if p, ok := g.Profile(m); ok {
		return p.Accuracy
	}
	return calibration.UnknownAccuracy
}

func containsTarget(list []events.TargetRef, id string) bool {
	for _, t := range list {
		if t.ID == id {
			return true
		}
	}
	return false
}

type nopPresenter struct{}

func (nopPresenter) Highlight(modality.Modality, events.TargetRef, []events.TargetRef) {}
func (nopPresenter) ClearHighlight(modality.Modality)                                  {}
func (nopPresenter) DwellProgress(modality.Modality, events.TargetRef, float64)         {}
