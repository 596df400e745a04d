package gateway

import (
	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/events"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/protocol"
)

// The gateway doubles as the core's presentation collaborators: every
// outbound call becomes a broadcast to connected adapters.

// Announce implements announce.Announcer.
func (g *Gateway) Announce(message string, priority announce.Priority) {
	g.broadcast(protocol.NewAnnounceMessage(message, priority))
}

// Activate implements the pipeline activator.
func (g *Gateway) Activate(target events.TargetRef) {
	g.broadcast(protocol.NewActivateMessage(target))
}

// Highlight implements acquisition.Presenter.
func (g *Gateway) Highlight(m modality.Modality, target events.TargetRef, group []events.TargetRef) {
	t := target
	g.broadcast(protocol.NewHighlightMessage(protocol.HighlightData{Modality: m, Target: &t, Group: group}))
}

// ClearHighlight implements acquisition.Presenter.
func (g *Gateway) ClearHighlight(m modality.Modality) {
	g.broadcast(protocol.NewHighlightMessage(protocol.HighlightData{Modality: m}))
}

// DwellProgress implements acquisition.Presenter.
func (g *Gateway) DwellProgress(m modality.Modality, target events.TargetRef, fraction float64) {
	t := target
	g.broadcast(protocol.NewHighlightMessage(protocol.HighlightData{Modality: m, Target: &t, Progress: fraction}))
}

// ShowTarget implements calibration.Presenter.
func (g *Gateway) ShowTarget(m modality.Modality, index, total int, target modality.Point) {
	t := target
	g.broadcast(protocol.NewCalibrationMessage(protocol.CalibrationData{
		Modality: m,
		Visible:  true,
		Index:    index,
		Total:    total,
		Target:   &t,
	}))
}

// HideTarget implements calibration.Presenter.
func (g *Gateway) HideTarget(m modality.Modality) {
	g.broadcast(protocol.NewCalibrationMessage(protocol.CalibrationData{Modality: m}))
}
