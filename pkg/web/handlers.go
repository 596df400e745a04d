package web

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-access/pkg/calibration"
	"github.com/teslashibe/go-access/pkg/hub"
	"github.com/teslashibe/go-access/pkg/modality"
	"github.com/teslashibe/go-access/pkg/pipeline"
	"github.com/teslashibe/go-access/pkg/protocol"
	"github.com/teslashibe/go-access/pkg/settings"
)

// errorHandler renders every error as {"error": "..."} with a status
// derived from the domain error.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, pipeline.ErrUnknownModality), errors.Is(err, calibration.ErrNoSession):
		code = fiber.StatusNotFound
	case errors.Is(err, modality.ErrSensorUnavailable):
		code = fiber.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrNotActive), errors.Is(err, calibration.ErrCalibrationInProgress):
		code = fiber.StatusConflict
	case errors.Is(err, calibration.ErrUnsupportedModality), errors.Is(err, settings.ErrUnknownKey):
		code = fiber.StatusBadRequest
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func modalityParam(c *fiber.Ctx) (modality.Modality, error) {
	m, err := modality.Parse(c.Params("name"))
	if err != nil {
		return "", fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return m, nil
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Status())
}

func (s *Server) handleProfiles(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Profiles())
}

func (s *Server) handlePerformance(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Performance())
}

func (s *Server) handleRecommendations(c *fiber.Ctx) error {
	return c.JSON(s.ctrl.Recommendations())
}

func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	recs := s.ctrl.Analyze()
	if recs == nil {
		return c.JSON([]any{})
	}
	return c.JSON(recs)
}

func (s *Server) handleAnnouncements(c *fiber.Ctx) error {
	return c.JSON(s.announcements.All())
}

func (s *Server) handleActivate(c *fiber.Ctx) error {
	m, err := modalityParam(c)
	if err != nil {
		return err
	}
	timeout := s.config.ActivateTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ActivateTimeout
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
	defer cancel()
	if err := s.ctrl.Activate(ctx, m); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"modality": m, "active": true})
}

func (s *Server) handleDeactivate(c *fiber.Ctx) error {
	m, err := modalityParam(c)
	if err != nil {
		return err
	}
	if err := s.ctrl.Deactivate(m); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"modality": m, "active": false})
}

func (s *Server) handleCalibrate(c *fiber.Ctx) error {
	m, err := modalityParam(c)
	if err != nil {
		return err
	}
	p, err := s.ctrl.StartCalibration(m)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(p)
}

func (s *Server) handleComplete(c *fiber.Ctx) error {
	m, err := modalityParam(c)
	if err != nil {
		return err
	}
	p, err := s.ctrl.CompleteCalibration(m)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	m, err := modalityParam(c)
	if err != nil {
		return err
	}
	s.ctrl.CancelCalibration(m)
	return c.JSON(fiber.Map{"modality": m, "cancelled": true})
}

func (s *Server) handleFatigue(c *fiber.Ctx) error {
	var req struct {
		Score *float64 `json:"score"`
	}
	if err := c.BodyParser(&req); err != nil || req.Score == nil {
		return fiber.NewError(fiber.StatusBadRequest, "score is required")
	}
	s.ctrl.SetFatigue(*req.Score)
	return c.JSON(fiber.Map{"fatigue": s.ctrl.Status().Fatigue})
}

func (s *Server) handleScene(c *fiber.Ctx) error {
	var req struct {
		Scene string `json:"scene"`
	}
	if err := c.BodyParser(&req); err != nil || req.Scene == "" {
		return fiber.NewError(fiber.StatusBadRequest, "scene is required")
	}
	s.ctrl.SetScene(req.Scene)
	return c.JSON(fiber.Map{"scene": req.Scene})
}

func (s *Server) handleReset(c *fiber.Ctx) error {
	s.ctrl.ResetSession()
	return c.JSON(fiber.Map{"status": "reset"})
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	m, err := modalityParam(c)
	if err != nil {
		return err
	}
	current, err := s.ctrl.Settings(m)
	if err != nil {
		return err
	}
	return c.JSON(current.Values())
}

// handlePutSettings applies a partial update in stored form, e.g.
// {"dwell_ms": "1500"}.
func (s *Server) handlePutSettings(c *fiber.Ctx) error {
	m, err := modalityParam(c)
	if err != nil {
		return err
	}
	var values map[string]string
	if err := c.BodyParser(&values); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	current, err := s.ctrl.Settings(m)
	if err != nil {
		return err
	}
	next, err := current.Apply(values)
	if err != nil {
		if errors.Is(err, settings.ErrUnknownKey) {
			return err
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.ctrl.Configure(m, next); err != nil {
		return err
	}
	return c.JSON(next.Values())
}

func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.eventHub, c).Run()
}

// handleAnnouncementsWS replays recent announcements before streaming.
func (s *Server) handleAnnouncementsWS(c *websocket.Conn) {
	var backlog [][]byte
	for _, a := range s.announcements.All() {
		msg, err := protocol.NewAnnounceMessage(a.Message, a.Priority)
		if err != nil {
			continue
		}
		if data, err := msg.Bytes(); err == nil {
			backlog = append(backlog, data)
		}
	}
	hub.NewClient(s.announceHub, c, backlog...).Run()
}
