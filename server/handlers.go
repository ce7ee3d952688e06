package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/maastricht-university/interview-coach/geometry"
	"github.com/maastricht-university/interview-coach/orchestrator"
)

const judgeCheckTimeout = 2 * time.Second

// handleHealth reports liveness and whether the content judge answers.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), judgeCheckTimeout)
	defer cancel()
	return c.JSON(fiber.Map{
		"status":         "ok",
		"name":           s.cfg.Pipeline.Name,
		"version":        s.cfg.Pipeline.Version,
		"judgeAvailable": s.pipe.JudgeAvailable(ctx),
	})
}

func (s *Server) handleQuestions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"questions": s.cfg.Session.Questions})
}

// ScoreRequest scores a single frame, optionally against a previous one.
type ScoreRequest struct {
	Landmarks  [][]float64 `json:"landmarks"`
	Previous   [][]float64 `json:"previous,omitempty"`
	Confidence *float64    `json:"confidence,omitempty"`
}

func (s *Server) handleScore(c *fiber.Ctx) error {
	var req ScoreRequest
	if err := c.BodyParser(&req); err != nil {
		s.metrics.IncrementErrors()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
	}
	if len(req.Landmarks) == 0 {
		s.metrics.IncrementErrors()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "landmarks required"})
	}
	conf := s.cfg.Session.Confidence
	if req.Confidence != nil {
		conf = *req.Confidence
	}

	var prev geometry.Frame
	if len(req.Previous) > 0 {
		prev = geometry.FromTriples(req.Previous)
	}
	s.metrics.IncrementScored()
	return c.JSON(orchestrator.ScoreFrame(geometry.FromTriples(req.Landmarks), prev, conf))
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	return c.JSON(s.metrics.Snapshot())
}
