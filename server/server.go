// Package server exposes the scoring engine over HTTP and a per-connection
// websocket session stream.
package server

import (
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	cfg "github.com/maastricht-university/interview-coach/config"
	"github.com/maastricht-university/interview-coach/orchestrator"
)

type Server struct {
	app     *fiber.App
	cfg     *cfg.Root
	pipe    *orchestrator.Pipeline
	log     logrus.FieldLogger
	metrics *Metrics
}

func New(c *cfg.Root, pipe *orchestrator.Pipeline, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		cfg:     c,
		pipe:    pipe,
		log:     log.WithField("component", "server"),
		metrics: NewMetrics(),
	}

	app := fiber.New(fiber.Config{
		AppName:               c.Pipeline.Name,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/questions", s.handleQuestions)
	api.Post("/score", s.handleScore)
	api.Get("/metrics", s.handleMetrics)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/session", websocket.New(s.handleSession))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Metrics() *Metrics { return s.metrics }

// Listen serves on the configured address until Shutdown.
func (s *Server) Listen() error {
	s.log.WithField("addr", s.cfg.Server.Addr).Info("listening")
	return s.app.Listen(s.cfg.Server.Addr)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
