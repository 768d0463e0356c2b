package api

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/yearbook/pkg/journal"
)

// AccessCodeHeader carries the shared access code.
const AccessCodeHeader = "X-Yearbook-Code"

// Server is the API server in front of a journal.Service.
type Server struct {
	config  Config
	journal *journal.Service
	logger  *slog.Logger
	app     *fiber.App

	// done ends open event streams on shutdown.
	done     chan struct{}
	doneOnce sync.Once
}

// NewServer creates a new API server around svc.
func NewServer(config Config, svc *journal.Service, logger *slog.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("journal service is required")
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = DefaultKeepAlive
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             64 * 1024 * 1024,
	})

	s := &Server{
		config:  config,
		journal: svc,
		logger:  logger,
		app:     app,
		done:    make(chan struct{}),
	}

	app.Get("/ping", s.handlePing)

	app.Use(s.requireAccessCode)

	app.Get("/status", s.handleStatus)
	app.Get("/collections/:collection", s.handleQueryCollection)
	app.Delete("/collections/:collection/:id", s.handleDeleteRecord)
	app.Get("/years/:year/memories", s.handleListYear)
	app.Get("/years/:year/events", s.handleYearEvents)
	app.Post("/memories", s.handlePostMemory)
	app.Get("/media/:ref", s.handleResolveMedia)
	app.Get("/letters", s.handleListLetters)
	app.Post("/letters", s.handleWriteLetter)

	return s, nil
}

// requireAccessCode rejects requests without the configured access code.
// The code is a shared secret; it only needs to match ignoring case.
func (s *Server) requireAccessCode(c *fiber.Ctx) error {
	if s.config.AccessCode == "" {
		return c.Next()
	}

	if !strings.EqualFold(c.Get(AccessCodeHeader), s.config.AccessCode) {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid access code"})
	}

	return c.Next()
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"backing", s.journal.Backing(),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown ends open event streams and gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.doneOnce.Do(func() { close(s.done) })
	return s.app.Shutdown()
}
