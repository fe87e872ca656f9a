package rest

import (
	"context"
	"errors"
	"log/slog"

	"supportdesk/app/config"
	"supportdesk/app/service/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/samber/do"
)

const sessionHeader = "X-Session-ID"

type Sessions interface {
	ProcessTurn(ctx context.Context, req session.Request) session.Response
	ResetSession(sessionID string)
}

type Server struct {
	cfg *config.Config
	app *fiber.App
}

func New(di *do.Injector) (*Server, error) {
	return &Server{
		cfg: do.MustInvoke[*config.Config](di),
		app: NewApp(do.MustInvoke[*session.Service](di)),
	}, nil
}

// NewApp builds the fiber app serving the support endpoints.
func NewApp(sessions Sessions) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())

	h := &handler{
		sessions: sessions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	app.Get("/health", h.health)
	app.Post("/support", h.support)
	app.Post("/reset", h.reset)

	return app
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		if err := s.app.Shutdown(); err != nil {
			slog.Error("Failed to shut down http server", "error", err)
		}
	}()

	slog.Info("HTTP server listening", "addr", s.cfg.Server.Listen)

	return s.app.Listen(s.cfg.Server.Listen)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	if code == fiber.StatusInternalServerError {
		slog.Error("Request failed", "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}
