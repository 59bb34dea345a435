package management

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/moogar0880/problems"
)

// InvocationResult is returned for a successful invocation.
type InvocationResult struct {
	Name      string `json:"name"`
	Operation string `json:"operation"`
	Status    string `json:"status"`
}

// Server exposes a Registry over HTTP.
type Server struct {
	registry *Registry
	logger   *slog.Logger
	app      *fiber.App
}

func NewServer(registry *Registry, log *slog.Logger) *Server {
	s := &Server{
		registry: registry,
		logger:   log.With("module", "management_server"),
	}

	s.app = s.newApp()

	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New()
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Operion Triggered Management")
	})

	m := app.Group("/management")
	m.Get("/", s.listInstances)
	m.Get("/:name", s.getInstance)
	m.Post("/:name/:operation", s.invoke)

	return app
}

// Listen blocks serving on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("Starting management server", "addr", addr)

	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) listInstances(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"instances": s.registry.Instances(),
	})
}

func (s *Server) getInstance(c fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return badRequest(c, "Invalid instance name: "+err.Error())
	}

	instance, err := s.registry.Instance(name)
	if err != nil {
		return handleInvokeError(c, err)
	}

	return c.JSON(instance)
}

func (s *Server) invoke(c fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return badRequest(c, "Invalid instance name: "+err.Error())
	}

	operation := c.Params("operation")

	err = s.registry.Invoke(c.Context(), name, operation)
	if err != nil {
		s.logger.Warn("Management invocation failed", "name", name, "operation", operation, "error", err)

		return handleInvokeError(c, err)
	}

	return c.JSON(InvocationResult{Name: name, Operation: operation, Status: "completed"})
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func handleInvokeError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInstanceNotFound):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType(ProblemInstanceNotFound).
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case errors.Is(err, ErrOperationNotFound):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType(ProblemOperationNotFound).
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType(ProblemInvocationFailed).
			WithDetail(err.Error())

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}

// Problem types returned by the server.
const (
	ProblemInstanceNotFound  = "instance_not_found"
	ProblemOperationNotFound = "operation_not_found"
	ProblemInvocationFailed  = "invocation_failed"
)
