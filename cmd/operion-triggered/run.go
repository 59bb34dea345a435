package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/host"
	"github.com/dukex/operion-triggered/pkg/log"
	"github.com/dukex/operion-triggered/pkg/management"
	"github.com/dukex/operion-triggered/pkg/metrics"
	"github.com/dukex/operion-triggered/pkg/otelhelper"
)

const shutdownTimeout = 30 * time.Second

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start every configured channel and serve the management endpoint",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "management-addr",
				Usage:   "Listen address of the management server, overrides the configuration",
				Sources: cli.EnvVars("MANAGEMENT_ADDR"),
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Listen address of the Prometheus endpoint, overrides the configuration",
				Sources: cli.EnvVars("METRICS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Cycle history location, overrides the configuration",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export cycle traces over OTLP/HTTP",
				Sources: cli.EnvVars("OPERION_TRACING"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := config.Load(command.String("config"))
			if err != nil {
				return err
			}

			level := command.String("log-level")
			if !command.IsSet("log-level") && cfg.LogLevel != "" {
				level = cfg.LogLevel
			}

			log.Setup(level)
			logger := log.WithModule("operion-triggered")

			if addr := command.String("management-addr"); addr != "" {
				cfg.Management.Addr = addr
			}

			if addr := command.String("metrics-addr"); addr != "" {
				cfg.Metrics.Addr = addr
			}

			if url := command.String("database-url"); url != "" {
				cfg.Persistence.URL = url
			}

			if command.Bool("tracing") {
				cfg.Tracing.Enabled = true
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, logger)
		},
	}
}

func run(ctx context.Context, cfg *config.File, logger *slog.Logger) error {
	logger.InfoContext(ctx, "Initializing Operion Triggered", "channels", len(cfg.Channels))

	tracer, shutdownTracer, err := setupTracer(ctx, cfg.Tracing)
	if err != nil {
		return err
	}

	defer func() {
		if err := shutdownTracer(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to shut down tracer", "error", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	h, err := host.New(ctx, cfg, host.Options{
		Logger:  logger,
		Metrics: metrics.NewPrometheusSink(promRegistry, logger),
		Tracer:  tracer,
	})
	if err != nil {
		return err
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := h.Close(closeCtx); err != nil {
			logger.ErrorContext(ctx, "Failed to close channels", "error", err)
		}
	}()

	if err := h.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialise channels: %w", err)
	}

	if err := h.Start(ctx); err != nil {
		return fmt.Errorf("failed to start channels: %w", err)
	}

	errCh := make(chan error, 2)

	server := newManagementServer(h, logger)
	if cfg.Management.Addr != "" {
		go func() {
			errCh <- server.Listen(cfg.Management.Addr)
		}()
	}

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{Registry: promRegistry}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.Metrics.Addr != "" {
		go func() {
			logger.InfoContext(ctx, "Serving metrics", "addr", cfg.Metrics.Addr)

			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.InfoContext(ctx, "Shutdown signal received")
	case err = <-errCh:
		logger.ErrorContext(ctx, "Server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if cfg.Management.Addr != "" {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(ctx, "Failed to shut down management server", "error", err)
		}
	}

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "Failed to shut down metrics server", "error", err)
	}

	return err
}

// newManagementServer exposes the management registry plus the channel
// statuses of h.
func newManagementServer(h *host.Host, logger *slog.Logger) *management.Server {
	server := management.NewServer(h.Management(), logger)

	server.App().Get("/channels", func(c fiber.Ctx) error {
		return c.JSON(h.Statuses())
	})

	return server
}

func setupTracer(ctx context.Context, cfg config.Tracing) (trace.Tracer, otelhelper.ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	if !cfg.Enabled {
		return otelhelper.NoopTracer(), noop, nil
	}

	name := cfg.ServiceName
	if name == "" {
		name = "operion-triggered"
	}

	tracer, shutdown, err := otelhelper.NewTracer(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	return tracer, shutdown, nil
}
