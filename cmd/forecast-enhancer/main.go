package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/forecast-enhancer/internal/api/http"
	"github.com/i474232898/forecast-enhancer/internal/config"
	"github.com/i474232898/forecast-enhancer/internal/forecast"
	"github.com/i474232898/forecast-enhancer/internal/logger"
	"github.com/i474232898/forecast-enhancer/internal/orchestrator"
	"github.com/i474232898/forecast-enhancer/internal/scheduler"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Options{Format: "console"})
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "forecast-enhancer",
	})
	if cfg.EnvFile != "" {
		log.Info().Str("file", cfg.EnvFile).Msg("loaded environment file")
	}

	// Shared HTTP client for outbound provider and geo calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	storage, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer closeStore()

	provider := newProvider(cfg, httpClient)
	opts := []forecast.Option{
		forecast.WithProvider(provider),
		forecast.WithLogger(logger.Named(log, "forecast")),
	}
	if cfg.GeoEnabled {
		locator, err := newLocator(cfg, httpClient)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure device locator")
		}
		opts = append(opts, forecast.WithLocator(locator))
	}

	// Scheduler for periodic geo refresh.
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	setup := baseSetup(cfg)
	orch, err := orchestrator.New(forecast.New(cfg.APIKey, cfg.Pro, opts...), orchestrator.Options[*forecast.Client]{
		Props: orchestrator.Props[*forecast.Client]{
			Fields:      cfg.Fields,
			Granularity: cfg.Granularity,
			Setup:       setup,
		},
		Geo:               cfg.GeoEnabled,
		GeoRefreshMinutes: cfg.GeoRefreshMinutes,
		Storage:           storage,
		Expire:            cfg.StoreExpire,
		Scheduler:         sched,
		Logger:            log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create orchestrator")
	}
	orch.Subscribe(func(s orchestrator.State) {
		log.Debug().Stringer("phase", s.Phase).Bool("geo_loading", s.GeoLoading).Msg("state changed")
	})

	log.Info().
		Str("provider", provider.Name()).
		Str("store", cfg.StoreBackend).
		Stringer("expire", cfg.StoreExpire).
		Bool("geo", cfg.GeoEnabled).
		Msg("starting forecast orchestrator")

	go func() {
		if err := orch.Activate(context.Background()); err != nil {
			log.Error().Err(err).Msg("activation failed")
		}
	}()
	defer orch.Deactivate()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "forecast-enhancer",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * cfg.HTTPTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "forecast-enhancer",
			"phase":   orch.Snapshot().Phase.String(),
		})
	})

	httpapi.RegisterRoutes(app, orch, setup, log)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
