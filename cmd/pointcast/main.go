package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/yemble/pointcast/internal/api/http"
	"github.com/yemble/pointcast/internal/config"
	"github.com/yemble/pointcast/internal/fetchcache"
	"github.com/yemble/pointcast/internal/forecast"
	"github.com/yemble/pointcast/internal/forecast/providers"
	"github.com/yemble/pointcast/internal/geo"
	"github.com/yemble/pointcast/internal/scheduler"
	"github.com/yemble/pointcast/internal/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Response cache, created once and alive for the whole session.
	cache := fetchcache.New()

	// Provider variant is chosen once here, not re-checked per call.
	var provider forecast.Provider
	switch cfg.Provider {
	case "nws":
		provider = providers.NewNWSProvider(httpClient, cache, cfg.NWSBaseURL)
	case "openmeteo":
		provider = providers.NewOpenMeteoProvider(httpClient, cache, cfg.OpenMeteoBaseURL, cfg.TimezoneLookupURL)
	default:
		log.Fatalf("%v: %q", forecast.ErrUnknownProvider, cfg.Provider)
	}

	// Persisted settings, falling back to configured defaults.
	store := settings.NewStore(cfg.SettingsPath)
	st, err := store.Load(cfg.DefaultSettings)
	if err != nil {
		log.Printf("INFO: using default settings: %v", err)
		st = cfg.DefaultSettings
	}

	var namer forecast.LocationNamer
	if n := geo.NewNamer(cfg.GeocoderAPIKey); n != nil {
		namer = n
	}

	controller := forecast.NewController(provider, store, namer, st)

	// Warm the landing view with the home location.
	controller.SetLocation(st.DefaultLocation)

	// Background refresh of the current location.
	sched := scheduler.New(controller, cfg.RefreshInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "pointcast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
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
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "pointcast",
			"provider": provider.Name(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, controller)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
