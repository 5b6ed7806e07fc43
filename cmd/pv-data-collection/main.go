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

	httpapi "github.com/heejin-dev/pv-data-collection/internal/api/http"
	"github.com/heejin-dev/pv-data-collection/internal/collect"
	"github.com/heejin-dev/pv-data-collection/internal/config"
	"github.com/heejin-dev/pv-data-collection/internal/notify"
	"github.com/heejin-dev/pv-data-collection/internal/pipeline"
	"github.com/heejin-dev/pv-data-collection/internal/scheduler"
	"github.com/heejin-dev/pv-data-collection/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound portal calls. Each run layers
	// its own cookie jar on top of it.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Filesystem store for raw artifacts and the master table.
	fileStore, err := store.NewFileStore(cfg.OutputDir, cfg.MasterPath, cfg.MaxArtifacts)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	notifier := notify.NewSlackNotifier(cfg.SlackWebhookURL, nil)

	defaults := collect.Filters{
		PageIndex: cfg.PageIndex,
		OrgNo:     cfg.OrgNo,
		HokiS:     cfg.HokiS,
		HokiE:     cfg.HokiE,
	}

	// Core service orchestrating fetching, classification and merging.
	// One fresh portal session per run.
	service := pipeline.NewService(fileStore, notifier, func() (pipeline.Fetcher, error) {
		return collect.NewFetcher(collect.Config{
			BaseURL: cfg.BaseURL,
			MenuCd:  cfg.MenuCd,
			Pacing:  cfg.Pacing,
		}, httpClient)
	})

	// Daily collection of yesterday's data.
	sched := scheduler.New(service, defaults, cfg.ScheduleAt, cfg.RunRetries, cfg.RetryDelay)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "pv-data-collection",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
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
			"status":  "ok",
			"service": "pv-data-collection",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, defaults)

	// Start server with graceful shutdown
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
