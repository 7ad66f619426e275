package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/soeholm/vandstand/internal/api/http"
	"github.com/soeholm/vandstand/internal/cache"
	"github.com/soeholm/vandstand/internal/config"
	"github.com/soeholm/vandstand/internal/logging"
	"github.com/soeholm/vandstand/internal/observability"
	"github.com/soeholm/vandstand/internal/scheduler"
	"github.com/soeholm/vandstand/internal/tide"
	"github.com/soeholm/vandstand/internal/waterlevel"
	"github.com/soeholm/vandstand/internal/waterlevel/sources"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.AppEnv, cfg.LogLevel)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Shared HTTP client for outbound source calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// Sources in trust-priority order: the harbor gauge beats both DMI paths.
	srcs := []waterlevel.Source{
		sources.NewHarbor(httpClient, cfg.Bounds),
		sources.NewDMIWeb(httpClient, cfg.Bounds),
		sources.NewDMIOcean(httpClient, cfg.Bounds),
	}

	model := tide.NewModel(cfg.Tide)
	fuser := waterlevel.NewFuser(model)
	store := cache.NewTTLStore(cfg.CacheTTL, clock)
	service := waterlevel.NewService(srcs, fuser, store, clock, log, metrics, cfg.FetchTimeout)

	sched := scheduler.New(service, cfg.PrefetchInterval, cfg.FetchTimeout, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "vandstand",
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler(service),
	})

	app.Use(cors.New())
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Static("/", cfg.StaticDir)

	httpapi.RegisterRoutes(app, service)

	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}
