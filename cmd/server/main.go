/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the calendar engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env / environment)
  2. Initialize SQLite store
  3. Pick the month cache (Redis when REDIS_ADDR is set, in-process otherwise)
  4. Wire event hub, services, maintenance scheduler
  5. Start HTTP server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections (30s drain)
  2. Stop the maintenance scheduler
  3. Close the event hub, Redis client, database

SEE ALSO:
  - config/config.go: Configuration
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warp/calendar-engine/api"
	"github.com/warp/calendar-engine/cache"
	"github.com/warp/calendar-engine/calendar"
	"github.com/warp/calendar-engine/config"
	"github.com/warp/calendar-engine/events"
	"github.com/warp/calendar-engine/store/sqlite"
)

func main() {
	cfg := config.Load()
	log := cfg.NewLogger()

	// Store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Month cache: Redis when configured, in-process otherwise.
	var monthCache calendar.MonthCache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		monthCache = cache.NewRedis(redisClient, cfg.CacheTTL, log)
		log.WithField("addr", cfg.RedisAddr).Info("using redis month cache")
	} else {
		monthCache = cache.NewMemory(cfg.CacheTTL)
		log.Info("using in-process month cache")
	}

	// Event hub and services
	hub := events.NewHub(log)
	notifications := calendar.NewNotificationService(store, hub, log)
	service := calendar.NewService(store, monthCache, hub, notifications, log)
	sweep := &calendar.Sweep{Store: store, Cache: monthCache}

	// Maintenance jobs
	maintenance := api.NewMaintenance(store, sweep, notifications, log)
	if err := maintenance.Start(cfg.SweepSchedule, cfg.DueNotifySchedule); err != nil {
		log.WithError(err).Fatal("failed to start maintenance scheduler")
	}

	// HTTP server
	handler := api.NewHandler(service, notifications, sweep, hub, log)
	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	maintenance.Stop()
	hub.Close()
	if redisClient != nil {
		redisClient.Close()
	}

	log.Info("server stopped")
}
