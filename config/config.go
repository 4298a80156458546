/*
Package config loads server configuration from the environment.

PURPOSE:
  One place that knows every knob the server has. A .env file is loaded
  when present (local development); real environments set variables
  directly. Missing values fall back to defaults that work for a local
  run with no Redis.

VARIABLES:
  HTTP_ADDR            Listen address (default ":8080")
  DB_PATH              SQLite database path (default "calendar.db")
  REDIS_ADDR           Redis address; empty selects the in-process cache
  REDIS_PASSWORD       Redis password (optional)
  CACHE_TTL            Month cache TTL (default "10m")
  CORS_ORIGINS         Comma-separated allowed origins
  LOG_LEVEL            logrus level (default "info")
  ENVIRONMENT          "development" or "production"
  SWEEP_SCHEDULE       Cron spec for the dedup sweep (default "0 3 * * *")
  DUE_NOTIFY_SCHEDULE  Cron spec for due-cost notifications (default "0 9 * * *")
*/
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPAddr      string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration
	CORSOrigins   []string
	LogLevel      string
	Environment   string

	SweepSchedule     string
	DueNotifySchedule string
}

// Load reads the environment, after loading .env if one exists.
func Load() Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DBPath:            getenv("DB_PATH", "calendar.db"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		CacheTTL:          getduration("CACHE_TTL", 10*time.Minute),
		CORSOrigins:       getlist("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		Environment:       getenv("ENVIRONMENT", "development"),
		SweepSchedule:     getenv("SWEEP_SCHEDULE", "0 3 * * *"),
		DueNotifySchedule: getenv("DUE_NOTIFY_SCHEDULE", "0 9 * * *"),
	}
}

// NewLogger builds the process-wide logger from the configured level.
func (c Config) NewLogger() *logrus.Logger {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if c.Environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getlist(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
