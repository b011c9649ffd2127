// Package config loads settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/renderinc/postboard/internal/posts"
)

type Config struct {
	Env      string // "local", "dev", "prod"
	LogLevel string

	// Client
	BaseURL string // Collection URL, e.g. http://localhost:3000/posts
	Timeout time.Duration

	// Development backend
	Addr    string
	DataDir string
}

// Load reads the environment, after loading .env from the working directory if one exists
func Load() (*Config, error) {
	// A missing .env is fine; variables already set win over the file.
	_ = godotenv.Load()

	timeout, err := time.ParseDuration(getEnv("POSTBOARD_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("parse POSTBOARD_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("POSTBOARD_TIMEOUT must be positive, got %v", timeout)
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "local"),
		LogLevel: getEnv("LOG_LEVEL", ""),
		BaseURL:  getEnv("POSTBOARD_URL", posts.DefaultBaseURL),
		Timeout:  timeout,
		Addr:     getEnv("POSTBOARD_ADDR", "localhost:3000"),
		DataDir:  getEnv("POSTBOARD_DATA_DIR", "./data"),
	}

	return cfg, nil
}

// DBPath is the sqlite database inside DataDir
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "posts.db")
}

// IndexPath is the bleve index inside DataDir
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataDir, "posts.bleve")
}

// Logger builds a text logger for local runs and a JSON logger otherwise.
// LOG_LEVEL overrides the level (debug, info, warn, error).
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if c.Env == "local" {
		opts.Level = slog.LevelDebug
	}
	if c.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err == nil {
			opts.Level = level
		}
	}

	var handler slog.Handler
	if c.Env == "local" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
