// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service is added to every entry when set.
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ConfigForEnv returns the configuration for an environment name:
// development logs pretty at debug level, test at warn, anything else JSON
// at info.
func ConfigForEnv(env string) Config {
	cfg := DefaultConfig()
	switch env {
	case "development":
		cfg.Level = LevelDebug
		cfg.Pretty = true
	case "test":
		cfg.Level = LevelWarn
	}
	return cfg
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger

	return logger
}

// IsValidLevel reports whether s names a supported level.
func IsValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, TTL)
//   - Feed transitions (reset, page applied, stale page discarded)
//   - Scroll trigger firing
//
// Info: Normal operation events
//   - Server startup/shutdown
//   - Cache warm-up progress
//   - Redis connectivity
//
// Warn: Warning conditions that don't prevent operation
//   - Error budget throttling
//   - Short upstream pages
//   - Failed page loads in the feed (user can retry)
//   - Loader errors in the scroll trigger
//
// Error: Error conditions requiring attention
//   - Failed upstream requests
//   - Error budget blocks
//   - Malformed upstream payloads
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (catalog-client, translator, feed, ...)
//   - page, limit, offset: pagination window
//   - tag / filter: active category filter
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network, malformed
//   - errors_remaining: upstream error budget left
//   - key, etag, ttl: cache entry details
