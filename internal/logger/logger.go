// Package logger owns the process-wide zerolog logger and the
// request-scoped loggers derived from it.
package logger

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "nsepulse"

var (
	mu   sync.RWMutex
	base *zerolog.Logger
)

// Init configures the global JSON logger on stdout from the environment.
//
// Environment variables (optional):
//   - LOG_LEVEL: trace|debug|info|warn|error|off (default: info)
//   - LOG_PRETTY: true|false (default: false), human readable console output
func Init() {
	pretty, _ := strconv.ParseBool(os.Getenv("LOG_PRETTY"))
	Configure(getenv("LOG_LEVEL", "info"), pretty, os.Stdout)
}

// Configure replaces the global logger. Tests pass io.Discard or a buffer.
func Configure(level string, pretty bool, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(w).Level(parseLevel(level)).With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	mu.Lock()
	base = &l
	mu.Unlock()
}

// L returns the global logger, initializing it from the environment on
// first use.
func L() *zerolog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init()
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Component returns a child logger tagged with the emitting subsystem,
// e.g. Component("nse") for the exchange adapter.
func Component(name string) zerolog.Logger {
	return L().With().Str("component", name).Logger()
}

// WithContext stores l in ctx for Ctx to find.
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// Ctx returns the logger stored in ctx, or the global one.
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return L()
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
