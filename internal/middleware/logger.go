package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guttosm/nsepulse/internal/logger"
	"github.com/guttosm/nsepulse/internal/source"
)

// probePaths are logged at debug level so orchestrator polling stays quiet.
var probePaths = map[string]bool{"/healthz": true, "/readyz": true}

// RequestLogger is a Gin middleware that writes one line per request with
// the request-scoped logger set up by RequestID.
//
// Fields: method, route (the matched pattern, or the raw path when no route
// matched), symbol when the route has one, status, latency_ms, bytes,
// client_ip and, for failed requests, error_kind.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID(), middleware.RequestLogger())
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		log := logger.Ctx(c.Request.Context())
		ev := eventFor(log, status, probePaths[route])
		ev = ev.Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Int("bytes", c.Writer.Size()).
			Str("client_ip", c.ClientIP())
		if sym := c.Param("symbol"); sym != "" {
			ev = ev.Str("symbol", sym)
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("error_kind", string(source.KindOf(c.Errors.Last().Err)))
		}
		ev.Msg("http_request")
	}
}

func eventFor(log *zerolog.Logger, status int, probe bool) *zerolog.Event {
	switch {
	case status >= 500:
		return log.Error()
	case status >= 400:
		return log.Warn()
	case probe:
		return log.Debug()
	default:
		return log.Info()
	}
}
