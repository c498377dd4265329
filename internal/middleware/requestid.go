package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guttosm/nsepulse/internal/logger"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// maxRequestIDLen caps an incoming id so clients cannot inflate log lines.
const maxRequestIDLen = 64

// RequestID is a Gin middleware that tags every request with an identifier.
//
// Behavior:
//   - Reuses a well-formed incoming X-Request-ID so callers can correlate.
//   - Otherwise generates a new UUID (v4).
//   - Stores it under RequestIDKey and echoes it in the response header.
//   - Puts a logger tagged with the id in the request context (logger.Ctx).
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID())
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		scoped := logger.L().With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), scoped))
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
