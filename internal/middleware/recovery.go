package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/nsepulse/internal/logger"
	"github.com/guttosm/nsepulse/internal/source"
)

// RecoveryMiddleware turns a handler panic into the standard 500 body.
// The panic value and stack go to the log only.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Ctx(c.Request.Context()).Error().
				Str("route", c.FullPath()).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			status, resp := ErrorResponseFor(source.Errorf(source.Unknown, "api", "handler", "panic"))
			c.AbortWithStatusJSON(status, resp)
		}()

		c.Next()
	}
}
