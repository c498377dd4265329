package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/nsepulse/internal/domain/dto"
	"github.com/guttosm/nsepulse/internal/logger"
	"github.com/guttosm/nsepulse/internal/source"
)

// StatusForKind maps a failure kind to the HTTP status the API answers with.
func StatusForKind(k source.Kind) int {
	switch k {
	case source.InvalidSymbol, source.InvalidParameters:
		return http.StatusBadRequest
	case source.NotFound:
		return http.StatusNotFound
	case source.AuthExpired:
		return http.StatusUnauthorized
	case source.Timeout, source.UpstreamUnavailable:
		return http.StatusServiceUnavailable
	case source.InsufficientData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

var kindMessages = map[source.Kind]string{
	source.InvalidSymbol:       "Invalid symbol",
	source.InvalidParameters:   "Invalid parameters",
	source.NotFound:            "Not found",
	source.AuthExpired:         "Upstream session expired",
	source.Timeout:             "Upstream timed out",
	source.UpstreamUnavailable: "Upstream unavailable",
	source.InsufficientData:    "Insufficient data",
}

// ErrorResponseFor builds the API error body for err. Details are only
// exposed for client errors; a 5xx never carries internal text.
func ErrorResponseFor(err error) (int, dto.ErrorResponse) {
	// raw context errors that escaped an adapter still map to Timeout/UpstreamUnavailable
	kind := source.Unknown
	if se := source.Classify("", "", err); se != nil {
		kind = se.Kind
	}
	if kind == source.UpstreamFormatError {
		kind = source.Unknown
	}
	status := StatusForKind(kind)
	msg, ok := kindMessages[kind]
	if !ok {
		msg = "Internal server error"
	}

	var detail error
	if status < http.StatusInternalServerError {
		var se *source.Error
		if errors.As(err, &se) && se.Err != nil {
			detail = se.Err
		}
	}
	resp := dto.NewErrorResponse(msg, detail)
	resp.Status = status
	resp.ErrorType = string(kind)
	if status == http.StatusInternalServerError {
		resp.ErrorType = "internal"
	}
	return status, resp
}

// ErrorHandler turns the last error a handler attached with c.Error into
// a JSON error response, unless the handler already wrote one.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	err := c.Errors.Last().Err
	status, resp := ErrorResponseFor(err)

	log := logger.Ctx(c.Request.Context())
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("path", c.Request.URL.Path).Str("kind", resp.ErrorType).
		Int("status", status).Msg("request failed")

	c.AbortWithStatusJSON(status, resp)
}

// AbortWithError writes a standardized error body with an explicit status.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	resp := dto.NewErrorResponse(message, err)
	resp.Status = status
	c.AbortWithStatusJSON(status, resp)
}
