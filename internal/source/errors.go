// Package source holds the failure taxonomy shared by every upstream adapter
// and the tagged result type the aggregator collects.
package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies why a call to an upstream provider failed.
type Kind string

const (
	InvalidSymbol       Kind = "invalid_symbol"
	InvalidParameters   Kind = "invalid_parameters"
	NotFound            Kind = "not_found"
	AuthExpired         Kind = "auth_expired"
	Timeout             Kind = "timeout"
	UpstreamUnavailable Kind = "upstream_unavailable"
	UpstreamFormatError Kind = "upstream_format_error"
	InsufficientData    Kind = "insufficient_data"
	Unknown             Kind = "unknown"
)

// Retryable reports whether a caller may reasonably try the same call later.
func (k Kind) Retryable() bool {
	return k == Timeout || k == UpstreamUnavailable
}

// Error is the only error type that crosses an adapter boundary.
type Error struct {
	Kind   Kind
	Source string // provider name, e.g. "nse"
	Op     string // capability, e.g. "shareholding"
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Source != "" || e.Op != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Source, e.Op, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so callers can write errors.Is(err, &Error{Kind: NotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error.
func New(kind Kind, src, op string, err error) *Error {
	return &Error{Kind: kind, Source: src, Op: op, Err: err}
}

// Errorf builds an *Error with a formatted cause.
func Errorf(kind Kind, src, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Source: src, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind carried by err, Unknown for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Unknown
}

// Classify turns any error into an *Error. Errors that are already classified
// are returned unchanged; transport failures become Timeout or
// UpstreamUnavailable.
func Classify(src, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(Timeout, src, op, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return New(Timeout, src, op, err)
	}
	if errors.Is(err, context.Canceled) {
		return New(UpstreamUnavailable, src, op, err)
	}
	var oe *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &oe) || errors.As(err, &dnsErr) {
		return New(UpstreamUnavailable, src, op, err)
	}
	return New(Unknown, src, op, err)
}

// ClassifyTransport is Classify for errors returned by an HTTP round trip,
// where anything that is not a timeout means the upstream could not be reached.
func ClassifyTransport(src, op string, err error) *Error {
	e := Classify(src, op, err)
	if e != nil && e.Kind == Unknown {
		e.Kind = UpstreamUnavailable
	}
	return e
}

// FromStatus maps a non-success HTTP status code to a Kind.
func FromStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return AuthExpired
	case code == http.StatusNotFound:
		return NotFound
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return Timeout
	case code == http.StatusTooManyRequests || code >= 500:
		return UpstreamUnavailable
	default:
		return UpstreamFormatError
	}
}

// StatusError builds an *Error for an unexpected HTTP status.
func StatusError(src, op string, code int) *Error {
	return Errorf(FromStatus(code), src, op, "unexpected status %d", code)
}
