// Package perr provides the resolution engine's error taxonomy: a single
// error type with a machine-readable kind, an HTTP status mapping, and an
// optional wrapped cause.
//
// Error Structure:
//   - Kind: machine-readable identifier (e.g. "NOT_FOUND")
//   - Message: human-readable message
//   - Details: optional wrapped-error context
//   - StatusCode: HTTP status to return at the bridge
//
// Usage patterns:
//
//	return perr.NotFound("qid")
//	return perr.Wrap(perr.KindPluginError, "resolve failed", err)
//	c.JSON(err.StatusCode, err.ToResponse())
package perr

import (
	"fmt"
	"net/http"
)

// Error is the resolution engine's standardized error type.
type Error struct {
	// Kind is the machine-readable error classification from §7:
	// NotFound, AlreadyExists, BadRequest, Unauthorized, StreamError,
	// PluginError, Shutdown.
	Kind string `json:"kind"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Details carries a wrapped cause, when present.
	Details string `json:"details,omitempty"`

	// StreamKind further classifies a StreamError (Connect|Truncated|Cancelled|Io).
	StreamKind string `json:"stream_kind,omitempty"`

	// StatusCode is the HTTP status code mapped from Kind.
	StatusCode int `json:"-"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Response is the JSON shape written to HTTP clients.
type Response struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Kind       string `json:"kind"`
	Details    string `json:"details,omitempty"`
	StreamKind string `json:"stream_kind,omitempty"`
}

// Error kinds used across the resolver's HTTP surface.
const (
	KindNotFound      = "NOT_FOUND"
	KindAlreadyExists = "ALREADY_EXISTS"
	KindBadRequest    = "BAD_REQUEST"
	KindUnauthorized  = "UNAUTHORIZED"
	KindStreamError   = "STREAM_ERROR"
	KindPluginError   = "PLUGIN_ERROR"
	KindShutdown      = "SHUTDOWN"
)

// StreamError sub-kinds.
const (
	StreamConnect   = "CONNECT"
	StreamTruncated = "TRUNCATED"
	StreamCancelled = "CANCELLED"
	StreamIO        = "IO"
)

// New creates an Error of the given kind.
func New(kind, message string) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: statusForKind(kind)}
}

// Wrap creates an Error of the given kind, carrying err's message as Details.
func Wrap(kind, message string, err error) *Error {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &Error{Kind: kind, Message: message, Details: details, StatusCode: statusForKind(kind)}
}

func statusForKind(kind string) int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindShutdown:
		return http.StatusServiceUnavailable
	case KindStreamError, KindPluginError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ToResponse converts an Error to its wire shape.
func (e *Error) ToResponse() Response {
	return Response{
		Error:      e.Kind,
		Message:    e.Message,
		Kind:       e.Kind,
		Details:    e.Details,
		StreamKind: e.StreamKind,
	}
}

// Convenience constructors, one per taxonomy member.

func NotFound(resource string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExists(resource string) *Error {
	return New(KindAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

func Shutdown() *Error {
	return New(KindShutdown, "daemon is shutting down")
}

func PluginErr(plugin string, err error) *Error {
	return Wrap(KindPluginError, fmt.Sprintf("plugin %s failed", plugin), err)
}

// Stream builds a StreamError of the given sub-kind.
func Stream(streamKind, message string, err error) *Error {
	e := Wrap(KindStreamError, message, err)
	e.StreamKind = streamKind
	return e
}
