// Package middleware provides ambient HTTP middleware for the resolver
// daemon's gin router: request IDs, structured request logging, timeouts,
// size limits and compression.
//
// StructuredLogger logs one structured line per request: request id,
// method, path, status, duration, client IP, user agent, and any gin
// errors attached during the handler chain.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playdar/resolverd/internal/playdarlog"
)

// StructuredLoggerConfig allows customization of structured logging.
type StructuredLoggerConfig struct {
	// SkipPaths is a list of paths to skip logging (e.g., health checks).
	SkipPaths []string

	// LogQuery if false, skips logging query parameters (for privacy).
	LogQuery bool

	// LogUserAgent if false, skips logging user agent.
	LogUserAgent bool
}

// DefaultStructuredLoggerConfig returns the default configuration.
func DefaultStructuredLoggerConfig() StructuredLoggerConfig {
	return StructuredLoggerConfig{
		LogQuery:     true,
		LogUserAgent: true,
	}
}

// StructuredLogger logs every request with DefaultStructuredLoggerConfig.
func StructuredLogger() gin.HandlerFunc {
	return StructuredLoggerWithConfig(DefaultStructuredLoggerConfig())
}

// StructuredLoggerWithConfig builds a structured logging middleware from
// config.
func StructuredLoggerWithConfig(config StructuredLoggerConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if skip[path] {
			c.Next()
			return
		}

		start := time.Now()
		raw := c.Request.URL.RawQuery

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		event := playdarlog.HTTP().Info()
		if status >= 500 {
			event = playdarlog.HTTP().Error()
		} else if status >= 400 {
			event = playdarlog.HTTP().Warn()
		}

		event = event.
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP())

		if config.LogQuery && raw != "" {
			event = event.Str("query", raw)
		}
		if config.LogUserAgent {
			event = event.Str("user_agent", c.Request.UserAgent())
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.Msg("http request")
	}
}
