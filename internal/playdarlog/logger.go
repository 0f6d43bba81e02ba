// Package playdarlog configures the daemon's single global zerolog logger
// and exposes per-component child loggers, the way a real service carries
// one structured logging setup across every subsystem.
package playdarlog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the global logger, populated by Initialize.
var Log zerolog.Logger

// Initialize configures the global logger. pretty enables human-readable
// console output for local development; otherwise JSON with unix
// timestamps, suitable for log aggregation.
func Initialize(level string, pretty bool) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	Log = log.With().Str("service", "playdard").Logger()
	Log.Info().Str("level", logLevel.String()).Bool("pretty", pretty).Msg("logger initialized")
}

// GetLogger returns the global logger.
func GetLogger() *zerolog.Logger {
	return &Log
}

// Resolver is the child logger for ResolverPipeline/PluginAdaptor dispatch.
func Resolver() *zerolog.Logger {
	l := Log.With().Str("component", "resolver").Logger()
	return &l
}

// Registry is the child logger for QueryRegistry lifecycle (register,
// cancel, sweep, eviction).
func Registry() *zerolog.Logger {
	l := Log.With().Str("component", "registry").Logger()
	return &l
}

// Stream is the child logger for StreamingStrategy (LocalFile, RemoteFetch).
func Stream() *zerolog.Logger {
	l := Log.With().Str("component", "stream").Logger()
	return &l
}

// Comet is the child logger for CometSession push delivery.
func Comet() *zerolog.Logger {
	l := Log.With().Str("component", "comet").Logger()
	return &l
}

// HTTP is the child logger for the HTTP bridge and request handling.
func HTTP() *zerolog.Logger {
	l := Log.With().Str("component", "http").Logger()
	return &l
}

// Plugin is the child logger for plugin dispatch workers.
func Plugin() *zerolog.Logger {
	l := Log.With().Str("component", "plugin").Logger()
	return &l
}
