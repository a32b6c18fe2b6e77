package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartaccounts/bridge-relay/bridgeClient/config"
)

// New creates a new zerolog logger writing to stderr, leaving stdout to the
// step reports printed by the CLI.
func New(logLevel int, logFormat string, logSampler bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, logLevel, logFormat, logSampler)
}

// NewWithWriter is New with an explicit destination.
// Supports console/json format, level filtering, and optional sampling.
func NewWithWriter(out io.Writer, logLevel int, logFormat string, logSampler bool) zerolog.Logger {
	writer := out
	if logFormat != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(writer).
		Level(zerolog.Level(logLevel)).
		With().
		Timestamp().
		Logger()

	if logSampler {
		logger = logger.Sample(&zerolog.BasicSampler{N: 5})
	}
	return logger
}

// Init builds the process logger from configuration.
func Init(cfg config.Config) zerolog.Logger {
	return New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)
}
