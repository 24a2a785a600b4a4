package cliconfig

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Logger returns the CLI logger.
func Logger() zerolog.Logger {
	return logger
}

// LoggerWithLevel returns the CLI logger filtered at level ("debug", "info", ...).
func LoggerWithLevel(level string) (zerolog.Logger, error) {
	if level == "" {
		return logger, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return logger, err
	}
	return logger.Level(lvl), nil
}
