// Package logging builds the application logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates the root logger. Unknown levels fall back to info; pretty
// enables the human-readable console writer for development.
func New(level string, pretty bool) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(parsed).With().Timestamp().Logger()
}
