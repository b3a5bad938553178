package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger. Development gets a human-readable console
// writer, everything else emits JSON for log aggregation.
func New(env string) zerolog.Logger {
	if env == "development" {
		writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(writer).With().Timestamp().Str("service", "field-service").Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "field-service").Logger()
}
