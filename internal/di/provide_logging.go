package di

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

// ProvideLogger creates a zerolog.Logger for a CLI run at the given level,
// using console format. Each run is tagged with a fresh run_id so log lines
// from overlapping runs can be told apart.
func ProvideLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(level).
		With().
		Timestamp().
		Str("run_id", ksuid.New().String()).
		Logger()
}
