// Package log configures the process-wide zerolog logger.
package log

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger so callers can embed it without importing zerolog directly.
type Logger struct {
	zerolog.Logger
}

// New builds a logger at the given level. When pretty is true, output is
// human-readable console format; otherwise structured JSON on stderr.
func New(level string, pretty bool) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		logger = zerolog.New(w)
	} else {
		logger = zerolog.New(os.Stderr)
	}

	logger = logger.Level(lvl).With().Timestamp().Logger()
	return Logger{logger}
}
