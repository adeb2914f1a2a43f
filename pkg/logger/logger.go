package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Development gets a console writer unless
// format is explicitly "json".
func New(env, level, format string) zerolog.Logger {
	return NewWithWriter(os.Stdout, env, level, format)
}

func NewWithWriter(w io.Writer, env, level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	out := w
	if strings.EqualFold(format, "console") || (env == "development" && !strings.EqualFold(format, "json")) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(out).With().Timestamp().Str("service", "feedback-hub").Logger()

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
		if env == "development" {
			lvl = zerolog.DebugLevel
		}
	}
	return l.Level(lvl)
}
