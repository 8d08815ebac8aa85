// Package logging configures the zerolog logger shared by the CLI and the
// HTTP service.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	FormatJSON     = "json"
	FormatTerminal = "terminal"
)

// Setup builds a logger writing to output at the given level. The terminal
// format is colored when stdout is a TTY or when forceColor is set.
func Setup(output io.Writer, level zerolog.Level, format string, forceColor bool) zerolog.Logger {
	if format == FormatTerminal {
		useColor := forceColor || isatty.IsTerminal(os.Stdout.Fd())

		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339Nano,
			NoColor:    !useColor,
		}
	}

	z := zerolog.New(output).With().Timestamp()

	if level <= zerolog.DebugLevel {
		z = z.Caller()
	}

	return z.Logger().Level(level)
}

// ParseLevel accepts the zerolog level names, e.g. "debug" or "warn".
func ParseLevel(s string) (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}

	if lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, nil
	}

	return lvl, nil
}

// ValidFormat reports whether f names a supported output format.
func ValidFormat(f string) bool {
	return f == FormatJSON || f == FormatTerminal
}

// StdLogWriter adapts a zerolog event source to io.Writer so it can back a
// standard library *log.Logger, e.g. http.Server.ErrorLog.
type StdLogWriter struct {
	f func() *zerolog.Event
}

func NewStdLogWriter(f func() *zerolog.Event) StdLogWriter {
	return StdLogWriter{f: f}
}

func (w StdLogWriter) Write(b []byte) (int, error) {
	if w.f != nil {
		w.f().Msg(string(bytes.TrimRight(b, "\n")))
	}

	return len(b), nil
}
