// Package logging provides the server's structured logger.
//
// New returns a Logger value that cmd/chatty-server threads through
// the dispatcher and engine explicitly, rather than a process-wide
// singleton.
package logging

import (
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the logger's output encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

// Options configures New.
type Options struct {
	Level  string // "debug", "info", "warn", "error"
	Format Format
}

// New builds a zerolog.Logger tagged with the chatty-server service
// name, timestamp, and caller location.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if opts.Format == FormatPretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Caller().
		Str("service", "chatty-server").
		Logger()
}

// Error logs err with msg and optional structured fields.
func Error(logger zerolog.Logger, err error, msg string, fields map[string]any) {
	event := logger.Error().Err(err)
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// Panic logs a recovered panic value with a stack trace and optional
// structured fields. It does not recover the panic itself; the caller
// passes in the value it got from recover().
func Panic(logger zerolog.Logger, recovered any, msg string, fields map[string]any) {
	event := logger.Error().
		Interface("panic_value", recovered).
		Str("stack", string(debug.Stack()))
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}
