// Package logging configures the zerolog logger shared by every spot component.
//
// Levels follow one rule per component: cache and scheduling decisions at
// debug, acquisitions and slot changes at info, failed iterations, 429s and
// dropped subscribers at warn, startup failures at error. Records carry the
// emitting component plus, where relevant, day, slot, status, error_class,
// failures and subscription.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as it appears in configuration.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

var levels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// Valid reports whether l names a known level, ignoring case.
func (l LogLevel) Valid() bool {
	_, ok := levels[strings.ToLower(string(l))]
	return ok
}

// zerologLevel maps l onto zerolog, falling back to info for unknown names.
func (l LogLevel) zerologLevel() zerolog.Level {
	if level, ok := levels[strings.ToLower(string(l))]; ok {
		return level
	}
	return zerolog.InfoLevel
}

// Config selects the level and output format. A nil Output writes to stderr;
// Pretty switches from JSON lines to the console writer.
type Config struct {
	Level  LogLevel
	Pretty bool
	Output io.Writer
}

// Setup installs the global logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.Level.zerologLevel())

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	return log.Logger
}

// NewLogger derives a logger tagged with component from the global one.
// Call it after Setup.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
