// Package log builds zerolog loggers and adapts them to the pion/logging
// interfaces so the DTLS layer logs through the same sink.
package log

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pion/logging"
	"github.com/rs/zerolog"
)

// New creates a logger writing to w at the given level ("trace", "debug", "info", ...).
// Console selects the human readable writer instead of JSON lines.
func New(w io.Writer, level string, console bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if strings.TrimSpace(level) != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// LoggerFactory implements logging.LoggerFactory on top of zerolog.
type LoggerFactory struct {
	Logger zerolog.Logger
}

func NewLoggerFactory(l zerolog.Logger) *LoggerFactory {
	return &LoggerFactory{Logger: l}
}

// NewLogger returns a leveled logger tagged with scope.
func (f *LoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return &leveledLogger{l: f.Logger.With().Str("scope", scope).Logger()}
}

type leveledLogger struct {
	l zerolog.Logger
}

func (l *leveledLogger) Trace(msg string)                          { l.l.Trace().Msg(msg) }
func (l *leveledLogger) Tracef(format string, args ...interface{}) { l.l.Trace().Msgf(format, args...) }
func (l *leveledLogger) Debug(msg string)                          { l.l.Debug().Msg(msg) }
func (l *leveledLogger) Debugf(format string, args ...interface{}) { l.l.Debug().Msgf(format, args...) }
func (l *leveledLogger) Info(msg string)                           { l.l.Info().Msg(msg) }
func (l *leveledLogger) Infof(format string, args ...interface{})  { l.l.Info().Msgf(format, args...) }
func (l *leveledLogger) Warn(msg string)                           { l.l.Warn().Msg(msg) }
func (l *leveledLogger) Warnf(format string, args ...interface{})  { l.l.Warn().Msgf(format, args...) }
func (l *leveledLogger) Error(msg string)                          { l.l.Error().Msg(msg) }
func (l *leveledLogger) Errorf(format string, args ...interface{}) { l.l.Error().Msgf(format, args...) }
