// Package log is the application's levelled logger. It keeps a small
// package-level API (Debugf, Infof, ...) over zerolog so call sites stay
// independent of the backend.
//
// Messages follow the "Component: text" convention. In JSON output the
// component is split off into its own field, so logs can be filtered per
// subsystem.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel defines the severity of a log message.
type LogLevel int8

// Constants for log levels, aligned with the backend's.
const (
	LevelDebug = LogLevel(zerolog.DebugLevel)
	LevelInfo  = LogLevel(zerolog.InfoLevel)
	LevelWarn  = LogLevel(zerolog.WarnLevel)
	LevelError = LogLevel(zerolog.ErrorLevel)
	LevelFatal = LogLevel(zerolog.FatalLevel)
)

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return strings.ToUpper(zerolog.Level(l).String())
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	s := strings.ToLower(levelStr)
	if s == "warning" {
		s = "warn"
	}
	switch s {
	case "debug", "info", "warn", "error", "fatal":
		level, err := zerolog.ParseLevel(s)
		if err != nil {
			return LevelInfo, false
		}
		return LogLevel(level), true
	default:
		return LevelInfo, false
	}
}

// logger is the backend instance. Stored atomically so SetOutput can swap
// it while interrupt-side goroutines are logging.
var logger atomic.Pointer[zerolog.Logger]

func init() {
	SetOutput(os.Stderr)
	// Default level at startup. Can be overridden by config.
	SetLevel(LevelInfo)
}

// SetOutput redirects log output to w in human-readable console format.
func SetOutput(w io.Writer) {
	store(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.StampMicro,
	}, false)
}

// SetJSONOutput redirects log output to w as one JSON object per line.
func SetJSONOutput(w io.Writer) {
	store(w, true)
}

// structured reports whether the component prefix goes to its own field.
var structured atomic.Bool

func store(w io.Writer, json bool) {
	l := zerolog.New(w).With().Timestamp().Logger()
	structured.Store(json)
	logger.Store(&l)
}

// SetLevel sets the global logging level.
func SetLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// GetLevel returns the global logging level.
func GetLevel() LogLevel {
	return LogLevel(zerolog.GlobalLevel())
}

const componentField = "component"

// split separates a leading "Component: " prefix from msg.
func split(msg string) (component, text string) {
	i := strings.Index(msg, ": ")
	if i <= 0 || strings.ContainsAny(msg[:i], " \t\n") {
		return "", msg
	}
	return msg[:i], msg[i+2:]
}

func emit(e *zerolog.Event, format string, v []any) {
	if e == nil {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if structured.Load() {
		if component, text := split(msg); component != "" {
			e = e.Str(componentField, component)
			msg = text
		}
	}
	e.Msg(msg)
}

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...any) {
	emit(logger.Load().Debug(), format, v)
}

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...any) {
	emit(logger.Load().Info(), format, v)
}

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...any) {
	emit(logger.Load().Warn(), format, v)
}

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...any) {
	emit(logger.Load().Error(), format, v)
}

// Fatalf logs a formatted fatal message and exits the application.
func Fatalf(format string, v ...any) {
	emit(logger.Load().Fatal(), format, v)
	os.Exit(1)
}
