package logger

import (
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/weldctl/internal/errors"
	"github.com/rs/zerolog"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

var log = zerolog.New(io.Discard)

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// Rotation defaults for the log file
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// FileOptions describes an optional rotating log file. An empty Path
// disables file output.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Options struct {
	Level     LogLevel
	IsService bool
	File      FileOptions
}

// Init initializes the logger based on the given configuration. The
// returned closer flushes and closes the log file, if any.
func Init(opts Options) io.Closer {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	if opts.IsService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	var (
		w      io.Writer = output
		closer io.Closer = nopCloser{}
	)
	if opts.File.Path != "" {
		file := &lj.Logger{
			Filename:   opts.File.Path,
			MaxSize:    valOr(opts.File.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(opts.File.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(opts.File.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   opts.File.Compress,
		}
		w = zerolog.MultiLevelWriter(output, file)
		closer = file
	}

	log = zerolog.New(w).With().Timestamp().Logger()
	SetLogLevel(opts.Level)

	return closer
}

// ParseLevel maps a configured level name onto a LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, errors.New().WithData(errors.ErrInvalidLogLevel, level)
	}
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(log.Error(), err)
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.Fatal()}
}

// FatalWithCode logs a fatal message with a specific error code and exits the program
func FatalWithCode(err errors.Error) *LogEvent {
	return withCode(log.Fatal(), err)
}

// Component returns a Logger that tags every event with the component name.
// It reads the package logger at call time, so call it after Init.
func Component(name string) Logger {
	return &componentLogger{l: log.With().Str("component", name).Logger()}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &componentLogger{l: zerolog.Nop()}
}

// New wraps an arbitrary zerolog.Logger, mostly for tests that capture output.
func New(l zerolog.Logger) Logger {
	return &componentLogger{l: l}
}

type componentLogger struct {
	l zerolog.Logger
}

func (c *componentLogger) Debug() *LogEvent { return &LogEvent{c.l.Debug()} }
func (c *componentLogger) Info() *LogEvent  { return &LogEvent{c.l.Info()} }
func (c *componentLogger) Warn() *LogEvent  { return &LogEvent{c.l.Warn()} }
func (c *componentLogger) Error() *LogEvent { return &LogEvent{c.l.Error()} }

func (c *componentLogger) ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(c.l.Error(), err)
}

func (c *componentLogger) With(component string) Logger {
	return &componentLogger{l: c.l.With().Str("component", component).Logger()}
}

func withCode(e *zerolog.Event, err errors.Error) *LogEvent {
	return &LogEvent{e.
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
