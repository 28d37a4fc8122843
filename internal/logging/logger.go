// Package logging provides structured logging for runloop built on
// log/slog, with a small fluent wrapper for persistent fields and
// component tagging so the engine, scheduler, watcher and supervisor
// can each log under their own component name.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel represents the logging verbosity.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name, defaulting to LevelInfo on unknown input.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is the interface used throughout the engine. Arguments after
// msg are alternating key/value pairs, following slog convention.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
	Error(ctx context.Context, err error, msg string, fields ...interface{})

	With(fields ...interface{}) Logger
	WithComponent(component string) Logger
}

// SlogLogger implements Logger on top of log/slog.
type SlogLogger struct {
	logger    *slog.Logger
	level     LogLevel
	component string
	fields    map[string]interface{}
}

// Config configures a SlogLogger.
type Config struct {
	Level  LogLevel
	Format string // "json" or "text"
	Output io.Writer
}

func DefaultConfig() *Config {
	return &Config{Level: LevelInfo, Format: "text", Output: os.Stderr}
}

func New(config *Config) *SlogLogger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slogLevel(config.Level)}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &SlogLogger{
		logger: slog.New(handler),
		level:  config.Level,
		fields: make(map[string]interface{}),
	}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *SlogLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelDebug, nil, msg, fields...)
}

func (l *SlogLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelInfo, nil, msg, fields...)
}

func (l *SlogLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelWarn, err, msg, fields...)
}

func (l *SlogLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.log(ctx, slog.LevelError, err, msg, fields...)
}

func (l *SlogLogger) With(fields ...interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		newFields[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			newFields[key] = fields[i+1]
		}
	}
	return &SlogLogger{logger: l.logger, level: l.level, component: l.component, fields: newFields}
}

func (l *SlogLogger) WithComponent(component string) Logger {
	return &SlogLogger{logger: l.logger, level: l.level, component: component, fields: l.fields}
}

func (l *SlogLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields ...interface{}) {
	attrs := make([]slog.Attr, 0, len(l.fields)+len(fields)/2+2)

	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	for k, v := range l.fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok && key != "" {
			attrs = append(attrs, slog.Any(key, fields[i+1]))
		}
	}

	record := slog.NewRecord(time.Now(), level, msg, 0)
	record.AddAttrs(attrs...)

	if handler := l.logger.Handler(); handler != nil {
		if handleErr := handler.Handle(ctx, record); handleErr != nil {
			fmt.Fprintf(os.Stderr, "logging: failed to write record: %v (original message: %s)\n", handleErr, msg)
		}
	}
}

// NewTestLogger returns a Logger that discards output, for use in tests.
func NewTestLogger() Logger {
	return New(&Config{Level: LevelDebug, Format: "text", Output: io.Discard})
}
