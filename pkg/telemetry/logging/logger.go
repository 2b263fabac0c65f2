package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mercator-hq/relay/pkg/config"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in logfmt-style text.
	FormatText LogFormat = "text"
	// FormatConsole outputs human-readable text without source paths.
	FormatConsole LogFormat = "console"
)

// Logger owns the process-wide slog handler. Its level can be changed at
// runtime, which is how config reloads adjust verbosity.
type Logger struct {
	slog   *slog.Logger
	level  *slog.LevelVar
	format LogFormat
	file   io.Closer
}

// Option configures a Logger.
type Option func(*loggerOptions)

type loggerOptions struct {
	writer io.Writer
}

// WithWriter sends output to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(o *loggerOptions) { o.writer = w }
}

// New creates a Logger from cfg. If cfg.File.Path is set, output is also
// written to a rotating file.
func New(cfg config.LoggingConfig, opts ...Option) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	o := loggerOptions{writer: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Logger{
		level:  new(slog.LevelVar),
		format: format,
	}
	l.level.Set(level)

	writer := o.writer
	if cfg.File.Path != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		l.file = rotating
		writer = io.MultiWriter(writer, rotating)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     l.level,
		AddSource: cfg.AddSource && format != FormatConsole,
	}
	if cfg.RedactSecrets {
		handlerOpts.ReplaceAttr = NewRedactor().ReplaceAttr
	}

	var handler slog.Handler
	switch format {
	case FormatText, FormatConsole:
		handler = slog.NewTextHandler(writer, handlerOpts)
	default:
		handler = slog.NewJSONHandler(writer, handlerOpts)
	}

	l.slog = slog.New(newContextHandler(handler))
	return l, nil
}

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// SetDefault installs the logger as the slog default.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.slog)
}

// SetLevel changes the minimum level of a running logger.
func (l *Logger) SetLevel(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if parsed != l.level.Level() {
		l.level.Set(parsed)
		l.slog.Info("log level changed", "level", strings.ToLower(parsed.String()))
	}
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close closes the rotating log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

func parseFormat(formatStr string) (LogFormat, error) {
	switch strings.ToLower(formatStr) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	case "console":
		return FormatConsole, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
