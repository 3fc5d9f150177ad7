package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"dycrawler/pkg/config"
)

// Logger is the logging surface the crawler's components share. It is
// implemented by the zerolog-backed logger and by the no-op logger
// handed to tests.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
}

// zlogger backs Logger with zerolog. With* derivations use zerolog
// contexts, so attached fields are immutable and deriving a child
// never touches the parent.
type zlogger struct {
	zl zerolog.Logger
}

// New builds a logger from config. Output goes to a human-readable
// console writer on stderr, or to the configured file as JSON lines.
func New(cfg *config.LoggingConfig) (Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = consoleWriter()
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}

	zl := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("app", "dycrawler").
		Logger()
	return &zlogger{zl: zl}, nil
}

func consoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
}

func parseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	case "panic":
		return zerolog.PanicLevel, nil
	case "disabled":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level: %q", level)
	}
}

func (l *zlogger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *zlogger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *zlogger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *zlogger) Error(msg string) { l.zl.Error().Msg(msg) }

func (l *zlogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *zlogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *zlogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *zlogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.zl.Error().Fields(fields).Msg(msg)
}

func (l *zlogger) WithField(key string, value interface{}) Logger {
	return &zlogger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *zlogger) WithFields(fields map[string]interface{}) Logger {
	return &zlogger{zl: l.zl.With().Fields(fields).Logger()}
}

func (l *zlogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return &zlogger{zl: l.zl.With().Err(err).Logger()}
}

var (
	globalMu sync.RWMutex
	global   Logger
)

// Initialize builds the process-wide logger from config. Components
// handed a nil logger fall back to it through GetLogger.
func Initialize(cfg *config.LoggingConfig) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	globalMu.Lock()
	global = l
	globalMu.Unlock()
	return nil
}

// GetLogger returns the process-wide logger. Before Initialize has
// run it builds an info-level console logger on first use.
func GetLogger() Logger {
	globalMu.RLock()
	l := global
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		zl := zerolog.New(consoleWriter()).Level(zerolog.InfoLevel).With().Timestamp().Logger()
		global = &zlogger{zl: zl}
	}
	return global
}
