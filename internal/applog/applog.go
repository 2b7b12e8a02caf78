// Package applog is the structured logging facade used by every other
// package in this module. It wraps zerolog the way the teacher package's
// core/conn used a small log facade (log.Debugf/Warnf) rather than
// importing zerolog directly everywhere, and adds two optional
// production knobs: ECS-shaped JSON output and rotating file output.
package applog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	ecszerolog "go.elastic.co/ecszerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu  sync.RWMutex
	log zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// Config controls how Configure sets up the global logger.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string

	// ECS, when true, formats log lines in Elastic Common Schema JSON
	// instead of zerolog's default console/JSON output.
	ECS bool

	// FilePath, when non-empty, writes logs to a rotating file instead
	// of stderr, using lumberjack for rotation.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Configure installs cfg as the global logger used by Debugf/Infof/
// Warnf/Errorf. It is safe to call once at process startup, before any
// other package logs.
func Configure(cfg Config) {
	var w io.Writer = os.Stderr
	if cfg.FilePath != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		}
	}

	var l zerolog.Logger
	if cfg.ECS {
		l = ecszerolog.New(w)
	} else {
		l = zerolog.New(w).With().Timestamp().Logger()
	}
	l = l.Level(parseLevel(cfg.Level))

	mu.Lock()
	log = l
	mu.Unlock()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func parseLevel(s string) zerolog.Level {
	switch s {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debugf logs a formatted debug-level message.
func Debugf(format string, args ...interface{}) { current().Debug().Msgf(format, args...) }

// Infof logs a formatted info-level message.
func Infof(format string, args ...interface{}) { current().Info().Msgf(format, args...) }

// Warnf logs a formatted warn-level message.
func Warnf(format string, args ...interface{}) { current().Warn().Msgf(format, args...) }

// Errorf logs a formatted error-level message.
func Errorf(format string, args ...interface{}) { current().Error().Msgf(format, args...) }
