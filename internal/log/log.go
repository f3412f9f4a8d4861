// Package log provides the process logger, backed by logrus.
package log

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"firestige.xyz/ipsniff/internal/config"
)

type Logger interface {
	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
}

var (
	mu     sync.RWMutex
	logger Logger = newLogrusAdapter(defaultConfig(), os.Stderr)
)

// GetLogger returns the process logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the process logger according to cfg. Console output goes to stderr,
// which keeps stdout free for the status line.
func Init(cfg config.LogConfig) error {
	w := NewMultiWriter().Add(os.Stderr)
	if cfg.File.Enabled {
		if err := w.AddFileAppender(cfg.File); err != nil {
			return err
		}
	}
	SetLogger(New(cfg, w))
	return nil
}

// New creates a logger writing to out.
func New(cfg config.LogConfig, out io.Writer) Logger {
	return newLogrusAdapter(cfg, out)
}

// SetLogger replaces the process logger.
func SetLogger(l Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func defaultConfig() config.LogConfig {
	return config.LogConfig{
		Level:   "info",
		Pattern: "%time [%level] %field %msg\n",
		Time:    "2006-01-02 15:04:05",
	}
}

// ParseLevel converts a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}
