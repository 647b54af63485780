// Package logger holds the process-wide zap logger.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = zap.NewNop()

// LogLevel is the LOG_LEVEL value from config.
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

func (l LogLevel) zapLevel() (zapcore.Level, error) {
	switch LogLevel(strings.ToLower(strings.TrimSpace(string(l)))) {
	case DebugLevel:
		return zapcore.DebugLevel, nil
	case "", InfoLevel:
		return zapcore.InfoLevel, nil
	case WarnLevel:
		return zapcore.WarnLevel, nil
	case ErrorLevel:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", l)
	}
}

// Init replaces the no-op logger. development switches to the console encoder
// with stack traces on warnings.
func Init(development bool, level LogLevel) error {
	lvl, err := level.zapLevel()
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	log = built
	return nil
}

// Get returns the current logger. It is a no-op until Init runs, which keeps tests quiet.
func Get() *zap.Logger {
	return log
}

func Sync() error {
	return log.Sync()
}
