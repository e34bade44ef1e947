// Package log is a thin leveled wrapper around log/slog shared by the
// taylor-server binary and its HTTP handlers.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelError LogLevel = "error"
	LevelWarn  LogLevel = "warn"
	LevelInfo  LogLevel = "info"
	LevelDebug LogLevel = "debug"
)

var (
	mu           sync.RWMutex
	logger       *slog.Logger
	currentLevel slog.Level
	output       io.Writer = os.Stderr
)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel configures the logging level
func SetLevel(level LogLevel) error {
	var l slog.Level
	switch level {
	case LevelError:
		l = slog.LevelError
	case LevelWarn:
		l = slog.LevelWarn
	case LevelInfo:
		l = slog.LevelInfo
	case LevelDebug:
		l = slog.LevelDebug
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	mu.Lock()
	defer mu.Unlock()
	currentLevel = l
	setupLogger()
	return nil
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	setupLogger()
}

// ParseLevel converts a string to LogLevel
func ParseLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	switch level {
	case LevelError, LevelWarn, LevelInfo, LevelDebug:
		return level, nil
	default:
		return "", fmt.Errorf("invalid log level: %s", s)
	}
}

// caller holds mu.
func setupLogger() {
	logger = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: currentLevel}))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Error(msg string, args ...any) { current().Error(msg, args...) }
func Warn(msg string, args ...any)  { current().Warn(msg, args...) }
func Info(msg string, args ...any)  { current().Info(msg, args...) }
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel <= slog.LevelDebug
}
