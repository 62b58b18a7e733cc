package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// LegacyLogger prints plain "[level] msg args" lines, for terminals where
// structured output gets in the way
type LegacyLogger struct {
	mu     sync.RWMutex
	level  Level
	stdout io.Writer
	stderr io.Writer
}

// NewLegacyLogger creates a legacy logger at the given level
func NewLegacyLogger(level Level) *LegacyLogger {
	return &LegacyLogger{
		level:  level,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// SetLevel changes the minimum level
func (l *LegacyLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *LegacyLogger) log(level Level, w io.Writer, msg string, args []any) {
	l.mu.RLock()
	min := l.level
	l.mu.RUnlock()
	if level < min {
		return
	}
	if len(args) == 0 {
		fmt.Fprintf(w, "[%s] %s\n", level, msg)
		return
	}
	fmt.Fprintf(w, "[%s] %s %v\n", level, msg, args)
}

func (l *LegacyLogger) Debug(msg string, args ...any) { l.log(LevelDebug, l.stdout, msg, args) }
func (l *LegacyLogger) Info(msg string, args ...any)  { l.log(LevelInfo, l.stdout, msg, args) }
func (l *LegacyLogger) Warn(msg string, args ...any)  { l.log(LevelWarn, l.stderr, msg, args) }
func (l *LegacyLogger) Error(msg string, args ...any) { l.log(LevelError, l.stderr, msg, args) }

// With is not supported by the legacy logger and returns l
func (l *LegacyLogger) With(args ...any) Logger { return l }

func (l *LegacyLogger) Sync() error     { return nil }
func (l *LegacyLogger) Shutdown() error { return nil }
