// Package lsplog provides the leveled, prefixed logging wrapper around the
// standard log package that lsprpc uses when an embedder does not supply
// its own Options.Logger.
package lsplog

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Level selects which messages a Logger writes.
type Level int

// Levels in increasing order of verbosity, matching the Error/Info/Debug
// tiers used elsewhere in the corpus.
const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

// Logger is a small leveled wrapper around *log.Logger.
type Logger struct {
	mu    sync.Mutex
	out   *log.Logger
	level Level
}

// New creates a Logger that writes to os.Stderr at the given level.
func New(level Level) *Logger {
	return &Logger{out: log.New(os.Stderr, "", log.LstdFlags), level: level}
}

// SetLevel adjusts the verbosity threshold.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) logf(level Level, prefix, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > l.level {
		return
	}
	l.out.Output(3, prefix+" "+fmt.Sprintf(format, args...))
}

// Error logs a message at LevelError, always written.
func (l *Logger) Error(format string, args ...any) { l.logf(LevelError, "[error]", format, args...) }

// Info logs a message at LevelInfo.
func (l *Logger) Info(format string, args ...any) { l.logf(LevelInfo, "[info]", format, args...) }

// Debug logs a message at LevelDebug.
func (l *Logger) Debug(format string, args ...any) { l.logf(LevelDebug, "[debug]", format, args...) }

// Func adapts l to the func(string, ...any) shape lsprpc.Options.Logger
// expects, logging at LevelInfo.
func (l *Logger) Func() func(string, ...any) { return l.Info }
