// Package logging provides the leveled logger that services such as the
// scheduler, runner and coordinator take via a WithLogger option.
// Loggers are scoped: Scoped derives a
// child that stamps each message with a run or test identity (the
// coordinator scopes per run, the runner per test case) while sharing
// the parent's level threshold.
package logging

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// Level defines the severity threshold of a Logger.
type Level int32

const (
	// LevelDebug includes all messages.
	LevelDebug Level = iota
	// LevelInfo includes info, warn, error and fatal messages.
	LevelInfo
	// LevelWarn includes warn, error and fatal messages.
	LevelWarn
	// LevelError includes error and fatal messages.
	LevelError
	// LevelFatal includes only fatal messages.
	LevelFatal
	// LevelNone disables all logging.
	LevelNone
)

// String returns the tag rendered in front of each message at this
// level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "NONE"
	}
}

// Logger is the leveled logging interface that services such as the
// scheduler, runner and coordinator take via a WithLogger option.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	SetLevel(level Level)
	GetLevel() Level

	// Scoped returns a child logger whose messages carry scope (a run
	// id, a test case id) in front of the text. Children share the
	// parent's level: SetLevel on any of them affects the whole family.
	Scoped(scope string) Logger
}

// stdLogger writes debug/info/warn to stdout and error/fatal to stderr,
// one shared threshold across the whole Scoped family.
type stdLogger struct {
	level *atomic.Int32
	scope string
	out   *log.Logger
	err   *log.Logger
}

// NewLogger creates a root Logger defaulting to LevelInfo.
func NewLogger() Logger {
	level := &atomic.Int32{}
	level.Store(int32(LevelInfo))
	return &stdLogger{
		level: level,
		out:   log.New(os.Stdout, "", log.Ltime),
		err:   log.New(os.Stderr, "", log.Ltime),
	}
}

func (l *stdLogger) logf(at Level, w *log.Logger, format string, args ...interface{}) {
	if Level(l.level.Load()) > at {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.scope != "" {
		msg = "[" + l.scope + "] " + msg
	}
	w.Output(3, "["+at.String()+"] "+msg)
}

func (l *stdLogger) Debugf(format string, args ...interface{}) {
	l.logf(LevelDebug, l.out, format, args...)
}

func (l *stdLogger) Infof(format string, args ...interface{}) {
	l.logf(LevelInfo, l.out, format, args...)
}

func (l *stdLogger) Warnf(format string, args ...interface{}) {
	l.logf(LevelWarn, l.out, format, args...)
}

func (l *stdLogger) Errorf(format string, args ...interface{}) {
	l.logf(LevelError, l.err, format, args...)
}

func (l *stdLogger) Fatalf(format string, args ...interface{}) {
	l.logf(LevelFatal, l.err, format, args...)
	os.Exit(1)
}

func (l *stdLogger) SetLevel(level Level) { l.level.Store(int32(level)) }
func (l *stdLogger) GetLevel() Level      { return Level(l.level.Load()) }

func (l *stdLogger) Scoped(scope string) Logger {
	child := *l
	if l.scope != "" {
		scope = l.scope + " " + scope
	}
	child.scope = scope
	return &child
}

// nullLogger discards everything; useful in tests that exercise warn-log
// paths (e.g. missing variables) without polluting test output.
type nullLogger struct{}

// NewNullLogger creates a Logger that discards all messages.
func NewNullLogger() Logger { return &nullLogger{} }

func (l *nullLogger) Debugf(format string, args ...interface{}) {}
func (l *nullLogger) Infof(format string, args ...interface{})  {}
func (l *nullLogger) Warnf(format string, args ...interface{})  {}
func (l *nullLogger) Errorf(format string, args ...interface{}) {}
func (l *nullLogger) Fatalf(format string, args ...interface{}) {}
func (l *nullLogger) SetLevel(level Level)                      {}
func (l *nullLogger) GetLevel() Level                           { return LevelNone }
func (l *nullLogger) Scoped(scope string) Logger                { return l }
