// Package logger is a small leveled logger writing "[LEVEL] [MODULE]"
// prefixed lines, optionally to a rotated file.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	silent
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int32(l))
	}
}

// Logger is safe for concurrent use. Loggers derived with Module or With
// share the output and the level of their parent.
type Logger struct {
	loggers    [silent]*log.Logger
	level      *atomic.Int32
	moduleName string
	context    string
	out        io.Writer
}

// NewLogger logs to a rotated file at logPath and to stdout.
func NewLogger(moduleName, logPath string, maxSize, maxBackups, maxAge int, minLevel LogLevel) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSize,    // megabytes
		MaxBackups: maxBackups, // number of backups
		MaxAge:     maxAge,     // days
		Compress:   true,
	}
	return New(moduleName, io.MultiWriter(rotator, os.Stdout), minLevel), nil
}

// New builds a logger over any writer.
func New(moduleName string, w io.Writer, minLevel LogLevel) *Logger {
	level := &atomic.Int32{}
	level.Store(int32(minLevel))
	return build(moduleName, "", w, level)
}

func build(moduleName, context string, w io.Writer, level *atomic.Int32) *Logger {
	l := &Logger{level: level, moduleName: moduleName, context: context, out: w}
	for lvl := DEBUG; lvl < silent; lvl++ {
		l.loggers[lvl] = log.New(w, fmt.Sprintf("[%s] [%s] ", lvl, moduleName), log.LstdFlags)
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New("", io.Discard, silent)
}

// Module returns the logger of another module.
func (l *Logger) Module(moduleName string) *Logger {
	return build(moduleName, l.context, l.out, l.level)
}

// With returns a logger that tags every line with context, e.g. a run id.
func (l *Logger) With(context string) *Logger {
	if l.context != "" {
		context = l.context + " " + context
	}
	return build(l.moduleName, context, l.out, l.level)
}

func (l *Logger) logf(level LogLevel, format string, v ...interface{}) {
	if LogLevel(l.level.Load()) > level {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if l.context != "" {
		msg = l.context + " " + msg
	}
	l.loggers[level].Print(msg)
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.logf(DEBUG, format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.logf(INFO, format, v...)
}

func (l *Logger) Warning(format string, v ...interface{}) {
	l.logf(WARNING, format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.logf(ERROR, format, v...)
}

// SetLevel changes the level of l and of every logger derived from the
// same root.
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// GetLogLevelFromString parses a level name, case-insensitively. Unknown
// names mean INFO.
func GetLogLevelFromString(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "WARNING", "WARN":
		return WARNING
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}
