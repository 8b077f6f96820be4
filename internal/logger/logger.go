// Package logger provides leveled diagnostic logging for servermark.
//
// Diagnostics go to stderr so they never mix with the user-facing output
// written by the output package (stdout, colors, JSON).
//
// Messages are constant strings followed by alternating key/value pairs:
//
//	logger.Info("site added", "domain", s.Domain, "type", s.Type)
//	// [INFO] 2026-02-03 10:30:45 site added domain=blog.test type=laravel
//
// A logger with fixed fields is obtained with With:
//
//	log := logger.With("op", "sync_all")
//	log.Debug("script built", "bytes", len(body))
//
// By default only Warn and Error are shown; Init(true) enables everything.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a logging severity level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
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
	default:
		return "UNKNOWN"
	}
}

// sink is the shared destination; every Logger derived from std writes here.
type sink struct {
	mu     sync.Mutex
	level  Level
	output io.Writer
	now    func() time.Time
}

// Logger writes leveled messages with a fixed set of leading fields.
type Logger struct {
	sink   *sink
	fields []interface{}
}

var std = &Logger{sink: &sink{
	level:  LevelWarn,
	output: os.Stderr,
	now:    time.Now,
}}

// Init sets Debug level when verbose, Warn otherwise.
func Init(verbose bool) {
	if verbose {
		SetLevel(LevelDebug)
		return
	}
	SetLevel(LevelWarn)
}

// SetLevel sets the minimum level for all loggers.
func SetLevel(level Level) {
	std.sink.mu.Lock()
	defer std.sink.mu.Unlock()
	std.sink.level = level
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	std.sink.mu.Lock()
	defer std.sink.mu.Unlock()
	return std.sink.level
}

// SetOutput redirects all loggers. A nil writer restores os.Stderr.
func SetOutput(w io.Writer) {
	std.sink.mu.Lock()
	defer std.sink.mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	std.sink.output = w
}

// With returns a logger that prefixes every message with kv.
func With(kv ...interface{}) *Logger {
	return std.With(kv...)
}

// With returns a child logger with additional fixed fields.
func (l *Logger) With(kv ...interface{}) *Logger {
	fields := make([]interface{}, 0, len(l.fields)+len(kv))
	fields = append(fields, l.fields...)
	fields = append(fields, kv...)
	return &Logger{sink: l.sink, fields: fields}
}

func (l *Logger) log(level Level, msg string, kv []interface{}) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if level < l.sink.level {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", level, l.sink.now().Format("2006-01-02 15:04:05"), msg)
	writeFields(&b, l.fields)
	writeFields(&b, kv)
	b.WriteByte('\n')
	_, _ = io.WriteString(l.sink.output, b.String())
}

func writeFields(b *strings.Builder, kv []interface{}) {
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			fmt.Fprintf(b, " %v=(MISSING)", kv[i])
			return
		}
		val := fmt.Sprint(kv[i+1])
		if strings.ContainsAny(val, " \t\n\"") {
			val = fmt.Sprintf("%q", val)
		}
		fmt.Fprintf(b, " %v=%s", kv[i], val)
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(LevelDebug, msg, kv) }

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...interface{}) { l.log(LevelInfo, msg, kv) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...interface{}) { l.log(LevelWarn, msg, kv) }

// Error logs at error level.
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(LevelError, msg, kv) }

// Debug logs a debug message on the global logger.
// Only shown when verbose mode is enabled.
func Debug(msg string, kv ...interface{}) { std.log(LevelDebug, msg, kv) }

// Info logs an informational message on the global logger.
// Only shown when verbose mode is enabled.
func Info(msg string, kv ...interface{}) { std.log(LevelInfo, msg, kv) }

// Warn logs a warning on the global logger.
func Warn(msg string, kv ...interface{}) { std.log(LevelWarn, msg, kv) }

// Error logs an error on the global logger.
func Error(msg string, kv ...interface{}) { std.log(LevelError, msg, kv) }

// LogError logs err at error level with a context message. Nil errors are ignored.
func LogError(err error, msg string, kv ...interface{}) {
	if err == nil {
		return
	}
	std.log(LevelError, msg, append(kv, "error", err))
}
