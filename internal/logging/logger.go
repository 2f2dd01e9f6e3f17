package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Fields map[string]interface{}

// Level orders log severities; messages below the configured level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "fatal"
	}
}

// ParseLevel maps a level name to a Level. Unknown names yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	mu       sync.Mutex
	out      io.Writer = os.Stderr
	minLevel           = LevelInfo
	exit               = os.Exit
)

// SetOutput redirects log lines. Tests use it to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetLevel sets the minimum level that is written.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

func output(level Level, msg string, fields Fields) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}
	line := Fields{}
	for k, v := range fields {
		line[k] = v
	}
	line["level"] = level.String()
	line["ts"] = time.Now().UTC().Format(time.RFC3339)
	line["msg"] = msg
	b, err := json.Marshal(line)
	if err != nil {
		// fallback to plain logging
		fmt.Fprintf(out, "%s: %s (%v)\n", level, msg, fields)
		return
	}
	fmt.Fprintln(out, string(b))
}

func withError(fields Fields, err error) Fields {
	if err == nil {
		return fields
	}
	f := Fields{}
	for k, v := range fields {
		f[k] = v
	}
	f["error"] = err.Error()
	return f
}

// Debug logs a verbose diagnostic message.
func Debug(msg string, fields Fields) {
	output(LevelDebug, msg, fields)
}

// Info logs an informational message with optional fields.
func Info(msg string, fields Fields) {
	output(LevelInfo, msg, fields)
}

// Warn logs a recoverable problem, optionally with the error that caused it.
func Warn(msg string, err error, fields Fields) {
	output(LevelWarn, msg, withError(fields, err))
}

// Error logs an error message and includes the error text in the fields.
func Error(msg string, err error, fields Fields) {
	output(LevelError, msg, withError(fields, err))
}

// Fatal logs a fatal error and exits the process.
func Fatal(msg string, err error, fields Fields) {
	output(LevelFatal, msg, withError(fields, err))
	exit(1)
}
