package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity. Levels are ordered Debug < Info < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config/CLI string to a Level. Unknown values fall back
// to Info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	mu       sync.Mutex
	out      io.Writer = os.Stderr
	minLevel           = LevelInfo
)

// SetLevel sets the minimum level that will be written.
func SetLevel(l Level) {
	mu.Lock()
	minLevel = l
	mu.Unlock()
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// Debug logs a message with optional key-value pairs at DEBUG level.
func Debug(msg string, kv ...any) {
	write(LevelDebug, msg, kv...)
}

// Info logs a message with optional key-value pairs at INFO level.
func Info(msg string, kv ...any) {
	write(LevelInfo, msg, kv...)
}

// Error logs a message and an error with optional key-value pairs.
func Error(msg string, err error, kv ...any) {
	write(LevelError, msg, append([]any{"err", err}, kv...)...)
}

// write emits a single line:
//
//	2025-01-01T00:00:00.000000+09:00 [INFO] msg key=value ...
//
// Keys that are not strings are skipped; a trailing odd value is ignored.
func write(level Level, msg string, kv ...any) {
	mu.Lock()
	defer mu.Unlock()

	if level < minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format(time.RFC3339Nano))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)

	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(fmt.Sprint(kv[i+1]))
	}
	b.WriteString("\n")

	_, _ = io.WriteString(out, b.String())
}
