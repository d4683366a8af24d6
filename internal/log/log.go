package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug   Level = "DEBUG"
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// rank orders levels from most to least verbose.
func (l Level) rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarning:
		return 2
	case LevelError:
		return 3
	default:
		return 0
	}
}

// ParseLevel converts a user supplied level name (case-insensitive) into a
// Level. WARN is accepted as an alias of WARNING, CRITICAL and FATAL map to
// ERROR.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARNING", "WARN":
		return LevelWarning, nil
	case "ERROR", "CRITICAL", "FATAL":
		return LevelError, nil
	}
	return "", fmt.Errorf("invalid log level: %s", s)
}

// Logger writes timestamped key=value lines to a sink. Components receive
// their own *Logger instead of relying on process-wide state; a nil *Logger
// discards everything.
type Logger struct {
	core   *core
	fields []any
}

// core is shared by a logger and every child made with With, so SetLevel on
// any of them applies to all.
type core struct {
	mu  sync.Mutex
	out *stdlog.Logger
	min Level
}

// New builds a Logger writing to w with the given minimum level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{core: &core{
		out: stdlog.New(w, "", 0),
		min: level,
	}}
}

// With returns a child logger that appends kv to every line.
func (l *Logger) With(kv ...any) *Logger {
	if l == nil {
		return nil
	}
	fields := make([]any, 0, len(l.fields)+len(kv))
	fields = append(fields, l.fields...)
	fields = append(fields, kv...)
	return &Logger{core: l.core, fields: fields}
}

func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.core.mu.Lock()
	l.core.min = level
	l.core.mu.Unlock()
}

// Level reports the minimum level written. A nil Logger writes nothing and
// reports "".
func (l *Logger) Level() Level {
	if l == nil {
		return ""
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.min
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.log(LevelDebug, msg, kv...)
}

func (l *Logger) Info(msg string, kv ...any) {
	l.log(LevelInfo, msg, kv...)
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.log(LevelWarning, msg, kv...)
}

func (l *Logger) Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	l.log(LevelError, msg, extended...)
}

func (l *Logger) log(level Level, msg string, kv ...any) {
	if l == nil || !l.enabled(level) {
		return
	}

	ts := time.Now().Format(time.RFC3339Nano)

	// Basic line format:
	// 2025-01-01T00:00:00Z [LEVEL] msg key=value ...
	line := ts + " [" + string(level) + "] " + msg

	if len(l.fields) > 0 {
		line += formatKVs(l.fields...)
	}
	if len(kv) > 0 {
		line += formatKVs(kv...)
	}

	l.core.out.Println(line)
}

func (l *Logger) enabled(level Level) bool {
	return level.rank() >= l.Level().rank()
}

var (
	defaultLogger *Logger
	defaultOnce   sync.Once
)

// Default returns the process-wide logger writing to stderr. Only the
// entry point should touch it; components take a *Logger.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(os.Stderr, LevelWarning)
	})
	return defaultLogger
}

func SetLevel(l Level) {
	Default().SetLevel(l)
}

func Debug(msg string, kv ...any) {
	Default().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	Default().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	Default().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	Default().Error(msg, err, kv...)
}

func formatKVs(kv ...any) string {
	out := ""
	// Expect kv as pairs: key, value, key, value, ...
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		val := kv[i+1]
		out += " " + key + "=" + safeSprint(val)
	}
	// If odd number of args, last one is ignored.
	return out
}

func safeSprint(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}
