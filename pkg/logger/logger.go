// Package logger implements the leveled key/value logging shared by the
// nodeflow server planes. A Logger is an immutable view over a shared sink;
// components derive tagged children with WithField (component=interpreter,
// taskId=..., worker=2) and the sink serializes writes, so fan-in from the
// worker pool and the gateway stays readable.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders message severities.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseLevel maps a configuration string to a Level. Unknown strings fall
// back to INFO with an error so startup can warn and continue.
func ParseLevel(level string) (Level, error) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level: %s", level)
}

// Config seeds a fresh sink.
type Config struct {
	Level  Level
	Output io.Writer
	Format string // "text" (default) or "json"
	Mode   string // process role tag, e.g. "server"
}

// sink is the mutable, shared half of a logger: destination, threshold,
// format and the process mode tag. Changes propagate to every logger
// derived from the same sink.
type sink struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format string
	mode   string
}

type field struct {
	key string
	val any
}

// Logger is a view over a sink plus ordered context fields. Deriving never
// mutates the parent.
type Logger struct {
	s      *sink
	fields []field
}

// New builds a logger writing text to stdout at INFO.
func New() *Logger {
	return NewWithConfig(Config{Level: INFO})
}

// NewWithConfig builds a logger over a fresh sink.
func NewWithConfig(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Format != "json" {
		cfg.Format = "text"
	}
	return &Logger{s: &sink{
		w:      cfg.Output,
		level:  cfg.Level,
		format: cfg.Format,
		mode:   cfg.Mode,
	}}
}

// WithField derives a logger carrying one extra context field. Fields
// render in derivation order, before any call-site pairs.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(key, value)
}

// WithFields derives a logger carrying extra context fields from
// alternating key/value arguments. A trailing key without a value is
// dropped.
func (l *Logger) WithFields(keyVals ...any) *Logger {
	fields := make([]field, len(l.fields), len(l.fields)+len(keyVals)/2)
	copy(fields, l.fields)
	for i := 0; i+1 < len(keyVals); i += 2 {
		fields = append(fields, field{key: fmt.Sprintf("%v", keyVals[i]), val: keyVals[i+1]})
	}
	return &Logger{s: l.s, fields: fields}
}

// SetMode tags every line from this sink with the process role.
func (l *Logger) SetMode(mode string) {
	l.s.mu.Lock()
	l.s.mode = mode
	l.s.mu.Unlock()
}

// SetLevel changes the sink threshold; loggers already derived from this
// sink pick it up immediately.
func (l *Logger) SetLevel(level Level) {
	l.s.mu.Lock()
	l.s.level = level
	l.s.mu.Unlock()
}

func (l *Logger) GetLevel() Level {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.s.level
}

// SetFormat switches the sink between "text" and "json" rendering.
func (l *Logger) SetFormat(format string) {
	if format != "text" && format != "json" {
		return
	}
	l.s.mu.Lock()
	l.s.format = format
	l.s.mu.Unlock()
}

func (l *Logger) Debug(msg string, keyVals ...any) { l.write(DEBUG, msg, keyVals) }
func (l *Logger) Info(msg string, keyVals ...any)  { l.write(INFO, msg, keyVals) }
func (l *Logger) Warn(msg string, keyVals ...any)  { l.write(WARN, msg, keyVals) }
func (l *Logger) Error(msg string, keyVals ...any) { l.write(ERROR, msg, keyVals) }

func (l *Logger) write(lv Level, msg string, keyVals []any) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if lv < l.s.level {
		return
	}

	fields := l.fields
	if len(keyVals) > 1 {
		fields = make([]field, len(l.fields), len(l.fields)+len(keyVals)/2)
		copy(fields, l.fields)
		for i := 0; i+1 < len(keyVals); i += 2 {
			fields = append(fields, field{key: fmt.Sprintf("%v", keyVals[i]), val: keyVals[i+1]})
		}
	}

	ts := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	if l.s.format == "json" {
		fmt.Fprintln(l.s.w, jsonLine(ts, lv, l.s.mode, msg, fields))
	} else {
		fmt.Fprintln(l.s.w, textLine(ts, lv, l.s.mode, msg, fields))
	}
}

func textLine(ts string, lv Level, mode, msg string, fields []field) string {
	var b strings.Builder
	b.WriteString(ts)
	b.WriteByte(' ')
	b.WriteString(lv.String())
	if mode != "" {
		b.WriteString(" [")
		b.WriteString(mode)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(renderValue(f.val))
	}
	return b.String()
}

func jsonLine(ts string, lv Level, mode, msg string, fields []field) string {
	obj := make(map[string]any, len(fields)+4)
	obj["time"] = ts
	obj["level"] = lv.String()
	if mode != "" {
		obj["mode"] = mode
	}
	obj["msg"] = msg
	for _, f := range fields {
		switch v := f.val.(type) {
		case error:
			obj[f.key] = v.Error()
		case fmt.Stringer:
			obj[f.key] = v.String()
		default:
			obj[f.key] = v
		}
	}
	line, err := json.Marshal(obj)
	if err != nil {
		return fmt.Sprintf(`{"time":%q,"level":%q,"msg":%q}`, ts, lv.String(), msg)
	}
	return string(line)
}

func renderValue(value any) string {
	switch v := value.(type) {
	case string:
		if strings.ContainsAny(v, " =") {
			return fmt.Sprintf("%q", v)
		}
		return v
	case error:
		return fmt.Sprintf("%q", v.Error())
	case time.Duration:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// The process-wide logger; cmd wiring configures it once at startup and
// components derive from it via the package-level WithField.
var global = New()

// SetGlobalMode tags the process-wide sink, e.g. "server".
func SetGlobalMode(mode string) {
	global.SetMode(mode)
}

// SetLevel adjusts the process-wide threshold.
func SetLevel(level Level) {
	global.SetLevel(level)
}

// SetFormat switches the process-wide rendering between text and json.
func SetFormat(format string) {
	global.SetFormat(format)
}

// WithField derives a component logger from the process-wide sink.
func WithField(key string, value any) *Logger {
	return global.WithField(key, value)
}
