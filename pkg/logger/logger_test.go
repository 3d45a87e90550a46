package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufLogger(lv Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewWithConfig(Config{Level: lv, Output: &buf}), &buf
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DEBUG.String())
	assert.Equal(t, "INFO", INFO.String())
	assert.Equal(t, "WARN", WARN.String())
	assert.Equal(t, "ERROR", ERROR.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"Warning", WARN, false},
		{"warn", WARN, false},
		{"error", ERROR, false},
		{"verbose", INFO, true},
	}
	for _, tt := range tests {
		lv, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, lv, tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufLogger(WARN)

	l.Debug("plan built", "steps", 4)
	l.Info("task submitted", "taskId", "t_1")
	assert.Zero(t, buf.Len())

	l.Warn("queue nearly full", "depth", 120)
	assert.Contains(t, buf.String(), "queue nearly full")
	assert.Contains(t, buf.String(), "depth=120")
}

func TestSetLevelReachesDerivedLoggers(t *testing.T) {
	l, buf := newBufLogger(INFO)
	interp := l.WithField("component", "interpreter")

	interp.Debug("entering loop", "pair", "L")
	assert.Zero(t, buf.Len())

	l.SetLevel(DEBUG)
	interp.Debug("entering loop", "pair", "L")
	assert.Contains(t, buf.String(), "entering loop")
	assert.Contains(t, buf.String(), "component=interpreter")
	assert.Equal(t, DEBUG, interp.GetLevel())
}

func TestWithFieldOrderAndIsolation(t *testing.T) {
	l, buf := newBufLogger(INFO)
	gateway := l.WithField("component", "gateway")
	session := gateway.WithField("taskId", "t_42")

	session.Info("socket open", "remote", "10.0.0.9:55123")
	line := buf.String()

	// Derived fields render in derivation order, call-site pairs last.
	ci := strings.Index(line, "component=gateway")
	ti := strings.Index(line, "taskId=t_42")
	ri := strings.Index(line, "remote=10.0.0.9:55123")
	require.True(t, ci >= 0 && ti >= 0 && ri >= 0, "line: %s", line)
	assert.Less(t, ci, ti)
	assert.Less(t, ti, ri)

	// The parent never picks up the child's fields.
	buf.Reset()
	gateway.Info("listener ready")
	assert.NotContains(t, buf.String(), "taskId")
}

func TestModeTagAppears(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: INFO, Output: &buf, Mode: "server"})

	l.Info("http server listening", "address", "0.0.0.0:8000")
	assert.Contains(t, buf.String(), "INFO [server] http server listening")

	buf.Reset()
	l.SetMode("")
	l.Info("plain")
	assert.NotContains(t, buf.String(), "[server]")
}

func TestValueRendering(t *testing.T) {
	l, buf := newBufLogger(INFO)

	l.Warn("terminal publish failed",
		"error", errors.New("redis: connection refused"),
		"elapsed", 1500*time.Millisecond,
		"detail", "two words",
	)
	line := buf.String()
	assert.Contains(t, line, `error="redis: connection refused"`)
	assert.Contains(t, line, "elapsed=1.5s")
	assert.Contains(t, line, `detail="two words"`)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: INFO, Output: &buf, Format: "json", Mode: "server"})

	l.WithField("component", "tasks").Info("task submitted", "taskId", "t_9", "error", errors.New("boom"))

	var obj map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &obj))
	assert.Equal(t, "task submitted", obj["msg"])
	assert.Equal(t, "INFO", obj["level"])
	assert.Equal(t, "server", obj["mode"])
	assert.Equal(t, "tasks", obj["component"])
	assert.Equal(t, "t_9", obj["taskId"])
	assert.Equal(t, "boom", obj["error"])
}

func TestSetFormatIgnoresUnknown(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: INFO, Output: &buf})

	l.SetFormat("yaml") // unknown, keeps text
	l.Info("still text", "k", "v")
	assert.Contains(t, buf.String(), "k=v")

	buf.Reset()
	l.SetFormat("json")
	l.Info("now json")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestGlobalModePropagates(t *testing.T) {
	SetGlobalMode("server")
	t.Cleanup(func() { SetGlobalMode("") })

	global.s.mu.Lock()
	mode := global.s.mode
	global.s.mu.Unlock()
	assert.Equal(t, "server", mode)

	// Component loggers derived from the package root share the sink.
	l := WithField("component", "main")
	assert.Same(t, global.s, l.s)
}
