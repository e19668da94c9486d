package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		configLvl LogLevel
		logLvl    LogLevel
		shouldLog bool
	}{
		{"debug logs debug", DebugLevel, DebugLevel, true},
		{"info skips debug", InfoLevel, DebugLevel, false},
		{"info logs warn", InfoLevel, WarnLevel, true},
		{"warn skips info", WarnLevel, InfoLevel, false},
		{"error logs error", ErrorLevel, ErrorLevel, true},
		{"silent skips error", SilentLevel, ErrorLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewLogger(Config{Level: tt.configLvl, Output: buf})

			logger.log(tt.logLvl, "test message", nil)

			assert.Equal(t, tt.shouldLog, buf.Len() > 0)
		})
	}
}

func TestHumanFormatSortsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Format: HumanFormat, Level: DebugLevel, Output: buf})
	logger.now = fixedClock

	logger.Info("merged analysis", map[string]interface{}{"tests": 4, "id": "abc", "units": 9})

	assert.Equal(t, "2026-03-01T12:00:00Z [info] merged analysis | id=abc, tests=4, units=9\n", buf.String())
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: buf})

	logger.Warn("pointer mismatch", map[string]interface{}{"pointer": "p1"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "pointer mismatch", entry["message"])
	assert.Equal(t, map[string]interface{}{"pointer": "p1"}, entry["fields"])
}

func TestWithAddsBaseFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: buf})
	logger.now = fixedClock

	child := logger.With(Fields{"component": "storage"})
	child.Info("saved", map[string]interface{}{"id": "x"})
	logger.Info("plain", nil)

	assert.Equal(t,
		"2026-03-01T12:00:00Z [info] saved | component=storage, id=x\n"+
			"2026-03-01T12:00:00Z [info] plain\n",
		buf.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, SilentLevel, ParseLevel("quiet"))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() { logger.Info("ignored", nil) })
}
