package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer, lvl zerolog.Level) *Logger {
	return New(Config{Level: lvl, Component: ComponentMonth, Format: "json", Writer: buf})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &out))
	return out
}

func TestLoggerWritesComponentAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newBufferLogger(buf, zerolog.InfoLevel)

	l.Info("month created", FieldMonthID, 7, FieldError, errors.New("boom"))

	entry := decodeLine(t, buf)
	assert.Equal(t, "month created", entry["message"])
	assert.Equal(t, ComponentMonth, entry[FieldComponent])
	assert.Equal(t, float64(7), entry[FieldMonthID])
	assert.Equal(t, "boom", entry[FieldError])
	assert.Equal(t, "info", entry["level"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newBufferLogger(buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newBufferLogger(buf, zerolog.InfoLevel).WithComponent(ComponentCache)

	assert.Equal(t, ComponentCache, l.Component())
	l.Warn("cache get failed")

	entry := decodeLine(t, buf)
	assert.Equal(t, ComponentCache, entry[FieldComponent])
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newBufferLogger(buf, zerolog.InfoLevel).With(FieldOperation, OpMaterialize)

	l.Error("failed")
	entry := decodeLine(t, buf)
	assert.Equal(t, OpMaterialize, entry[FieldOperation])
	assert.Equal(t, "error", entry["level"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("verbose"))
}

func TestContextRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	l := newBufferLogger(buf, zerolog.InfoLevel)

	got := FromContext(WithContext(context.Background(), l))
	assert.Same(t, l, got)

	fallback := FromContext(context.Background())
	require.NotNil(t, fallback)
	assert.Equal(t, "unknown", fallback.Component())
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithOperation(OpCreate).WithMonth(3, 5, 2025).WithError(nil)
	assert.Len(t, f.ToSlice(), 8)
	assert.NotContains(t, f, FieldError)
}
