package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONIsDefault(t *testing.T) {
	var buf bytes.Buffer
	newWithWriter(&buf, "", "").Info("hello", "session", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "points-dashboard", line["service"])
	require.Equal(t, "abc", line["session"])
	require.NotContains(t, line, slog.SourceKey)
}

func TestTextFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "warn", "TEXT")
	log.Info("dropped")
	require.Zero(t, buf.Len())

	log.Warn("kept")
	require.Contains(t, buf.String(), "msg=kept")
	require.Contains(t, buf.String(), "service=points-dashboard")
}

func TestDebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	newWithWriter(&buf, "debug", "json").Debug("trace")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Contains(t, line, slog.SourceKey)
}
