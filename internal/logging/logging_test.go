package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Format: "json", Output: &buf})
	log.Debug("hidden")
	log.Info("run finished", "analyzed", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run finished", entry["msg"])
	assert.EqualValues(t, 3, entry["analyzed"])
}

func TestNewTextNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf})
	log.Info("hello", "tag", "default")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "tag=default")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, slog.Default(), OrDefault(nil))
}
