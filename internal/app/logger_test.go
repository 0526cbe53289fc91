package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	t.Run("debug level passes debug records", func(t *testing.T) {
		out := &bytes.Buffer{}
		logger := newLogger("debug", "text", out)
		logger.Debug("fine detail")
		assert.Contains(t, out.String(), "fine detail")
	})

	t.Run("warn level drops info records", func(t *testing.T) {
		out := &bytes.Buffer{}
		logger := newLogger("warn", "text", out)
		logger.Info("chatter")
		logger.Warn("trouble")
		assert.NotContains(t, out.String(), "chatter")
		assert.Contains(t, out.String(), "trouble")
	})

	t.Run("unrecognized level falls back to info", func(t *testing.T) {
		out := &bytes.Buffer{}
		logger := newLogger("chatty", "text", out)
		logger.Debug("fine detail")
		logger.Info("headline")
		assert.NotContains(t, out.String(), "fine detail")
		assert.Contains(t, out.String(), "headline")
	})
}

func TestNewLogger_JSONFormat(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	logger := newLogger("info", "json", out)
	logger.Info("hello", "k", "v")

	var record map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "v", record["k"])
}
