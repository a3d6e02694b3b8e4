package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach-backend/internal/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("bogus"))
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "info", "json")
	l.Debug("hidden")
	l.Info("batch finished", "sent", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "batch finished", rec["msg"])
	assert.EqualValues(t, 3, rec["sent"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger.New(&buf, "debug", "text").Debug("resolving step", "step", 2)
	assert.Contains(t, buf.String(), "resolving step")
	assert.Contains(t, buf.String(), "step=2")
}
