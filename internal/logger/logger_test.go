package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"matchgogo/backend/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(&logger.Config{Level: "debug", Format: logger.FormatJSON, Component: "bot", Output: &buf})

	logger.Debug("hello", "chat_id", 42)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "bot", rec["component"])
	assert.Equal(t, float64(42), rec["chat_id"])
}

func TestInit_LevelFiltersLowerRecords(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(&logger.Config{Level: "warn", Format: logger.FormatText, Output: &buf})

	logger.Info("skipped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "skipped")
	assert.True(t, strings.Contains(out, "kept"))
}

func TestL_NeverNil(t *testing.T) {
	assert.NotNil(t, logger.L())
	assert.NotNil(t, logger.With("k", "v"))
}
