package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf})

	log.WithComponent("detector").Info().Str("path", "/in/a.png").Msg("new file")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "new file", entry["message"])
	assert.Equal(t, "detector", entry["component"])
	assert.Equal(t, "/in/a.png", entry["path"])
	assert.Equal(t, "screenshot-wizard", entry["service"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json", Output: &buf})

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Error().Err(errors.New("boom")).Msg("shown")
	assert.Contains(t, buf.String(), "boom")
}

func TestNop(t *testing.T) {
	// must not panic
	Nop().Error().Str("k", "v").Msg("discarded")
}
