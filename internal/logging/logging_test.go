package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(NewWithWriter(&buf, "warn", "json"), "cleanup")

	log.Info().Msg("hidden")
	log.Warn().Str("url", "mem://a").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "cleanup", entry["component"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud", "json")
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
	log.Info().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
