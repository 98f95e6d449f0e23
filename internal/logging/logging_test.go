package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wlan-sim/wlan-sim-pro/internal/config"
)

func TestSetupJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	level := Setup(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	assert.Equal(t, zerolog.DebugLevel, level)

	log.Debug().Int("station", 3).Msg("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, float64(3), line["station"])
}

func TestSetupInvalidLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	level := Setup(config.LogConfig{Level: "chatty", Format: "console"}, &buf)
	assert.Equal(t, zerolog.InfoLevel, level)
	assert.Contains(t, buf.String(), "Invalid log level")

	assert.Equal(t, zerolog.InfoLevel, Setup(config.LogConfig{}, &buf))
}
