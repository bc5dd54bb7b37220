package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false, zerolog.InfoLevel).With().Str("component", "test").Logger()

	l.Debug().Msg("hidden")
	l.Info().Int("items", 3).Msg("collected")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "collected", line["message"])
	assert.Equal(t, "test", line["component"])
	assert.EqualValues(t, 3, line["items"])
}

func TestNew_Development(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true, zerolog.DebugLevel)
	l.Debug().Msg("hello")
	assert.Contains(t, buf.String(), "| hello |")
}

func TestSetLevel(t *testing.T) {
	defer func() { level = zerolog.InfoLevel }()

	require.NoError(t, SetLevel("trace"))
	assert.Equal(t, zerolog.TraceLevel, level)
	require.NoError(t, SetLevel(""))
	assert.Error(t, SetLevel("loud"))
}
