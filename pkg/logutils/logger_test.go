package logutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "todoboard.log")

	logger, closer, err := New("debug", file)
	require.NoError(t, err)

	logger.Info().Str("list", "abc").Msg("hello")
	closer()

	b, err := os.ReadFile(file)
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(b, &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "abc", line["list"])
	assert.Equal(t, "info", line["level"])
	assert.Contains(t, line, "time")
}

func TestNew_Level(t *testing.T) {
	logger, closer, err := New("warn", "")
	require.NoError(t, err)
	defer closer()
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger, closer2, err := New("", "")
	require.NoError(t, err)
	defer closer2()
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New("loud", "")
	assert.Error(t, err)
}
