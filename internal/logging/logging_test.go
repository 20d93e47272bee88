package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipeline/internal/config"
)

func TestOptions_MapsConfig(t *testing.T) {
	opt := Options(config.LogConfig{
		Engine:      "zap",
		Level:       "DEBUG",
		Format:      "json",
		OutputPaths: []string{"stderr"},
	})

	assert.Equal(t, "zap", opt.Engine)
	assert.Equal(t, "DEBUG", opt.Level)
	assert.Equal(t, "json", opt.Format)
	assert.Equal(t, []string{"stderr"}, opt.OutputPaths)
	assert.Equal(t, "rag", opt.GetInitialFields()["service.name"])
}

func TestOptions_EmptyKeepsLibraryDefaults(t *testing.T) {
	opt := Options(config.LogConfig{})
	assert.Equal(t, "slog", opt.Engine)
	assert.Equal(t, "INFO", opt.Level)
}

func TestInit_RejectsBadLevel(t *testing.T) {
	err := Init(config.LogConfig{Level: "LOUD"})
	assert.Error(t, err)
}

func TestInit_DefaultConfig(t *testing.T) {
	require.NoError(t, Init(config.Default().Log))
}
