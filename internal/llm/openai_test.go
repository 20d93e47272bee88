package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipeline/internal/config"
)

func TestNewChatModel_FromDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cm, err := NewChatModel(context.Background(), config.Default().Chat)
	require.NoError(t, err)
	assert.NotNil(t, cm)
}
