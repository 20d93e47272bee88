package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/eino/components/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipeline/internal/domain"
)

func TestTextLoader_LoadsContentAndSource(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "moon.txt")
	text := "Neil Armstrong was the first person to walk on the Moon."
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	l, err := NewTextLoader(ctx)
	require.NoError(t, err)

	docs, err := l.Load(ctx, document.Source{URI: path})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, text, docs[0].Content)
	assert.Equal(t, path, docs[0].MetaData[SourceKey])
}

func TestTextLoader_MissingFile(t *testing.T) {
	ctx := context.Background()
	l, err := NewTextLoader(ctx)
	require.NoError(t, err)

	_, err = l.Load(ctx, document.Source{URI: filepath.Join(t.TempDir(), "absent.txt")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTextLoader_Directory(t *testing.T) {
	ctx := context.Background()
	l, err := NewTextLoader(ctx)
	require.NoError(t, err)

	_, err = l.Load(ctx, document.Source{URI: t.TempDir()})
	assert.ErrorContains(t, err, "is a directory")
}
