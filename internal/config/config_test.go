package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sample_data.txt", cfg.Input.Path)
	assert.Equal(t, "recursive", cfg.Splitter.Type)
	assert.Equal(t, 1000, cfg.Splitter.ChunkSize)
	assert.Equal(t, 200, cfg.Splitter.Overlap())
	assert.Equal(t, "sqlite", cfg.VectorStore.Type)
	assert.Equal(t, "./rag_db", cfg.VectorStore.PersistDirectory)
	assert.Equal(t, 4, cfg.Retriever.TopK)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Chat.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Chat.APIKeyEnv)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	assert.Contains(t, cfg.Prompt.System, "{context}")
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
input:
  path: notes.txt
splitter:
  chunk_size: 400
  chunk_overlap: 50
embedder:
  type: tfidf
vector_store:
  type: memory
chat:
  model: gpt-4o-mini
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "notes.txt", cfg.Input.Path)
	assert.Equal(t, 400, cfg.Splitter.ChunkSize)
	assert.Equal(t, 50, cfg.Splitter.Overlap())
	assert.Equal(t, "recursive", cfg.Splitter.Type)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Nil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, "gpt-4o-mini", cfg.Chat.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Chat.BaseURL)
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector_store:\n  type: chroma\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown vector store: chroma")
}

func TestLoad_RejectsOverlapNotSmallerThanSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("splitter:\n  chunk_size: 100\n  chunk_overlap: 100\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "chunk_overlap")
}

func TestLoad_ChunkSizeOnlyDerivesSmallerOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("splitter:\n  chunk_size: 100\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Splitter.ChunkSize)
	assert.Equal(t, 20, cfg.Splitter.Overlap())
}

func TestLoad_ExplicitZeroOverlapKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("splitter:\n  chunk_size: 500\n  chunk_overlap: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Splitter.ChunkOverlap)
	assert.Equal(t, 0, cfg.Splitter.Overlap())
}

func TestValidate_OverlapOnlyCheckedForRecursive(t *testing.T) {
	cfg := Default()
	big := 5000
	cfg.Splitter.ChunkOverlap = &big
	assert.ErrorContains(t, cfg.Validate(), "chunk_overlap")

	cfg.Splitter.Type = "sentence"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RemoteStoresNeedConnection(t *testing.T) {
	cfg := Default()
	cfg.VectorStore.Type = "qdrant"
	assert.ErrorContains(t, cfg.Validate(), "qdrant config missing")

	cfg.VectorStore.Type = "milvus"
	assert.ErrorContains(t, cfg.Validate(), "milvus config missing")

	cfg.VectorStore.Milvus = &MilvusConfig{Address: "localhost:19530"}
	assert.NoError(t, cfg.Validate())
}

func TestSave_WritesLoadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Retriever.TopK = 7

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Retriever.TopK)
	assert.Equal(t, cfg.Prompt.System, loaded.Prompt.System)
}

func TestOpenAIConfig_APIKeyFromEnv(t *testing.T) {
	t.Setenv("RAG_TEST_KEY", "sk-test")
	c := OpenAIConfig{APIKeyEnv: "RAG_TEST_KEY"}
	assert.Equal(t, "sk-test", c.APIKey())
}
