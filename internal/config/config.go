package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultSystemPrompt = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer " +
	"the question. If you don't know the answer, say that you " +
	"don't know. Use three sentences maximum and keep the " +
	"answer concise." +
	"\n\n" +
	"{context}"

// InputConfig points at the text file to index.
type InputConfig struct {
	Path string `yaml:"path"`
}

// SplitterConfig configures how documents are split into chunks.
type SplitterConfig struct {
	Type              string   `yaml:"type"`
	ChunkSize         int      `yaml:"chunk_size"`
	ChunkOverlap      *int     `yaml:"chunk_overlap,omitempty"`
	Separators        []string `yaml:"separators,omitempty"`
	SentencesPerChunk int      `yaml:"sentences_per_chunk"`
	OverlapSentences  int      `yaml:"overlap_sentences"`
}

// Overlap returns the configured chunk overlap; nil means none.
func (c SplitterConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return 0
	}
	return *c.ChunkOverlap
}

// OpenAIConfig holds connection settings shared by the OpenAI-compatible
// embedder and chat model.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// APIKey resolves the key from the configured environment variable.
func (c OpenAIConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type       string        `yaml:"type"`
	Dimensions int           `yaml:"dimensions,omitempty"`
	OpenAI     *OpenAIConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type             string        `yaml:"type"`
	PersistDirectory string        `yaml:"persist_directory"`
	Collection       string        `yaml:"collection"`
	Qdrant           *QdrantConfig `yaml:"qdrant,omitempty"`
	Milvus           *MilvusConfig `yaml:"milvus,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// MilvusConfig contains connection details for a Milvus vector store.
type MilvusConfig struct {
	Address  string `yaml:"address"`
	Database string `yaml:"database"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// RetrieverConfig bounds how much context goes into the prompt.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// ChatConfig configures the answering language model.
type ChatConfig struct {
	OpenAIConfig `yaml:",inline"`
	Temperature  *float32 `yaml:"temperature,omitempty"`
}

// PromptConfig holds the system prompt; it must contain {context}.
type PromptConfig struct {
	System string `yaml:"system"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Engine      string   `yaml:"engine"`
	Level       string   `yaml:"level"`
	Format      string   `yaml:"format"`
	OutputPaths []string `yaml:"output_paths"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Input       InputConfig       `yaml:"input"`
	Query       string            `yaml:"query"`
	Splitter    SplitterConfig    `yaml:"splitter"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retriever   RetrieverConfig   `yaml:"retriever"`
	Chat        ChatConfig        `yaml:"chat"`
	Prompt      PromptConfig      `yaml:"prompt"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, defaults are returned along with an empty path.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := DefaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	return Default(), "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultUserConfigPath is ~/.config/rag/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Input:       InputConfig{Path: "sample_data.txt"},
		Query:       "Who was the first person to step on the moon?",
		Splitter:    SplitterConfig{Type: "recursive"},
		Embedder:    EmbedderConfig{Type: "openai"},
		VectorStore: VectorStoreConfig{Type: "sqlite"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

// Validate rejects unknown component types.
func (c *AppConfig) Validate() error {
	switch c.Splitter.Type {
	case "recursive", "sentence":
	default:
		return fmt.Errorf("unknown splitter: %s", c.Splitter.Type)
	}
	if c.Splitter.Type == "recursive" {
		if o := c.Splitter.Overlap(); o < 0 || o >= c.Splitter.ChunkSize {
			return fmt.Errorf("chunk_overlap (%d) must be in [0, chunk_size (%d))", o, c.Splitter.ChunkSize)
		}
	}
	switch c.Embedder.Type {
	case "openai", "tfidf":
	default:
		return fmt.Errorf("unknown embedder: %s", c.Embedder.Type)
	}
	switch c.VectorStore.Type {
	case "sqlite", "memory":
	case "qdrant":
		if c.VectorStore.Qdrant == nil || c.VectorStore.Qdrant.URL == "" {
			return errors.New("qdrant config missing")
		}
	case "milvus":
		if c.VectorStore.Milvus == nil || c.VectorStore.Milvus.Address == "" {
			return errors.New("milvus config missing")
		}
	default:
		return fmt.Errorf("unknown vector store: %s", c.VectorStore.Type)
	}
	return nil
}

func applyOpenAIDefaults(c *OpenAIConfig, model string) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 60
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Splitter.Type == "" {
		cfg.Splitter.Type = "recursive"
	}
	if cfg.Splitter.ChunkSize == 0 {
		cfg.Splitter.ChunkSize = 1000
	}
	// An explicit chunk_overlap, including 0, is kept.
	if cfg.Splitter.ChunkOverlap == nil {
		overlap := 200
		if overlap >= cfg.Splitter.ChunkSize {
			overlap = cfg.Splitter.ChunkSize / 5
		}
		cfg.Splitter.ChunkOverlap = &overlap
	}
	if len(cfg.Splitter.Separators) == 0 {
		cfg.Splitter.Separators = []string{"\n\n", "\n", " "}
	}
	if cfg.Splitter.SentencesPerChunk == 0 {
		cfg.Splitter.SentencesPerChunk = 5
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small")
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.PersistDirectory == "" {
		cfg.VectorStore.PersistDirectory = "./rag_db"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "documents"
	}
	if q := cfg.VectorStore.Qdrant; q != nil && q.TimeoutSecs == 0 {
		q.TimeoutSecs = 15
	}
	if m := cfg.VectorStore.Milvus; m != nil && m.Database == "" {
		m.Database = "default"
	}

	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 4
	}
	applyOpenAIDefaults(&cfg.Chat.OpenAIConfig, "gpt-3.5-turbo")
	if cfg.Prompt.System == "" {
		cfg.Prompt.System = defaultSystemPrompt
	}

	if cfg.Log.Engine == "" {
		cfg.Log.Engine = "slog"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "WARN"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stderr"}
	}
}
