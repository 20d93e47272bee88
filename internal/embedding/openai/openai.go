package openai

import (
	"context"
	"fmt"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"ragpipeline/internal/config"
)

// NewEmbedder creates an OpenAI-compatible embedder. A missing API key is
// not an error here; requests fail downstream instead.
func NewEmbedder(ctx context.Context, cfg config.OpenAIConfig, dimensions int) (embedding.Embedder, error) {
	ec := &einoopenai.EmbeddingConfig{
		APIKey:  cfg.APIKey(),
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
	}
	if dimensions > 0 {
		ec.Dimensions = &dimensions
	}
	emb, err := einoopenai.NewEmbedder(ctx, ec)
	if err != nil {
		return nil, fmt.Errorf("openai embedder init failed: %w", err)
	}
	return emb, nil
}
