package llm

import (
	"context"
	"fmt"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"ragpipeline/internal/config"
)

// NewChatModel creates the answering model from config.
func NewChatModel(ctx context.Context, cfg config.ChatConfig) (model.BaseChatModel, error) {
	cm, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:      cfg.APIKey(),
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat model init failed: %w", err)
	}
	return cm, nil
}
