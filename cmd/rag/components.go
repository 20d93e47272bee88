package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"ragpipeline/internal/config"
	"ragpipeline/internal/domain"
	"ragpipeline/internal/embedding/openai"
	"ragpipeline/internal/embedding/tfidf"
	"ragpipeline/internal/llm"
	"ragpipeline/internal/loader"
	"ragpipeline/internal/service"
	"ragpipeline/internal/splitter"
	"ragpipeline/internal/vectorstore/memory"
	"ragpipeline/internal/vectorstore/milvus"
	"ragpipeline/internal/vectorstore/qdrant"
	"ragpipeline/internal/vectorstore/sqlite"
)

// buildPipeline assembles the configured components.
func buildPipeline(ctx context.Context, cfg *config.AppConfig, out io.Writer) (*service.Pipeline, error) {
	ld, err := loader.NewTextLoader(ctx)
	if err != nil {
		return nil, err
	}

	sp, err := splitter.New(ctx, cfg.Splitter)
	if err != nil {
		return nil, err
	}

	emb, err := newEmbedder(ctx, cfg.Embedder)
	if err != nil {
		return nil, err
	}

	cm, err := llm.NewChatModel(ctx, cfg.Chat)
	if err != nil {
		return nil, err
	}

	return service.New(cfg.Input.Path, service.Components{
		Loader:       ld,
		Splitter:     sp,
		Embedder:     emb,
		OpenStore:    storeOpener(cfg.VectorStore),
		ChatModel:    cm,
		SystemPrompt: cfg.Prompt.System,
		TopK:         cfg.Retriever.TopK,
		Out:          out,
	}), nil
}

func newEmbedder(ctx context.Context, cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewEmbedder(ctx, *cfg.OpenAI, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func storeOpener(cfg config.VectorStoreConfig) service.StoreOpener {
	switch cfg.Type {
	case "memory":
		return func(context.Context) (domain.VectorStore, error) {
			return memory.NewStorage(), nil
		}
	case "qdrant":
		return func(context.Context) (domain.VectorStore, error) {
			if cfg.Qdrant == nil {
				return nil, fmt.Errorf("qdrant config missing")
			}
			return qdrant.NewStorage(qdrant.Config{
				URL:        cfg.Qdrant.URL,
				APIKey:     cfg.Qdrant.APIKey,
				Collection: cfg.Collection,
				Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
			}), nil
		}
	case "milvus":
		return func(ctx context.Context) (domain.VectorStore, error) {
			if cfg.Milvus == nil {
				return nil, fmt.Errorf("milvus config missing")
			}
			return milvus.Open(ctx, milvus.Config{
				Address:    cfg.Milvus.Address,
				Database:   cfg.Milvus.Database,
				Username:   cfg.Milvus.Username,
				Password:   cfg.Milvus.Password,
				Collection: cfg.Collection,
			})
		}
	default:
		return func(context.Context) (domain.VectorStore, error) {
			return sqlite.Open(cfg.PersistDirectory, cfg.Collection)
		}
	}
}
