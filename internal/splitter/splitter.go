package splitter

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"

	"ragpipeline/internal/config"
)

// ChunkIndexKey is the metadata key holding a chunk's position within its source.
const ChunkIndexKey = "chunk_index"

// New builds the configured splitter. Chunk sizes are measured in runes.
func New(ctx context.Context, cfg config.SplitterConfig) (document.Transformer, error) {
	var inner document.Transformer
	switch cfg.Type {
	case "recursive", "":
		t, err := recursive.NewSplitter(ctx, &recursive.Config{
			ChunkSize:   cfg.ChunkSize,
			OverlapSize: cfg.Overlap(),
			Separators:  cfg.Separators,
			LenFunc:     utf8.RuneCountInString,
		})
		if err != nil {
			return nil, fmt.Errorf("create recursive splitter: %w", err)
		}
		inner = t
	case "sentence":
		inner = NewSentenceSplitter(cfg.SentencesPerChunk, cfg.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown splitter: %s", cfg.Type)
	}
	return WithChunkIndex(inner), nil
}

// WithChunkIndex numbers chunks per source document. Empty chunks are dropped.
func WithChunkIndex(t document.Transformer) document.Transformer {
	return &indexed{inner: t}
}

type indexed struct {
	inner document.Transformer
}

func (x *indexed) Transform(ctx context.Context, docs []*schema.Document, opts ...document.TransformerOption) ([]*schema.Document, error) {
	out := make([]*schema.Document, 0, len(docs))
	for _, d := range docs {
		parts, err := x.inner.Transform(ctx, []*schema.Document{d}, opts...)
		if err != nil {
			return nil, err
		}
		idx := 0
		for _, p := range parts {
			if p.Content == "" {
				continue
			}
			if p.MetaData == nil {
				p.MetaData = map[string]any{}
			}
			p.MetaData[ChunkIndexKey] = idx
			idx++
			out = append(out, p)
		}
	}
	return out, nil
}
