package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/kart-io/logger"

	"ragpipeline/internal/domain"
)

// Retriever embeds a query and delegates the similarity search to the store.
type Retriever struct {
	store    domain.VectorStore
	embedder embedding.Embedder
	topK     int
}

var _ retriever.Retriever = (*Retriever)(nil)

// NewRetriever returns an eino retriever over store.
func NewRetriever(store domain.VectorStore, embedder embedding.Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{store: store, embedder: embedder, topK: topK}
}

// Retrieve implements retriever.Retriever.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	topK := r.topK
	o := retriever.GetCommonOptions(&retriever.Options{TopK: &topK, Embedding: r.embedder}, opts...)
	if o.Embedding == nil {
		return nil, errors.New("retriever: no embedder configured")
	}

	vectors, err := o.Embedding.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("invalid return length of vector, got=%d, expected=1", len(vectors))
	}

	k := r.topK
	if o.TopK != nil {
		k = *o.TopK
	}
	results, err := r.store.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	docs := make([]*schema.Document, 0, len(results))
	for _, res := range results {
		if o.ScoreThreshold != nil && res.Score < *o.ScoreThreshold {
			continue
		}
		d := &schema.Document{
			ID:       res.Record.ID,
			Content:  res.Record.Content,
			MetaData: copyMeta(res.Record.Metadata),
		}
		docs = append(docs, d.WithScore(res.Score))
	}
	logger.Debugw("retrieved chunks", "query", query, "count", len(docs))
	return docs, nil
}
