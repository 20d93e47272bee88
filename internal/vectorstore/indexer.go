package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"ragpipeline/internal/domain"
)

const (
	sourceKey     = "_source"
	chunkIndexKey = "chunk_index"
)

var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ragpipeline/records"))

// Indexer embeds chunks and upserts them into a VectorStore.
type Indexer struct {
	store    domain.VectorStore
	embedder embedding.Embedder
}

var _ indexer.Indexer = (*Indexer)(nil)

// NewIndexer returns an eino indexer backed by store.
func NewIndexer(store domain.VectorStore, embedder embedding.Embedder) *Indexer {
	return &Indexer{store: store, embedder: embedder}
}

// Store implements indexer.Indexer. Record IDs are derived from source,
// chunk position and content, so storing the same chunks twice is a no-op
// for stores that upsert by ID.
func (x *Indexer) Store(ctx context.Context, docs []*schema.Document, opts ...indexer.Option) ([]string, error) {
	o := indexer.GetCommonOptions(&indexer.Options{Embedding: x.embedder}, opts...)
	if o.Embedding == nil {
		return nil, errors.New("indexer: no embedder configured")
	}
	if len(docs) == 0 {
		return nil, domain.ErrNoDocuments
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	if p, ok := o.Embedding.(domain.Preparer); ok {
		if err := p.Prepare(texts); err != nil {
			return nil, fmt.Errorf("prepare embedder: %w", err)
		}
	}
	vectors, err := o.Embedding.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(docs))
	}

	records := make([]domain.Record, len(docs))
	ids := make([]string, len(docs))
	for i, d := range docs {
		id := RecordID(d)
		ids[i] = id
		records[i] = domain.Record{
			ID:       id,
			Content:  d.Content,
			Metadata: copyMeta(d.MetaData),
			Vector:   vectors[i],
		}
	}
	if err := x.store.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("upsert records: %w", err)
	}
	logger.Debugw("indexed chunks", "count", len(records), "dimension", len(vectors[0]))
	return ids, nil
}

// RecordID is a UUIDv5 over the chunk's source, position and content.
func RecordID(d *schema.Document) string {
	source, _ := d.MetaData[sourceKey].(string)
	pos := ""
	if v, ok := d.MetaData[chunkIndexKey]; ok {
		switch n := v.(type) {
		case int:
			pos = strconv.Itoa(n)
		default:
			pos = fmt.Sprint(n)
		}
	}
	key := source + "\x00" + pos + "\x00" + d.Content
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}

func copyMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
