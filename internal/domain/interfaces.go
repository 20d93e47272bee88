package domain

import "context"

// Record is a single embedded chunk as held by a vector store.
type Record struct {
	ID       string
	Content  string
	Metadata map[string]any
	Vector   []float64
}

// SearchResult represents a matching record with a relevance score.
type SearchResult struct {
	Record Record
	Score  float64
}

// VectorStore persists vectors and supports similarity search.
// Upsert must be idempotent per Record.ID.
type VectorStore interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Preparer is implemented by embedders that must see the corpus before
// they can embed (e.g. TF-IDF).
type Preparer interface {
	Prepare(corpus []string) error
}
