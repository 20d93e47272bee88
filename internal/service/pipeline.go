// Package service sequences the RAG steps: load, split, index, answer.
package service

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kart-io/logger"

	"ragpipeline/internal/answer"
	"ragpipeline/internal/domain"
	"ragpipeline/internal/vectorstore"
)

// StoreOpener returns a fresh handle on the vector store.
type StoreOpener func(ctx context.Context) (domain.VectorStore, error)

// Components are the delegated parts of a Pipeline.
type Components struct {
	Loader       document.Loader
	Splitter     document.Transformer
	Embedder     embedding.Embedder
	OpenStore    StoreOpener
	ChatModel    model.BaseChatModel
	SystemPrompt string
	TopK         int
	// Out receives the progress lines printed by Run. Nil discards them.
	Out io.Writer
}

// Pipeline holds the configuration for one input file and, after Index,
// the open store handle.
type Pipeline struct {
	c      Components
	source string
	store  domain.VectorStore
}

// New returns a pipeline reading from source.
func New(source string, c Components) *Pipeline {
	if c.Out == nil {
		c.Out = io.Discard
	}
	if c.TopK <= 0 {
		c.TopK = 4
	}
	return &Pipeline{c: c, source: source}
}

// Load reads the source file.
func (p *Pipeline) Load(ctx context.Context) ([]*schema.Document, error) {
	docs, err := p.c.Loader.Load(ctx, document.Source{URI: p.source})
	if err != nil {
		return nil, domain.Wrap("load", err)
	}
	return docs, nil
}

// Split chunks docs with the configured splitter.
func (p *Pipeline) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	if len(docs) == 0 {
		return nil, domain.Wrap("split", domain.ErrNoDocuments)
	}
	chunks, err := p.c.Splitter.Transform(ctx, docs)
	if err != nil {
		return nil, domain.Wrap("split", err)
	}
	return chunks, nil
}

// Index opens a fresh store handle and embeds chunks into it. Any previous
// handle is closed first.
func (p *Pipeline) Index(ctx context.Context, chunks []*schema.Document) error {
	if err := p.Close(); err != nil {
		logger.Warnw("closing previous vector store", "error", err)
	}
	store, err := p.c.OpenStore(ctx)
	if err != nil {
		return domain.Wrap("index", fmt.Errorf("open vector store: %w", err))
	}
	if _, err := vectorstore.NewIndexer(store, p.c.Embedder).Store(ctx, chunks); err != nil {
		_ = store.Close()
		return domain.Wrap("index", err)
	}
	p.store = store
	n, err := store.Count(ctx)
	if err != nil {
		logger.Warnw("counting records", "error", err)
	}
	logger.Infow("vector store ready", "chunks", len(chunks), "records", n)
	return nil
}

// Answer returns the model's answer to query.
func (p *Pipeline) Answer(ctx context.Context, query string) (string, error) {
	resp, err := p.Ask(ctx, query)
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// Ask is Answer with the retrieved context attached.
func (p *Pipeline) Ask(ctx context.Context, query string) (*answer.Response, error) {
	a, err := p.answerer(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := a.Respond(ctx, query)
	if err != nil {
		return nil, domain.Wrap("answer", err)
	}
	return resp, nil
}

func (p *Pipeline) answerer(ctx context.Context) (*answer.Answerer, error) {
	if p.store == nil {
		return nil, domain.Wrap("answer", domain.ErrStoreNotInitialized)
	}
	r := vectorstore.NewRetriever(p.store, p.c.Embedder, p.c.TopK)
	a, err := answer.New(ctx, r, p.c.ChatModel, p.c.SystemPrompt)
	if err != nil {
		return nil, domain.Wrap("answer", err)
	}
	return a, nil
}

// Prepare runs Load, Split and Index, printing progress to Out.
func (p *Pipeline) Prepare(ctx context.Context) error {
	p.printf("Loading documents...\n")
	docs, err := p.Load(ctx)
	if err != nil {
		return err
	}
	p.printf("Loaded %d documents.\n", len(docs))

	p.printf("Splitting documents...\n")
	chunks, err := p.Split(ctx, docs)
	if err != nil {
		return err
	}
	p.printf("Split into %d chunks.\n", len(chunks))

	p.printf("Creating vector store...\n")
	return p.Index(ctx, chunks)
}

// Run executes the whole pipeline for query and returns the answer text.
func (p *Pipeline) Run(ctx context.Context, query string) (string, error) {
	if err := p.Prepare(ctx); err != nil {
		return "", err
	}

	p.printf("Creating QA chain...\n")
	a, err := p.answerer(ctx)
	if err != nil {
		return "", err
	}

	p.printf("Invoking chain...\n")
	resp, err := a.Respond(ctx, query)
	if err != nil {
		return "", domain.Wrap("answer", err)
	}
	return resp.Answer, nil
}

// Close releases the store handle, if any.
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	return err
}

func (p *Pipeline) printf(format string, args ...any) {
	fmt.Fprintf(p.c.Out, format, args...)
}
