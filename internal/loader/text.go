package loader

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
	"github.com/kart-io/logger"

	"ragpipeline/internal/domain"
)

// SourceKey is the metadata key holding the path a document came from.
const SourceKey = "_source"

// TextLoader reads a plain-text file into documents. The existence check
// runs before the eino file loader so a missing path surfaces as
// domain.ErrNotFound.
type TextLoader struct {
	inner document.Loader
}

// NewTextLoader wraps the eino file loader with its default extension parser.
func NewTextLoader(ctx context.Context) (*TextLoader, error) {
	fl, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{UseNameAsID: true})
	if err != nil {
		return nil, fmt.Errorf("create file loader: %w", err)
	}
	return &TextLoader{inner: fl}, nil
}

// Load implements document.Loader.
func (l *TextLoader) Load(ctx context.Context, src document.Source, opts ...document.LoaderOption) ([]*schema.Document, error) {
	info, err := os.Stat(src.URI)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, src.URI)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", src.URI)
	}

	docs, err := l.inner.Load(ctx, src, opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.URI, err)
	}
	for _, d := range docs {
		if d.MetaData == nil {
			d.MetaData = map[string]any{}
		}
		if _, ok := d.MetaData[SourceKey]; !ok {
			d.MetaData[SourceKey] = src.URI
		}
	}
	logger.Debugw("loaded documents", "source", src.URI, "count", len(docs), "bytes", info.Size())
	return docs, nil
}
