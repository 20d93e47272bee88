package vectorstore_test

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
)

// keywordEmbedder maps text to keyword counts, one dimension per keyword.
type keywordEmbedder struct {
	keywords []string
	calls    int
	prepared []string
}

func newKeywordEmbedder(keywords ...string) *keywordEmbedder {
	return &keywordEmbedder{keywords: keywords}
}

func (e *keywordEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	e.calls++
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v := make([]float64, len(e.keywords))
		lower := strings.ToLower(t)
		for j, k := range e.keywords {
			v[j] = float64(strings.Count(lower, k))
		}
		out[i] = v
	}
	return out, nil
}

// preparingEmbedder records the corpus it was prepared with.
type preparingEmbedder struct {
	*keywordEmbedder
}

func (p preparingEmbedder) Prepare(corpus []string) error {
	p.prepared = append([]string(nil), corpus...)
	return nil
}
