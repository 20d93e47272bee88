package splitter

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipeline/internal/config"
)

func longText() string {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		b.WriteString("Apollo eleven landed on the Moon in July nineteen sixty nine. ")
		if i%10 == 9 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func TestSentenceSplitter_Windows(t *testing.T) {
	s := NewSentenceSplitter(2, 1)
	docs := []*schema.Document{{ID: "d", Content: "One. Two. Three. Four."}}

	out, err := s.Transform(context.Background(), docs)
	require.NoError(t, err)

	var got []string
	for _, d := range out {
		got = append(got, d.Content)
	}
	assert.Equal(t, []string{"One. Two.", "Two. Three.", "Three. Four."}, got)
}

func TestSentenceSplitter_TrailingTextKept(t *testing.T) {
	s := NewSentenceSplitter(3, 0)
	out, err := s.Transform(context.Background(), []*schema.Document{{Content: "First. Second without stop"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "First. Second without stop", out[0].Content)
}

func TestSentenceSplitter_EmptyInput(t *testing.T) {
	s := NewSentenceSplitter(3, 1)
	out, err := s.Transform(context.Background(), []*schema.Document{{Content: "   "}})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSentenceSplitter_OverlapClamped(t *testing.T) {
	s := NewSentenceSplitter(2, 5)
	out, err := s.Transform(context.Background(), []*schema.Document{{Content: "A. B. C."}})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestNew_SentenceAddsChunkIndexAndMetadata(t *testing.T) {
	tr, err := New(context.Background(), config.SplitterConfig{Type: "sentence", SentencesPerChunk: 1})
	require.NoError(t, err)

	docs := []*schema.Document{{Content: "A. B.", MetaData: map[string]any{"_source": "a.txt"}}}
	out, err := tr.Transform(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i, d := range out {
		assert.Equal(t, i, d.MetaData[ChunkIndexKey])
		assert.Equal(t, "a.txt", d.MetaData["_source"])
	}
	_, present := docs[0].MetaData[ChunkIndexKey]
	assert.False(t, present, "source metadata must not be mutated")
}

func TestNew_RecursiveIsDeterministic(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default().Splitter
	text := longText()

	count := func() int {
		tr, err := New(ctx, cfg)
		require.NoError(t, err)
		out, err := tr.Transform(ctx, []*schema.Document{{Content: text}})
		require.NoError(t, err)
		return len(out)
	}

	first := count()
	assert.Greater(t, first, 1)
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, count())
	}
}

func TestNew_RecursiveBoundsChunksAndOverlapsNeighbours(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default().Splitter

	words := make([]string, 600)
	for i := range words {
		words[i] = fmt.Sprintf("tok%04d", i)
	}
	tr, err := New(ctx, cfg)
	require.NoError(t, err)
	out, err := tr.Transform(ctx, []*schema.Document{{Content: strings.Join(words, " ")}})
	require.NoError(t, err)
	require.Greater(t, len(out), 2)

	for i, d := range out {
		assert.LessOrEqual(t, utf8.RuneCountInString(d.Content), cfg.ChunkSize, "chunk %d", i)
		if i == 0 {
			continue
		}
		// Tokens are unique, so a shared token means the chunks overlap.
		first := strings.Fields(d.Content)[0]
		assert.Contains(t, strings.Fields(out[i-1].Content), first, "chunk %d does not overlap chunk %d", i, i-1)
	}
}

func TestNew_RecursiveShortTextSingleChunk(t *testing.T) {
	ctx := context.Background()
	tr, err := New(ctx, config.Default().Splitter)
	require.NoError(t, err)

	out, err := tr.Transform(ctx, []*schema.Document{{Content: "Short text."}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Short text.", out[0].Content)
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(context.Background(), config.SplitterConfig{Type: "semantic"})
	assert.ErrorContains(t, err, "unknown splitter")
}

func TestSentences(t *testing.T) {
	assert.Equal(t, []string{"One.", "Two!", "three without stop"}, Sentences("One.  Two! three without stop"))
	assert.Equal(t, []string{"Only."}, Sentences("Only. ..."))
	assert.Empty(t, Sentences("   "))
}
