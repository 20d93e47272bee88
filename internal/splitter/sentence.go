package splitter

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
)

// SentenceSplitter splits text into sentence windows with overlap.
type SentenceSplitter struct {
	sentencesPerChunk int
	overlapSentences  int
}

var sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// Sentences segments text on terminal punctuation. Trailing text without
// closing punctuation is kept as a final sentence if it holds a word.
func Sentences(text string) []string {
	sentences := sentenceRe.FindAllString(text, -1)
	if tail := strings.TrimSpace(sentenceRe.ReplaceAllString(text, "")); strings.IndexFunc(tail, isWordRune) >= 0 {
		sentences = append(sentences, tail)
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	return sentences
}

// NewSentenceSplitter clamps overlap so every window advances.
func NewSentenceSplitter(sentencesPerChunk, overlapSentences int) *SentenceSplitter {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceSplitter{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
	}
}

// Transform implements document.Transformer.
func (s *SentenceSplitter) Transform(ctx context.Context, docs []*schema.Document, opts ...document.TransformerOption) ([]*schema.Document, error) {
	var out []*schema.Document
	for _, d := range docs {
		for _, text := range s.windows(d.Content) {
			out = append(out, &schema.Document{
				ID:       d.ID,
				Content:  text,
				MetaData: copyMeta(d.MetaData),
			})
		}
	}
	return out, nil
}

func (s *SentenceSplitter) windows(content string) []string {
	sentences := Sentences(content)
	if len(sentences) == 0 {
		return nil
	}
	var chunks []string
	i := 0
	for i < len(sentences) {
		end := i + s.sentencesPerChunk
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
		i = end - s.overlapSentences
	}
	return chunks
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func copyMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
