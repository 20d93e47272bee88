// Package answer turns retrieved chunks and a question into a model answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/kart-io/logger"
)

// Response carries the input, the retrieved context and the answer text.
type Response struct {
	Input   string
	Context []*schema.Document
	Answer  string
}

// Answerer retrieves context for a question and stuffs it into the prompt.
type Answerer struct {
	retriever retriever.Retriever
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// New compiles the prompt → model chain. systemPrompt must reference
// {context}; the question is sent as the user message.
func New(ctx context.Context, r retriever.Retriever, cm model.BaseChatModel, systemPrompt string) (*Answerer, error) {
	if r == nil || cm == nil {
		return nil, errors.New("answer: retriever and chat model are required")
	}
	tpl := prompt.FromMessages(schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)
	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(tpl).
		AppendChatModel(cm).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile answer chain: %w", err)
	}
	return &Answerer{retriever: r, chain: chain}, nil
}

// Respond answers query. The model's text is returned unchanged.
func (a *Answerer) Respond(ctx context.Context, query string) (*Response, error) {
	docs, err := a.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	logger.Debugw("answering", "query", query, "context_chunks", len(docs))

	msg, err := a.chain.Invoke(ctx, map[string]any{
		"context": FormatDocuments(docs),
		"input":   query,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke chain: %w", err)
	}
	return &Response{Input: query, Context: docs, Answer: msg.Content}, nil
}

// FormatDocuments joins chunk contents with blank lines.
func FormatDocuments(docs []*schema.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}
