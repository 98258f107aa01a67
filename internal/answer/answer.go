// Package answer assembles retrieval-augmented prompts over stored
// threads and asks the generation provider for an answer.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quaystone/threadline/internal/provider"
	"github.com/quaystone/threadline/internal/store"
)

const systemInstruction = `You answer questions about an archived group chat.
Use only the conversation excerpts below. If they do not contain the
answer, say so instead of guessing. Cite participants by name.`

// Searcher is the retrieval slice of the store the answerer needs.
type Searcher interface {
	HybridSearch(ctx context.Context, query string, limit int, alpha float64) ([]store.SearchResult, error)
}

// Generator is the generation slice of the provider interface.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts provider.GenerateOptions) (string, error)
}

// Answer is a generated response plus the threads it was grounded on.
type Answer struct {
	Text    string               `json:"answer"`
	Sources []store.SearchResult `json:"sources"`
}

type Answerer struct {
	search Searcher
	llm    Generator
	alpha  float64
	logger *slog.Logger
}

func New(search Searcher, llm Generator, alpha float64, logger *slog.Logger) *Answerer {
	return &Answerer{search: search, llm: llm, alpha: alpha, logger: logger}
}

// Ask retrieves the topK most relevant threads and generates an answer
// grounded on them.
func (a *Answerer) Ask(ctx context.Context, query string, topK int) (*Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if topK <= 0 {
		topK = 5
	}

	results, err := a.search.HybridSearch(ctx, query, topK, a.alpha)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(results) == 0 {
		return &Answer{Text: "No relevant conversations were found for this question."}, nil
	}

	a.logger.Info("answering query", "query_len", len(query), "sources", len(results))

	text, err := a.llm.Generate(ctx, BuildPrompt(query, results), provider.GenerateOptions{
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	return &Answer{Text: text, Sources: results}, nil
}

// BuildPrompt renders the retrieved threads into a single generation
// prompt, newest context last.
func BuildPrompt(query string, results []store.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(systemInstruction)
	sb.WriteString("\n\n")

	for i, r := range results {
		fmt.Fprintf(&sb, "Excerpt %d (thread with %s, %d messages, %s):\n",
			i+1, strings.Join(r.Participants, ", "), r.MessageCount,
			r.Timestamp.Format("2006-01-02 15:04"))
		sb.WriteString(r.Content)
		sb.WriteString("\n\n")
	}

	fmt.Fprintf(&sb, "Question: %s\nAnswer:", query)
	return sb.String()
}
