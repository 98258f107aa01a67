// Package provider abstracts the model backends that embed text and
// generate answers. The set of providers is closed: selection is a pure
// mapping from a configuration enum to a constructed client.
package provider

import (
	"context"
	"fmt"
	"log/slog"
)

// Kind enumerates the supported provider backends.
type Kind string

const (
	KindOllama     Kind = "ollama"
	KindOpenAI     Kind = "openai"
	KindOpenRouter Kind = "openrouter"
)

// GenerateOptions carries the generation knobs every backend supports.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Provider is the single capability interface over all backends.
type Provider interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Available(ctx context.Context) bool
	Dimension() int
	MaxTextLength() int
}

// Settings holds per-backend connection details. Only the fields of the
// selected Kind are consulted.
type Settings struct {
	OllamaURL           string
	OllamaEmbedModel    string
	OllamaGenerateModel string

	OpenAIAPIKey        string
	OpenAIEmbedModel    string
	OpenAIGenerateModel string

	OpenRouterAPIKey        string
	OpenRouterEmbedModel    string
	OpenRouterGenerateModel string
}

// New constructs the provider for the given kind.
func New(kind Kind, s Settings, logger *slog.Logger) (Provider, error) {
	switch kind {
	case KindOllama:
		return NewOllama(s.OllamaURL, s.OllamaEmbedModel, s.OllamaGenerateModel, logger), nil
	case KindOpenAI:
		return NewOpenAI(s.OpenAIAPIKey, s.OpenAIEmbedModel, s.OpenAIGenerateModel, logger), nil
	case KindOpenRouter:
		return NewOpenRouter(s.OpenRouterAPIKey, s.OpenRouterEmbedModel, s.OpenRouterGenerateModel, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q (supported: ollama, openai, openrouter)", kind)
	}
}

// truncate enforces a provider's text length limit, logging when input
// had to be cut.
func truncate(logger *slog.Logger, name, text string, max int) string {
	if len(text) <= max {
		return text
	}
	logger.Warn("text exceeds provider limit, truncating",
		"provider", name, "length", len(text), "limit", max)
	return text[:max]
}
