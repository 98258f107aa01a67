// Package config loads service configuration from environment variables.
// Values are plain value objects handed to constructors; there is no
// process-wide mutable settings state.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/quaystone/threadline/internal/ingest"
	"github.com/quaystone/threadline/internal/provider"
	"github.com/quaystone/threadline/internal/thread"
)

type Config struct {
	Port        int
	DatabaseURL string
	NatsURL     string
	NatsToken   string
	LogLevel    string
	APIToken    string
	KnowledgeID string

	ExportPath string

	Provider                provider.Kind
	OllamaURL               string
	OllamaEmbedModel        string
	OllamaGenerateModel     string
	OpenAIAPIKey            string
	OpenAIEmbedModel        string
	OpenAIGenerateModel     string
	OpenRouterAPIKey        string
	OpenRouterEmbedModel    string
	OpenRouterGenerateModel string

	TimeWindowMinutes int
	MaxThreadMessages int
	MinThreadMessages int

	BatchSize      int
	RetryThreshold int

	SearchLimit int
	SearchAlpha float64
}

func Load() Config {
	return Config{
		Port:        envInt("THREADLINE_PORT", 8650),
		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("THREADLINE_API_TOKEN", ""),
		KnowledgeID: envStr("KNOWLEDGE_ID", "chat-knowledge-base"),

		ExportPath: envStr("EXPORT_PATH", "result.json"),

		Provider:                provider.Kind(envStr("EMBEDDING_PROVIDER", "ollama")),
		OllamaURL:               envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaEmbedModel:        envStr("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		OllamaGenerateModel:     envStr("OLLAMA_GENERATION_MODEL", "llama3.2"),
		OpenAIAPIKey:            envStr("OPENAI_API_KEY", ""),
		OpenAIEmbedModel:        envStr("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OpenAIGenerateModel:     envStr("OPENAI_GENERATION_MODEL", "gpt-4-turbo-preview"),
		OpenRouterAPIKey:        envStr("OPENROUTER_API_KEY", ""),
		OpenRouterEmbedModel:    envStr("OPENROUTER_EMBED_MODEL", "openai/text-embedding-3-small"),
		OpenRouterGenerateModel: envStr("OPENROUTER_GENERATION_MODEL", "anthropic/claude-3-haiku"),

		TimeWindowMinutes: envInt("THREAD_TIME_WINDOW_MINUTES", 5),
		MaxThreadMessages: envInt("THREAD_MAX_MESSAGES", 50),
		MinThreadMessages: envInt("THREAD_MIN_MESSAGES", 1),

		BatchSize:      envInt("BATCH_SIZE", 100),
		RetryThreshold: envInt("RETRY_THRESHOLD", 50),

		SearchLimit: envInt("SEARCH_LIMIT", 5),
		SearchAlpha: envFloat("SEARCH_ALPHA", 0.75),
	}
}

// Validate rejects out-of-range tuning values before anything is wired.
func (c Config) Validate() error {
	if c.TimeWindowMinutes < 1 || c.TimeWindowMinutes > 60 {
		return fmt.Errorf("THREAD_TIME_WINDOW_MINUTES must be between 1 and 60, got %d", c.TimeWindowMinutes)
	}
	if c.SearchAlpha < 0 || c.SearchAlpha > 1 {
		return fmt.Errorf("SEARCH_ALPHA must be between 0 and 1, got %g", c.SearchAlpha)
	}
	if c.MaxThreadMessages < 1 {
		return fmt.Errorf("THREAD_MAX_MESSAGES must be positive, got %d", c.MaxThreadMessages)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	return nil
}

// DetectorConfig derives the thread detector's value object.
func (c Config) DetectorConfig() thread.Config {
	return thread.Config{
		TimeWindow:  time.Duration(c.TimeWindowMinutes) * time.Minute,
		MaxMessages: c.MaxThreadMessages,
		MinMessages: c.MinThreadMessages,
	}
}

// IngestOptions derives default ingestion options.
func (c Config) IngestOptions() ingest.Options {
	return ingest.Options{
		BatchSize:      c.BatchSize,
		RetryThreshold: c.RetryThreshold,
	}
}

// ProviderSettings derives the provider connection settings.
func (c Config) ProviderSettings() provider.Settings {
	return provider.Settings{
		OllamaURL:               c.OllamaURL,
		OllamaEmbedModel:        c.OllamaEmbedModel,
		OllamaGenerateModel:     c.OllamaGenerateModel,
		OpenAIAPIKey:            c.OpenAIAPIKey,
		OpenAIEmbedModel:        c.OpenAIEmbedModel,
		OpenAIGenerateModel:     c.OpenAIGenerateModel,
		OpenRouterAPIKey:        c.OpenRouterAPIKey,
		OpenRouterEmbedModel:    c.OpenRouterEmbedModel,
		OpenRouterGenerateModel: c.OpenRouterGenerateModel,
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
