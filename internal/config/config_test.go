package config

import (
	"testing"
	"time"

	"github.com/quaystone/threadline/internal/provider"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8650 {
		t.Errorf("port = %d, want 8650", cfg.Port)
	}
	if cfg.KnowledgeID != "chat-knowledge-base" {
		t.Errorf("knowledge id = %q", cfg.KnowledgeID)
	}
	if cfg.ExportPath != "result.json" {
		t.Errorf("export path = %q", cfg.ExportPath)
	}
	if cfg.Provider != provider.KindOllama {
		t.Errorf("provider = %q, want ollama", cfg.Provider)
	}
	if cfg.TimeWindowMinutes != 5 || cfg.MaxThreadMessages != 50 {
		t.Errorf("thread defaults = %d/%d, want 5/50", cfg.TimeWindowMinutes, cfg.MaxThreadMessages)
	}
	if cfg.SearchAlpha != 0.75 {
		t.Errorf("alpha = %g, want 0.75", cfg.SearchAlpha)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("THREADLINE_PORT", "9000")
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("THREAD_TIME_WINDOW_MINUTES", "10")
	t.Setenv("SEARCH_ALPHA", "0.5")

	cfg := Load()
	if cfg.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Port)
	}
	if cfg.Provider != provider.KindOpenAI {
		t.Errorf("provider = %q, want openai", cfg.Provider)
	}
	if cfg.TimeWindowMinutes != 10 {
		t.Errorf("window = %d, want 10", cfg.TimeWindowMinutes)
	}
	if cfg.SearchAlpha != 0.5 {
		t.Errorf("alpha = %g, want 0.5", cfg.SearchAlpha)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("THREADLINE_PORT", "not-a-port")
	t.Setenv("SEARCH_ALPHA", "lots")

	cfg := Load()
	if cfg.Port != 8650 {
		t.Errorf("malformed port should fall back, got %d", cfg.Port)
	}
	if cfg.SearchAlpha != 0.75 {
		t.Errorf("malformed alpha should fall back, got %g", cfg.SearchAlpha)
	}
}

func TestValidate(t *testing.T) {
	valid := Load()
	if err := valid.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"window too small", func(c *Config) { c.TimeWindowMinutes = 0 }},
		{"window too large", func(c *Config) { c.TimeWindowMinutes = 61 }},
		{"alpha negative", func(c *Config) { c.SearchAlpha = -0.1 }},
		{"alpha above one", func(c *Config) { c.SearchAlpha = 1.1 }},
		{"zero max messages", func(c *Config) { c.MaxThreadMessages = 0 }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestDetectorConfig(t *testing.T) {
	cfg := Load()
	cfg.TimeWindowMinutes = 7
	cfg.MaxThreadMessages = 30

	dc := cfg.DetectorConfig()
	if dc.TimeWindow != 7*time.Minute {
		t.Errorf("time window = %v, want 7m", dc.TimeWindow)
	}
	if dc.MaxMessages != 30 {
		t.Errorf("max messages = %d, want 30", dc.MaxMessages)
	}
}

func TestIngestOptions(t *testing.T) {
	cfg := Load()
	cfg.BatchSize = 25
	cfg.RetryThreshold = 10

	opts := cfg.IngestOptions()
	if opts.BatchSize != 25 || opts.RetryThreshold != 10 {
		t.Errorf("options = %+v", opts)
	}
}
