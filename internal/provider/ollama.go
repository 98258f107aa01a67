package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const ollamaMaxTextLength = 8192

// ollamaDimensions maps known local embedding models to their vector
// width. Unknown models default to 768.
var ollamaDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// Ollama talks to a local Ollama server for embeddings and generation.
type Ollama struct {
	baseURL       string
	embedModel    string
	generateModel string
	client        *http.Client
	logger        *slog.Logger
}

func NewOllama(baseURL, embedModel, generateModel string, logger *slog.Logger) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		baseURL:       strings.TrimRight(baseURL, "/"),
		embedModel:    embedModel,
		generateModel: generateModel,
		client:        &http.Client{Timeout: 120 * time.Second},
		logger:        logger,
	}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Dimension() int {
	if d, ok := ollamaDimensions[o.embedModel]; ok {
		return d
	}
	return 768
}

func (o *Ollama) MaxTextLength() int { return ollamaMaxTextLength }

func (o *Ollama) Embed(ctx context.Context, text string) ([]float64, error) {
	text = truncate(o.logger, o.Name(), text, o.MaxTextLength())

	var resp struct {
		Embedding []float64 `json:"embedding"`
	}
	err := o.post(ctx, "/api/embeddings", map[string]any{
		"model":  o.embedModel,
		"prompt": text,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embed: empty embedding for model %s", o.embedModel)
	}
	return resp.Embedding, nil
}

func (o *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	// The embeddings endpoint is single-text; batch sequentially.
	out := make([][]float64, 0, len(texts))
	for i, t := range texts {
		vec, err := o.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		out = append(out, vec)
	}
	return out, nil
}

func (o *Ollama) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	options := map[string]any{}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}

	var resp struct {
		Response string `json:"response"`
	}
	err := o.post(ctx, "/api/generate", map[string]any{
		"model":   o.generateModel,
		"prompt":  prompt,
		"stream":  false,
		"options": options,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return resp.Response, nil
}

func (o *Ollama) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (o *Ollama) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
