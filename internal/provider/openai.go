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

// Roughly the 8191-token embedding input limit expressed in characters.
const openAIMaxTextLength = 32000

var openAIDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAI talks to the OpenAI API, or any OpenAI-compatible endpoint.
// OpenRouter reuses this client with a different base URL and headers.
type OpenAI struct {
	name          string
	baseURL       string
	apiKey        string
	embedModel    string
	generateModel string
	extraHeaders  map[string]string
	client        *http.Client
	logger        *slog.Logger
}

func NewOpenAI(apiKey, embedModel, generateModel string, logger *slog.Logger) *OpenAI {
	return &OpenAI{
		name:          "openai",
		baseURL:       "https://api.openai.com/v1",
		apiKey:        apiKey,
		embedModel:    embedModel,
		generateModel: generateModel,
		client:        &http.Client{Timeout: 120 * time.Second},
		logger:        logger,
	}
}

// NewOpenRouter builds an OpenAI-compatible client pointed at OpenRouter.
func NewOpenRouter(apiKey, embedModel, generateModel string, logger *slog.Logger) *OpenAI {
	return &OpenAI{
		name:          "openrouter",
		baseURL:       "https://openrouter.ai/api/v1",
		apiKey:        apiKey,
		embedModel:    embedModel,
		generateModel: generateModel,
		extraHeaders: map[string]string{
			"HTTP-Referer": "https://github.com/quaystone/threadline",
			"X-Title":      "threadline",
		},
		client: &http.Client{Timeout: 120 * time.Second},
		logger: logger,
	}
}

func (c *OpenAI) Name() string { return c.name }

func (c *OpenAI) Dimension() int {
	for model, dim := range openAIDimensions {
		if strings.Contains(c.embedModel, model) {
			return dim
		}
	}
	return 1536
}

func (c *OpenAI) MaxTextLength() int { return openAIMaxTextLength }

func (c *OpenAI) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = truncate(c.logger, c.name, t, c.MaxTextLength())
	}

	var resp struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	err := c.post(ctx, "/embeddings", map[string]any{
		"model": c.embedModel,
		"input": input,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%s embed: %w", c.name, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%s embed: got %d embeddings for %d inputs", c.name, len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%s embed: embedding index %d out of range", c.name, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (c *OpenAI) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	payload := map[string]any{
		"model": c.generateModel,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	if opts.Temperature > 0 {
		payload["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.post(ctx, "/chat/completions", payload, &resp); err != nil {
		return "", fmt.Errorf("%s generate: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s generate: empty choices", c.name)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAI) Available(ctx context.Context) bool {
	if c.apiKey == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAI) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range c.extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp apiError
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("api error %d: %s: %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
