package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 90 * time.Second

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds connection settings for the model server.
type Config struct {
	// BaseURL is the server root, e.g. "http://localhost:11434".
	BaseURL string

	// EmbedModel is the model used by Embed.
	EmbedModel string

	// GenerateModel is the model used by Generate.
	GenerateModel string

	// Timeout caps each call end to end. Zero means defaultTimeout.
	Timeout time.Duration
}

// Client calls an Ollama-compatible model server. It implements both
// Embedder and Generator and is safe for concurrent use.
type Client struct {
	base       string
	embedModel string
	genModel   string
	http       *http.Client
}

// New builds a Client for cfg.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("llm: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base:       base,
		embedModel: cfg.EmbedModel,
		genModel:   cfg.GenerateModel,
		http:       &http.Client{Timeout: timeout},
	}, nil
}

// Embed returns the embedding vector for text:
// POST <base>/api/embeddings {"model","prompt"}.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{Model: c.embedModel, Prompt: text}

	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.post(ctx, "/api/embeddings", payload, &out); err != nil {
		return nil, fmt.Errorf("llm: embed: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("llm: embed: server returned empty embedding")
	}
	return out.Embedding, nil
}

// Generate returns the model's answer for prompt:
// POST <base>/api/generate {"model","prompt","stream":false}.
// Streaming is disabled so the response arrives as one JSON object.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload := struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
		Stream bool   `json:"stream"`
	}{Model: c.genModel, Prompt: prompt, Stream: false}

	var out struct {
		Response string `json:"response"`
	}
	if err := c.post(ctx, "/api/generate", payload, &out); err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	return out.Response, nil
}

// post sends payload as JSON and decodes the 200 response into out.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorFrom(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorFrom builds an error from a non-200 response, including the server's
// own error message when it sent one (model-not-found is the usual case).
func errorFrom(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("HTTP %d", resp.StatusCode)
}
