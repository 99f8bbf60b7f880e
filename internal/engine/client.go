package engine

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

// Client communicates with a local llama-server instance over its
// OpenAI-compatible HTTP API.
type Client struct {
	baseURL    string
	model      string
	verbose    bool
	httpClient *http.Client
}

// NewClient creates a Client targeting the llama-server at baseURL. The model
// name is echoed into completion requests; llama-server ignores it but other
// OpenAI-compatible backends route on it.
func NewClient(baseURL, model string, verbose bool) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		verbose: verbose,
		httpClient: &http.Client{
			// Completions are CPU/GPU-bound and can take minutes on large
			// models; cancellation is the caller's context.
			Timeout: 0,
		},
	}
}

// IsRunning returns true if the server responds to GET /health with 200.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// modelsResponse mirrors the JSON returned by GET /v1/models.
type modelsResponse struct {
	Data []modelEntry `json:"data"`
}

type modelEntry struct {
	ID string `json:"id"`
}

// ModelInfo returns the identifier of the first model the server reports.
func (c *Client) ModelInfo(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting model info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var models modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(models.Data) == 0 {
		return "", fmt.Errorf("server reports no loaded models")
	}
	return models.Data[0].ID, nil
}

// completionRequest is the JSON body for POST /v1/chat/completions.
type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	TopP        float64   `json:"top_p"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// completionResponse is the JSON returned by POST /v1/chat/completions
// (non-streaming).
type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete sends the message list to the server and returns the generated
// assistant text. A 2xx response whose body does not match the expected
// choices shape is degraded to the trimmed raw body rather than treated as a
// failure.
func (c *Client) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	cr := completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		MaxTokens:   opts.MaxTokens,
		Stream:      false,
	}

	body, err := json.Marshal(cr)
	if err != nil {
		return "", err
	}

	if c.verbose {
		slog.Debug("engine completion request", "messages", len(messages), "max_tokens", opts.MaxTokens)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading completion response: %w", err)
	}

	var result completionResponse
	if err := json.Unmarshal(raw, &result); err != nil || len(result.Choices) == 0 {
		// The server answered but not in the expected shape; hand the caller
		// whatever it said instead of failing the exchange.
		if c.verbose {
			slog.Debug("engine returned unexpected response shape", "body_bytes", len(raw))
		}
		return strings.TrimSpace(string(raw)), nil
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
