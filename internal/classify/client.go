package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client communicates with the classifier sidecar over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting the classifier sidecar at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// IsRunning returns true if the sidecar responds to GET /health with 200.
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

// predictRequest is the JSON body for POST /predict.
type predictRequest struct {
	Text string `json:"text"`
	TopK int    `json:"top_k"`
}

// errorResponse mirrors the sidecar's error body.
type errorResponse struct {
	Detail string `json:"detail"`
}

// Classify sends text to the sidecar and returns the ranked result. A 503
// means the model artifact is not loaded yet and maps to ErrModelNotLoaded.
func (c *Client) Classify(ctx context.Context, text string, topK int) (Result, error) {
	if topK <= 0 {
		topK = 3
	}

	body, err := json.Marshal(predictRequest{Text: text, TopK: topK})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("creating predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return Result{}, ErrModelNotLoaded
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Detail != "" {
			return Result{}, fmt.Errorf("predict: status %d: %s", resp.StatusCode, e.Detail)
		}
		return Result{}, fmt.Errorf("predict: unexpected status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decoding predict response: %w", err)
	}
	if result.Label == "" {
		return Result{}, fmt.Errorf("predict: empty label in response")
	}
	return result, nil
}
