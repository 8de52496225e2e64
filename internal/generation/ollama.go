package generation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// DefaultOllamaEndpoint is used when no endpoint is configured.
const DefaultOllamaEndpoint = "http://localhost:11434"

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// OllamaClient calls the Ollama /api/generate endpoint with streaming off.
type OllamaClient struct {
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client
}

// NewOllamaClient creates a client for the given endpoint and model.
func NewOllamaClient(endpoint, model string, timeout time.Duration) *OllamaClient {
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}
	return &OllamaClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		timeout:  timeout,
		client:   &http.Client{},
	}
}

// StatusError is returned when Ollama answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation: ollama returned status %d: %s", e.Code, e.Body)
}

// Generate sends one non-streaming generation request and returns the
// response text verbatim.
func (c *OllamaClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, req, c.timeout)
	defer cancel()

	body, err := sonic.Marshal(ollamaGenerateRequest{
		Model:       c.model,
		Prompt:      req.Prompt,
		Stream:      false,
		Temperature: req.Temperature,
		Options:     ollamaOptions{Temperature: req.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("generation: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("generation: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("generation: ollama request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("generation: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var out ollamaGenerateResponse
	if err := sonic.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("generation: decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("generation: ollama error: %s", out.Error)
	}
	return out.Response, nil
}

// Name identifies the backend and model.
func (c *OllamaClient) Name() string {
	return "ollama:" + c.model
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaGenerateRequest struct {
	Model       string        `json:"model"`
	Prompt      string        `json:"prompt"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	Options     ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}
