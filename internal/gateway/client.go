package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aide/internal/logging"
)

// Client is an HTTP client for a local Ollama-compatible backend.
type Client struct {
	host       string
	model      string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for a local backend.
func DefaultConfig() Config {
	return Config{
		Host:    "http://localhost:11434",
		Timeout: 120 * time.Second,
	}
}

// NewClient creates a backend client.
func NewClient(cfg Config) *Client {
	host := cfg.Host
	if host == "" {
		host = DefaultConfig().Host
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Client{
		host:  strings.TrimRight(host, "/"),
		model: cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Host returns the configured backend host.
func (c *Client) Host() string { return c.host }

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// chatRequest is the /api/chat request payload.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatResponse is the non-streaming /api/chat response payload.
type chatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// tagsResponse is the /api/tags response payload.
type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// Chat sends the conversation to the backend and returns the assistant text.
// The request is non-streaming: one request, one complete answer.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	if c.model == "" {
		return "", ErrNoModel
	}

	payload := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	logging.GatewayDebug("chat: model=%s messages=%d", c.model, len(messages))
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrBackend, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrBackend, err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrBackend, result.Error)
	}

	logging.GatewayDebug("chat completed in %v (%d bytes)", time.Since(start), len(result.Message.Content))
	return result.Message.Content, nil
}

// Infer sends the conversation and classifies the response as text or a
// tool intent. Malformed or schema-violating intents fail open to text.
func (c *Client) Infer(ctx context.Context, messages []Message) (*Reply, error) {
	content, err := c.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	return Transduce(content), nil
}

// HealthCheck verifies the backend is up. Ollama answers its root path with
// a plain "Ollama is running" banner.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// ListModels fetches the models available on the backend.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: tags returned status %d", ErrBackend, resp.StatusCode)
	}

	var result tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode models: %v", ErrBackend, err)
	}
	return result.Models, nil
}

// HasModel reports whether the configured model is present on the backend.
func (c *Client) HasModel(ctx context.Context) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.Name == c.model || strings.SplitN(m.Name, ":", 2)[0] == c.model {
			return true, nil
		}
	}
	return false, nil
}

// classifyTransportError maps transport failures onto the gateway taxonomy.
func (c *Client) classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, c.host)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrTimeout, c.host)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.host, err)
}
