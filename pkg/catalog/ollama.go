// pkg/catalog/ollama.go
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Defaults for the local generation endpoint.
const (
	DefaultEndpoint    = "http://localhost:11434"
	DefaultModel       = "qwen2.5"
	DefaultTemperature = 0.1
	DefaultTopP        = 0.9
)

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Model names the model used, recorded on each label.
	Model() string
}

// OllamaClient calls the /api/generate endpoint of an Ollama server.
type OllamaClient struct {
	endpoint    string
	model       string
	client      *http.Client
	temperature float64
	topP        float64
}

// NewOllamaClient creates a client. Empty endpoint or model fall back to
// the defaults; a nil client uses http.DefaultClient.
func NewOllamaClient(endpoint, model string, client *http.Client) *OllamaClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaClient{
		endpoint:    strings.TrimRight(endpoint, "/"),
		model:       model,
		client:      client,
		temperature: DefaultTemperature,
		topP:        DefaultTopP,
	}
}

// Model returns the model name sent with every request.
func (c *OllamaClient) Model() string {
	return c.model
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate sends a non-streaming generation request and returns the
// response text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.temperature,
			TopP:        c.topP,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("generation endpoint: %s", out.Error)
	}
	return out.Response, nil
}
