package translator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-3.5-turbo"
	DefaultTimeout = 120 * time.Second
)

// maxResponseBytes bounds how much of a provider reply is read.
const maxResponseBytes = 8 << 20

const chatTemplate = `{"model":"","messages":[{"role":"system","content":""},{"role":"user","content":""}],"max_tokens":0}`

// OpenAIGateway talks to any OpenAI-compatible /chat/completions endpoint
// (OpenAI, OpenRouter, Ollama's /v1 API, ...).
type OpenAIGateway struct {
	apiKey  string
	baseURL string
	model   string
	referer string
	title   string
	client  *http.Client
}

func NewOpenAIGateway(cfg Config) *OpenAIGateway {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIGateway{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		referer: cfg.Referer,
		title:   cfg.Title,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *OpenAIGateway) Model() string {
	return g.model
}

// Complete sends one chat completion request and returns the trimmed text
// of the first choice. Non-2xx replies become *ProviderError; anything that
// prevents a reply from being read wraps ErrUnreachable.
func (g *OpenAIGateway) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	payload, err := g.buildPayload(system, user, maxTokens)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	if g.referer != "" {
		httpReq.Header.Set("HTTP-Referer", g.referer)
	}
	if g.title != "" {
		httpReq.Header.Set("X-Title", g.title)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProviderError{
			Status:  resp.StatusCode,
			Message: gjson.GetBytes(body, "error.message").String(),
		}
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() || content.Type != gjson.String {
		return "", fmt.Errorf("%w: no message content in reply", ErrMalformedResponse)
	}

	return strings.TrimSpace(content.String()), nil
}

// IsAvailable only checks local configuration; it never calls the provider.
// Requests still go out without a key and the provider's reply is relayed.
func (g *OpenAIGateway) IsAvailable(ctx context.Context) error {
	if g.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}
	return nil
}

func (g *OpenAIGateway) buildPayload(system, user string, maxTokens int) ([]byte, error) {
	payload := []byte(chatTemplate)
	sets := []struct {
		path  string
		value any
	}{
		{"model", g.model},
		{"messages.0.content", system},
		{"messages.1.content", user},
		{"max_tokens", maxTokens},
	}
	for _, s := range sets {
		var err error
		payload, err = sjson.SetBytes(payload, s.path, s.value)
		if err != nil {
			return nil, fmt.Errorf("failed to build request %s: %w", s.path, err)
		}
	}
	return payload, nil
}
