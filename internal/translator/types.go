package translator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config configures an OpenAI-compatible chat completion endpoint.
type Config struct {
	APIKey  string        `mapstructure:"api_key" json:"api_key"`
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Model   string        `mapstructure:"model" json:"model"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// Referer and Title are sent as HTTP-Referer / X-Title, which OpenRouter
	// uses for attribution. Empty values are not sent.
	Referer string `mapstructure:"referer" json:"referer"`
	Title   string `mapstructure:"title" json:"title"`
}

// Completer is the single external capability the pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// ProviderError is a structured failure returned by the provider: an HTTP
// status plus the provider's message, which may be empty.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned status %d", e.Status)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Message)
}

var (
	// ErrUnreachable wraps transport failures: DNS, refused connections, timeouts.
	ErrUnreachable = errors.New("translation service unreachable")
	// ErrMalformedResponse means a 2xx reply without a usable completion.
	ErrMalformedResponse = errors.New("malformed completion response")
)
