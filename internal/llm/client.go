// Package llm provides the decision sources agents consult for their
// utterances. A Source turns a prompt into text and counts tokens; it
// supports a deterministic mock, a local GGUF model via yzma, and the
// OpenAI and Anthropic APIs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/ratelimit"
)

// ErrSourceUnavailable is returned when a decision source cannot be reached
// or initialized. It is fatal to a run.
var ErrSourceUnavailable = errors.New("decision source unavailable")

// Source is the decision-source contract. Generate must treat any reply,
// including the empty string, as valid output; it returns an error only when
// the backend itself failed.
type Source interface {
	// Generate produces text for prompt. The same prompt, params and seed
	// should produce the same text when the backend supports seeding.
	Generate(ctx context.Context, prompt string, params models.GenerationParams, seed int64) (string, error)

	// TokenCount returns the number of tokens in text, for bookkeeping only.
	TokenCount(text string) int

	// Available reports whether the source is configured and reachable
	// without making a generation call.
	Available() bool

	// Name identifies the backend in logs.
	Name() string
}

// Closer is an optional interface for sources that hold resources.
// Consumers should type-assert and call Close when done.
type Closer interface {
	Close() error
}

// ClientConfig configures a decision source.
type ClientConfig struct {
	// Provider identifies the backend: "mock", "local", "openai", "anthropic".
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for remote providers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint (OpenAI-compatible servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier for remote providers.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout bounds each remote request.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// CallsPerMinute throttles Generate calls. Zero disables throttling.
	CallsPerMinute float64 `json:"calls_per_minute,omitempty" yaml:"calls_per_minute,omitempty"`

	// Local configures the "local" provider.
	Local LocalConfig `json:"local,omitempty" yaml:"local,omitempty"`
}

// DefaultConfig returns a ClientConfig for the mock source.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Provider: "mock",
		Timeout:  30 * time.Second,
	}
}

// New builds the Source described by cfg, wrapped in a throttle when
// CallsPerMinute is set.
func New(cfg ClientConfig) (Source, error) {
	var src Source
	switch strings.ToLower(cfg.Provider) {
	case "", "mock":
		src = NewMockSource()
	case "local":
		src = NewLocalSource(cfg.Local)
	case "openai":
		src = NewOpenAISource(cfg)
	case "anthropic":
		src = NewAnthropicSource(cfg)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if cfg.CallsPerMinute > 0 {
		limiter := ratelimit.NewLimiter(cfg.CallsPerMinute/60.0, 1)
		src = NewThrottled(src, limiter)
	}
	return src, nil
}

// EstimateTokens approximates a token count from whitespace-separated words.
// Used by sources that have no local tokenizer.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 1.5))
}

// unavailable wraps err as ErrSourceUnavailable with the source name.
func unavailable(name string, err error) error {
	return fmt.Errorf("%s: %w: %v", name, ErrSourceUnavailable, err)
}
