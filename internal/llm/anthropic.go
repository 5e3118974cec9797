package llm

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/nvandessel/namegame/internal/models"
)

const anthropicDefaultModel = "claude-3-5-haiku-latest"

// AnthropicSource implements Source using the Anthropic Messages API.
// The API has no seed parameter, so replies are not reproducible.
type AnthropicSource struct {
	client  anthropic.Client
	apiKey  string
	model   string
	timeout time.Duration
}

// NewAnthropicSource creates an AnthropicSource.
// If cfg.APIKey is empty, it falls back to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicSource(cfg ClientConfig) *AnthropicSource {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = anthropicDefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	opts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(apiKey),
		anthropicopt.WithRequestTimeout(timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicSource{
		client:  anthropic.NewClient(opts...),
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}
}

// Generate implements Source. The repeat penalty has no Anthropic
// equivalent and is ignored.
func (s *AnthropicSource) Generate(ctx context.Context, prompt string, params models.GenerationParams, _ int64) (string, error) {
	maxTokens := int64(params.MaxNewTokens)
	if maxTokens < 1 {
		maxTokens = 1
	}
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(params.Temperature),
		TopP:        anthropic.Float(params.TopP),
	}

	resp, err := s.client.Messages.New(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", unavailable(s.Name(), err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// TokenCount implements Source with the word estimate.
func (s *AnthropicSource) TokenCount(text string) int {
	return EstimateTokens(text)
}

// Available reports whether an API key is configured.
func (s *AnthropicSource) Available() bool {
	return s.apiKey != ""
}

// Name implements Source.
func (s *AnthropicSource) Name() string { return "anthropic" }
