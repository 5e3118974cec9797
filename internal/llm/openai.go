package llm

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/nvandessel/namegame/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAIDefaultModel = "gpt-4o-mini"

// OpenAISource implements Source using the OpenAI chat completions API. It
// also serves OpenAI-compatible servers through BaseURL.
type OpenAISource struct {
	client  openai.Client
	apiKey  string
	model   string
	timeout time.Duration
}

// NewOpenAISource creates an OpenAISource.
// If cfg.APIKey is empty, it falls back to the OPENAI_API_KEY environment variable.
// If cfg.Model is empty, it defaults to gpt-4o-mini.
func NewOpenAISource(cfg ClientConfig) *OpenAISource {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAISource{
		client:  openai.NewClient(opts...),
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}
}

// Generate implements Source. Repeat penalty maps onto frequency_penalty as
// (penalty - 1), clamped to the API range.
func (s *OpenAISource) Generate(ctx context.Context, prompt string, params models.GenerationParams, seed int64) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(params.MaxNewTokens)),
		Temperature:         openai.Float(params.Temperature),
		TopP:                openai.Float(params.TopP),
		FrequencyPenalty:    openai.Float(frequencyPenalty(params.RepeatPenalty)),
		Seed:                openai.Int(seed),
	}

	resp, err := s.client.Chat.Completions.New(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", unavailable(s.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", unavailable(s.Name(), errors.New("no choices returned"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// TokenCount implements Source with the word estimate.
func (s *OpenAISource) TokenCount(text string) int {
	return EstimateTokens(text)
}

// Available reports whether an API key is configured.
func (s *OpenAISource) Available() bool {
	return s.apiKey != ""
}

// Name implements Source.
func (s *OpenAISource) Name() string { return "openai" }

func frequencyPenalty(repeat float64) float64 {
	p := repeat - 1
	if p < -2 {
		return -2
	}
	if p > 2 {
		return 2
	}
	return p
}
