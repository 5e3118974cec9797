package llm

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"unicode"

	"github.com/nvandessel/namegame/internal/models"
)

// mockVocab is the filler vocabulary of the default mock sampler.
var mockVocab = []string{"because", "we", "agree", "name", "is", "clear", "choose", "symbol"}

// Responder produces a canned reply for a prompt and seed.
type Responder func(prompt string, seed int64) string

// MockSource implements Source without any model. By default it samples a
// short word sequence deterministically from the seed and sampling params,
// mixing prompt words and a fixed filler vocabulary. A Responder replaces the
// sampler for scripted tests. All calls are recorded.
type MockSource struct {
	mu sync.Mutex

	responder  Responder
	tokenCount func(string) int
	err        error
	available  bool

	// Call tracking
	Calls []GenerateCall
}

// GenerateCall records a call to Generate.
type GenerateCall struct {
	Prompt string
	Params models.GenerationParams
	Seed   int64
}

// NewMockSource creates a MockSource that is available and uses the default
// sampler.
func NewMockSource() *MockSource {
	return &MockSource{
		available: true,
		Calls:     make([]GenerateCall, 0),
	}
}

// WithResponder replaces the default sampler.
func (m *MockSource) WithResponder(r Responder) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = r
	return m
}

// WithTokenCounter replaces the default word-based token count.
func (m *MockSource) WithTokenCounter(fn func(string) int) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenCount = fn
	return m
}

// WithError makes every Generate call fail with err.
func (m *MockSource) WithError(err error) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithAvailable configures Available.
func (m *MockSource) WithAvailable(available bool) *MockSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// Generate implements Source.
func (m *MockSource) Generate(ctx context.Context, prompt string, params models.GenerationParams, seed int64) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, GenerateCall{Prompt: prompt, Params: params, Seed: seed})
	responder, err := m.responder, m.err
	m.mu.Unlock()

	if err != nil {
		return "", unavailable(m.Name(), err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if responder != nil {
		return responder(prompt, seed), nil
	}
	return sampleWords(prompt, params, seed), nil
}

// TokenCount implements Source.
func (m *MockSource) TokenCount(text string) int {
	m.mu.Lock()
	fn := m.tokenCount
	m.mu.Unlock()
	if fn != nil {
		return fn(text)
	}
	return EstimateTokens(strings.TrimSpace(text))
}

// Available implements Source.
func (m *MockSource) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Name implements Source.
func (m *MockSource) Name() string {
	return "mock"
}

// CallCount returns the number of Generate calls.
func (m *MockSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears call tracking and configured behavior.
func (m *MockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = nil
	m.tokenCount = nil
	m.err = nil
	m.available = true
	m.Calls = make([]GenerateCall, 0)
}

// sampleWords is the default mock generator. Roughly 30% of the words are
// drawn from the last 20 prompt words, the rest from mockVocab.
func sampleWords(prompt string, params models.GenerationParams, seed int64) string {
	mixed := seed ^
		int64(params.MaxNewTokens)<<8 ^
		int64(params.Temperature*1000)<<16 ^
		int64(params.TopP*1000)<<24 ^
		int64(params.RepeatPenalty*1000)<<2
	rng := rand.New(rand.NewSource(mixed))

	pool := promptWords(prompt)
	if len(pool) > 20 {
		pool = pool[len(pool)-20:]
	}
	if len(pool) == 0 {
		pool = []string{"C1"}
	}

	k := params.MaxNewTokens
	if k > 20 {
		k = 20
	}
	if k < 1 {
		k = 1
	}

	words := make([]string, 0, k)
	for i := 0; i < k; i++ {
		if rng.Float64() < 0.3 {
			words = append(words, pool[rng.Intn(len(pool))])
		} else {
			words = append(words, mockVocab[rng.Intn(len(mockVocab))])
		}
	}
	return strings.Join(words, " ")
}

// promptWords returns the prompt's purely alphabetic words. Words carrying
// digits or punctuation, such as "C3." or "5", are dropped whole.
func promptWords(prompt string) []string {
	var out []string
	for _, f := range strings.Fields(prompt) {
		if isAlpha(f) {
			out = append(out, f)
		}
	}
	return out
}

func isAlpha(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return word != ""
}
