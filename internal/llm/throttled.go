package llm

import (
	"context"

	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/ratelimit"
)

// Throttled wraps a Source so that Generate waits for a rate-limit token.
type Throttled struct {
	inner   Source
	limiter *ratelimit.Limiter
}

// NewThrottled wraps src with limiter.
func NewThrottled(src Source, limiter *ratelimit.Limiter) *Throttled {
	return &Throttled{inner: src, limiter: limiter}
}

// Generate implements Source.
func (t *Throttled) Generate(ctx context.Context, prompt string, params models.GenerationParams, seed int64) (string, error) {
	if err := t.limiter.Wait(ctx, t.inner.Name()); err != nil {
		return "", err
	}
	return t.inner.Generate(ctx, prompt, params, seed)
}

// TokenCount implements Source.
func (t *Throttled) TokenCount(text string) int { return t.inner.TokenCount(text) }

// Available implements Source.
func (t *Throttled) Available() bool { return t.inner.Available() }

// Name implements Source.
func (t *Throttled) Name() string { return t.inner.Name() }

// Close closes the wrapped source when it holds resources.
func (t *Throttled) Close() error {
	if c, ok := t.inner.(Closer); ok {
		return c.Close()
	}
	return nil
}

// Unwrap returns the wrapped source.
func (t *Throttled) Unwrap() Source { return t.inner }
