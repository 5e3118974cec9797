//go:build !llamacpp

package llm

import (
	"context"
	"errors"

	"github.com/nvandessel/namegame/internal/models"
)

var errNoLlamacpp = errors.New("local model not available: build with -tags llamacpp")

// LocalSource is a stub used when the llamacpp build tag is not set.
// It reports Available()=false and every Generate call fails.
type LocalSource struct {
	modelPath string
}

// LocalConfig configures the local model source.
type LocalConfig struct {
	LibPath     string `json:"lib_path,omitempty" yaml:"lib_path,omitempty"`
	ModelPath   string `json:"model_path,omitempty" yaml:"model_path,omitempty"`
	GPULayers   int    `json:"gpu_layers,omitempty" yaml:"gpu_layers,omitempty"`
	ContextSize int    `json:"context_size,omitempty" yaml:"context_size,omitempty"`
}

// NewLocalSource creates a stub LocalSource.
func NewLocalSource(cfg LocalConfig) *LocalSource {
	return &LocalSource{modelPath: cfg.ModelPath}
}

// Generate always fails with ErrSourceUnavailable.
func (s *LocalSource) Generate(_ context.Context, _ string, _ models.GenerationParams, _ int64) (string, error) {
	return "", unavailable(s.Name(), errNoLlamacpp)
}

// TokenCount falls back to the word estimate.
func (s *LocalSource) TokenCount(text string) int {
	return EstimateTokens(text)
}

// Available returns false in stub builds.
func (s *LocalSource) Available() bool {
	return false
}

// Name implements Source.
func (s *LocalSource) Name() string { return "local" }

// Close is a no-op for the stub.
func (s *LocalSource) Close() error {
	return nil
}
