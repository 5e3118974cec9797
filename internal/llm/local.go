//go:build llamacpp

package llm

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/hybridgroup/yzma/pkg/llama"
	"github.com/nvandessel/namegame/internal/models"
)

// Package-level library initialization. llama.Load() and llama.Init() are
// process-global operations that must only happen once.
var (
	libOnce    sync.Once
	libLoadErr error
)

func loadLib(libPath string) error {
	libOnce.Do(func() {
		if err := llama.Load(libPath); err != nil {
			libLoadErr = fmt.Errorf("loading yzma shared library from %q: %w", libPath, err)
			return
		}
		llama.LogSet(llama.LogSilent())
		llama.Init()
	})
	return libLoadErr
}

// LocalSource implements Source with a local GGUF model via hybridgroup/yzma
// (purego). All model access is serialized; a fresh llama context is created
// per Generate call and freed immediately.
type LocalSource struct {
	libPath     string
	modelPath   string
	gpuLayers   int
	contextSize int

	mu      sync.Mutex
	model   llama.Model
	vocab   llama.Vocab
	loaded  bool
	loadErr error
	once    sync.Once
}

// LocalConfig configures the local model source.
type LocalConfig struct {
	// LibPath is the directory containing yzma shared libraries (.so/.dylib).
	// Falls back to YZMA_LIB env var at runtime.
	LibPath string `json:"lib_path,omitempty" yaml:"lib_path,omitempty"`

	// ModelPath is the GGUF model file used for generation.
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty"`

	// GPULayers is the number of layers to offload to GPU (0 = CPU only).
	GPULayers int `json:"gpu_layers,omitempty" yaml:"gpu_layers,omitempty"`

	// ContextSize is the context window size in tokens.
	ContextSize int `json:"context_size,omitempty" yaml:"context_size,omitempty"`
}

// NewLocalSource creates a LocalSource. The model is not loaded until first use.
func NewLocalSource(cfg LocalConfig) *LocalSource {
	ctxSize := cfg.ContextSize
	if ctxSize <= 0 {
		ctxSize = 1024
	}
	return &LocalSource{
		libPath:     cfg.LibPath,
		modelPath:   cfg.ModelPath,
		gpuLayers:   cfg.GPULayers,
		contextSize: ctxSize,
	}
}

func (s *LocalSource) resolveLibPath() string {
	if s.libPath != "" {
		return s.libPath
	}
	return os.Getenv("YZMA_LIB")
}

func (s *LocalSource) loadModel() error {
	s.once.Do(func() {
		if s.modelPath == "" {
			s.loadErr = fmt.Errorf("no model path configured")
			return
		}
		libPath := s.resolveLibPath()
		if libPath == "" {
			s.loadErr = fmt.Errorf("no library path configured (set local.lib_path or YZMA_LIB)")
			return
		}
		if err := loadLib(libPath); err != nil {
			s.loadErr = err
			return
		}

		modelParams := llama.ModelDefaultParams()
		gpuLayers := s.gpuLayers
		if gpuLayers > math.MaxInt32 {
			gpuLayers = math.MaxInt32
		}
		modelParams.NGpuLayers = int32(gpuLayers)

		model, err := llama.ModelLoadFromFile(s.modelPath, modelParams)
		if err != nil {
			s.loadErr = fmt.Errorf("loading model %s: %w", s.modelPath, err)
			return
		}
		if model == 0 {
			s.loadErr = fmt.Errorf("loading model %s: returned null handle", s.modelPath)
			return
		}
		s.model = model
		s.vocab = llama.ModelGetVocab(model)
		s.loaded = true
	})
	return s.loadErr
}

// Available reports whether the library directory and model file exist.
// It does not load the model.
func (s *LocalSource) Available() bool {
	libPath := s.resolveLibPath()
	if libPath == "" || s.modelPath == "" {
		return false
	}
	if info, err := os.Stat(libPath); err != nil || !info.IsDir() {
		return false
	}
	_, err := os.Stat(s.modelPath)
	return err == nil
}

// Name implements Source.
func (s *LocalSource) Name() string { return "local" }

// Generate samples up to params.MaxNewTokens tokens after prompt. The
// sampler chain is penalties, top-p, temperature, then a seeded draw.
func (s *LocalSource) Generate(ctx context.Context, prompt string, params models.GenerationParams, seed int64) (string, error) {
	if err := s.loadModel(); err != nil {
		return "", unavailable(s.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	tokens := llama.Tokenize(s.vocab, prompt, true, true)

	ctxParams := llama.ContextDefaultParams()
	nCtx := len(tokens) + params.MaxNewTokens + 8
	if nCtx < s.contextSize {
		nCtx = s.contextSize
	}
	if nCtx > math.MaxUint32 {
		nCtx = math.MaxUint32
	}
	ctxParams.NCtx = uint32(nCtx)

	lctx, err := llama.InitFromModel(s.model, ctxParams)
	if err != nil {
		return "", unavailable(s.Name(), fmt.Errorf("creating context: %w", err))
	}
	defer func() { _ = llama.Free(lctx) }()

	sampler := llama.SamplerChainInit(llama.SamplerChainDefaultParams())
	defer llama.SamplerFree(sampler)
	llama.SamplerChainAdd(sampler, llama.SamplerInitPenalties(64, float32(params.RepeatPenalty), 0, 0))
	llama.SamplerChainAdd(sampler, llama.SamplerInitTopP(float32(params.TopP), 1))
	llama.SamplerChainAdd(sampler, llama.SamplerInitTemp(float32(params.Temperature)))
	llama.SamplerChainAdd(sampler, llama.SamplerInitDist(uint32(seed)))

	batch := llama.BatchGetOne(tokens)
	if _, err := llama.Decode(lctx, batch); err != nil {
		return "", unavailable(s.Name(), fmt.Errorf("decoding prompt: %w", err))
	}

	var out strings.Builder
	buf := make([]byte, 256)
	for i := 0; i < params.MaxNewTokens; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tok := llama.SamplerSample(sampler, lctx, -1)
		if llama.VocabIsEOG(s.vocab, tok) {
			break
		}
		n := llama.TokenToPiece(s.vocab, tok, buf, 0, true)
		if n > 0 {
			out.Write(buf[:n])
		}
		next := llama.BatchGetOne([]llama.Token{tok})
		if _, err := llama.Decode(lctx, next); err != nil {
			return "", unavailable(s.Name(), fmt.Errorf("decoding token %d: %w", i, err))
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// TokenCount tokenizes text with the model vocabulary. Falls back to the
// word estimate when the model cannot be loaded.
func (s *LocalSource) TokenCount(text string) int {
	if err := s.loadModel(); err != nil {
		return EstimateTokens(text)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(llama.Tokenize(s.vocab, text, false, true))
}

// Close releases the model resources. Safe to call multiple times.
// Does NOT call llama.Close(), which is process-global.
func (s *LocalSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		_ = llama.ModelFree(s.model)
		s.model = 0
		s.vocab = 0
		s.loaded = false
		s.once = sync.Once{}
	}
	return nil
}
