// Package setup installs and detects the llama.cpp shared libraries and
// GGUF chat model used by the local decision source.
package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/hybridgroup/yzma/pkg/download"
	"github.com/nvandessel/namegame/internal/llm"
)

// DefaultModelURL is a small instruction-tuned model that follows the
// one-line reply format well enough for schema runs.
const DefaultModelURL = "https://huggingface.co/Qwen/Qwen2.5-0.5B-Instruct-GGUF/resolve/main/qwen2.5-0.5b-instruct-q4_k_m.gguf"

// LocalSetup describes the detected state of local model dependencies.
type LocalSetup struct {
	LibPath   string // llama.cpp libs directory (empty if not found)
	ModelPath string // GGUF model file (empty if not found)
	Available bool   // true if both lib and model were found
}

// DetectInstalled checks baseDir/lib for llama.cpp libraries and
// baseDir/models for GGUF models. With several models, the first by name wins.
func DetectInstalled(baseDir string) LocalSetup {
	var result LocalSetup

	libDir := filepath.Join(baseDir, "lib")
	if _, err := os.Stat(filepath.Join(libDir, libraryFileName())); err == nil {
		result.LibPath = libDir
	}

	modelsDir := filepath.Join(baseDir, "models")
	if entries, err := os.ReadDir(modelsDir); err == nil {
		var models []string
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".gguf" {
				models = append(models, entry.Name())
			}
		}
		sort.Strings(models)
		if len(models) > 0 {
			result.ModelPath = filepath.Join(modelsDir, models[0])
		}
	}

	result.Available = result.LibPath != "" && result.ModelPath != ""
	return result
}

// DefaultDir returns ~/.namegame, where setup installs libraries and models.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".namegame"), nil
}

// Resolve fills the local provider's unset paths from DefaultDir. Other
// providers are returned unchanged.
func Resolve(cc llm.ClientConfig) llm.ClientConfig {
	if cc.Provider != "local" {
		return cc
	}
	if dir, err := DefaultDir(); err == nil {
		FillLocalConfig(&cc.Local, dir)
	}
	return cc
}

// FillLocalConfig completes the unset paths of cfg from what is installed
// under baseDir. Explicit settings are never replaced.
func FillLocalConfig(cfg *llm.LocalConfig, baseDir string) {
	found := DetectInstalled(baseDir)
	if cfg.LibPath == "" {
		cfg.LibPath = found.LibPath
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = found.ModelPath
	}
}

// libraryFileName returns the platform-specific library filename.
func libraryFileName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libllama.dylib"
	case "windows":
		return "llama.dll"
	default:
		return "libllama.so"
	}
}

// DownloadLibraries downloads the latest CPU build of the llama.cpp shared
// libraries for this platform to destDir.
func DownloadLibraries(ctx context.Context, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating lib directory: %w", err)
	}

	version, err := download.LlamaLatestVersion()
	if err != nil {
		return fmt.Errorf("getting latest llama.cpp version: %w", err)
	}

	return download.GetWithContext(ctx, runtime.GOARCH, runtime.GOOS, "cpu", version, destDir, download.ProgressTracker)
}

// DownloadModel downloads the GGUF model at url (DefaultModelURL when
// empty) to destDir.
func DownloadModel(ctx context.Context, url, destDir string) error {
	if url == "" {
		url = DefaultModelURL
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating models directory: %w", err)
	}

	return download.GetModelWithContext(ctx, url, destDir, download.ProgressTracker)
}
