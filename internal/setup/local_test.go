package setup

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nvandessel/namegame/internal/llm"
)

// install creates fake library and model files under baseDir.
func install(t *testing.T, baseDir string, lib bool, models ...string) {
	t.Helper()
	if lib {
		libDir := filepath.Join(baseDir, "lib")
		if err := os.MkdirAll(libDir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(libDir, libraryFileName()), []byte("fake"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if len(models) > 0 {
		modelsDir := filepath.Join(baseDir, "models")
		if err := os.MkdirAll(modelsDir, 0755); err != nil {
			t.Fatal(err)
		}
		for _, m := range models {
			if err := os.WriteFile(filepath.Join(modelsDir, m), []byte("fake"), 0644); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestDetectInstalled(t *testing.T) {
	tests := []struct {
		name          string
		lib           bool
		models        []string
		wantLib       bool
		wantModel     string
		wantAvailable bool
	}{
		{"nothing installed", false, nil, false, "", false},
		{"lib only", true, nil, true, "", false},
		{"model only", false, []string{"m.gguf"}, false, "m.gguf", false},
		{"both", true, []string{"m.gguf"}, true, "m.gguf", true},
		{"first model by name", true, []string{"beta.gguf", "alpha.gguf"}, true, "alpha.gguf", true},
		{"ignores other files", true, []string{"notes.txt"}, true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseDir := t.TempDir()
			install(t, baseDir, tt.lib, tt.models...)

			got := DetectInstalled(baseDir)
			if (got.LibPath != "") != tt.wantLib {
				t.Errorf("LibPath = %q, want found=%v", got.LibPath, tt.wantLib)
			}
			if tt.wantModel == "" && got.ModelPath != "" {
				t.Errorf("ModelPath = %q, want empty", got.ModelPath)
			}
			if tt.wantModel != "" && filepath.Base(got.ModelPath) != tt.wantModel {
				t.Errorf("ModelPath = %q, want %s", got.ModelPath, tt.wantModel)
			}
			if got.Available != tt.wantAvailable {
				t.Errorf("Available = %v, want %v", got.Available, tt.wantAvailable)
			}
		})
	}
}

func TestFillLocalConfig(t *testing.T) {
	baseDir := t.TempDir()
	install(t, baseDir, true, "m.gguf")

	cfg := llm.LocalConfig{}
	FillLocalConfig(&cfg, baseDir)
	if cfg.LibPath != filepath.Join(baseDir, "lib") {
		t.Errorf("LibPath = %q", cfg.LibPath)
	}
	if cfg.ModelPath != filepath.Join(baseDir, "models", "m.gguf") {
		t.Errorf("ModelPath = %q", cfg.ModelPath)
	}

	explicit := llm.LocalConfig{ModelPath: "/models/mine.gguf"}
	FillLocalConfig(&explicit, baseDir)
	if explicit.ModelPath != "/models/mine.gguf" {
		t.Errorf("explicit ModelPath replaced with %q", explicit.ModelPath)
	}
	if explicit.LibPath == "" {
		t.Error("unset LibPath should be filled")
	}
}

func TestLibraryFileName(t *testing.T) {
	name := libraryFileName()
	switch runtime.GOOS {
	case "linux":
		if name != "libllama.so" {
			t.Errorf("expected libllama.so on linux, got %q", name)
		}
	case "darwin":
		if name != "libllama.dylib" {
			t.Errorf("expected libllama.dylib on darwin, got %q", name)
		}
	}
}

func TestDefaultModelURL(t *testing.T) {
	if !strings.HasSuffix(DefaultModelURL, ".gguf") {
		t.Errorf("DefaultModelURL = %q, want a GGUF file", DefaultModelURL)
	}
}

func TestResolve(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	install(t, filepath.Join(home, ".namegame"), true, "m.gguf")

	local := Resolve(llm.ClientConfig{Provider: "local"})
	if local.Local.ModelPath == "" || local.Local.LibPath == "" {
		t.Errorf("local paths not resolved: %+v", local.Local)
	}

	mock := Resolve(llm.ClientConfig{Provider: "mock"})
	if mock.Local.ModelPath != "" {
		t.Errorf("mock provider got local paths: %+v", mock.Local)
	}
}

func TestDefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir, err := DefaultDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(home, ".namegame") {
		t.Errorf("DefaultDir() = %q", dir)
	}
}
