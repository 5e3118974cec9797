package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/namegame/internal/config"
	"github.com/spf13/cobra"
)

// isolateHome sets HOME to a temp directory to avoid touching real ~/.namegame/
// MUST be called for any test that loads config or opens stores
func isolateHome(t *testing.T) string {
	t.Helper()
	tmpHome := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	return tmpHome
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	want := []string{"version", "run", "summarize", "config", "setup", "mcp-server"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"json", "config", "log-level"} {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("output = %q, want version %s", out, version)
	}

	out, err = execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version --json failed: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestLoadConfig_LogLevel(t *testing.T) {
	isolateHome(t)

	tests := []struct {
		name    string
		level   string
		want    string
		wantErr bool
	}{
		{"default", "", "info", false},
		{"debug", "debug", "debug", false},
		{"trace", "trace", "trace", false},
		{"invalid", "verbose", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCfg *config.Config
			var gotErr error
			root := newRootCmd()
			inspect := &cobra.Command{
				Use: "inspect",
				RunE: func(cmd *cobra.Command, args []string) error {
					gotCfg, gotErr = loadConfig(cmd)
					return nil
				},
			}
			root.AddCommand(inspect)
			args := []string{"inspect"}
			if tt.level != "" {
				args = append(args, "--log-level", tt.level)
			}
			root.SetArgs(args)
			root.SetOut(&bytes.Buffer{})
			if err := root.Execute(); err != nil {
				t.Fatalf("Execute: %v", err)
			}

			if tt.wantErr {
				if gotErr == nil {
					t.Error("expected error")
				}
				return
			}
			if gotErr != nil {
				t.Fatalf("loadConfig: %v", gotErr)
			}
			if gotCfg.Logging.Level != tt.want {
				t.Errorf("level = %q, want %q", gotCfg.Logging.Level, tt.want)
			}
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "run:\n  population: 8\n  condition: nl\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	out, err := execute(t, "config", "show", "--json", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if cfg.Run.Population != 8 || cfg.Run.Condition != "nl" {
		t.Errorf("run = %+v, want population 8 condition nl", cfg.Run)
	}
}

func TestConfigShow_RedactsAPIKey(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "llm:\n  provider: openai\n  api_key: sk-supersecretvalue-9876\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "")

	for _, args := range [][]string{
		{"config", "show", "--config", path},
		{"config", "show", "--json", "--config", path},
	} {
		out, err := execute(t, args...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if strings.Contains(out, "supersecret") {
			t.Errorf("%v leaked the API key: %s", args, out)
		}
		if !strings.Contains(out, "sk-s...9876") {
			t.Errorf("%v output missing redacted key: %s", args, out)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("run:\n  rounds: 10\n"), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("run:\n  population: 0\n  condition: telepathy\n"), 0600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	out, err := execute(t, "config", "validate", "--config", good)
	if err != nil {
		t.Fatalf("validate good config: %v", err)
	}
	if !strings.Contains(out, "valid") {
		t.Errorf("output = %q, want a valid message", out)
	}

	_, err = execute(t, "config", "validate", "--config", bad)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"population", "telepathy"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error = %v, want it to mention %q", err, want)
		}
	}
}

func TestConfigInit(t *testing.T) {
	home := isolateHome(t)

	out, err := execute(t, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	path := filepath.Join(home, ".namegame", "config.yaml")
	if !strings.Contains(out, path) {
		t.Errorf("output = %q, want path %s", out, path)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config invalid: %v", err)
	}

	if _, err := execute(t, "config", "init"); err == nil {
		t.Error("expected error when the file exists")
	}
	if _, err := execute(t, "config", "init", "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestFormatStat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{math.NaN(), "n/a"},
		{1.23456, "1.235"},
		{0, "0.000"},
	}
	for _, tt := range tests {
		if got := formatStat(tt.in); got != tt.want {
			t.Errorf("formatStat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}

	tokens := []struct {
		in   float64
		want string
	}{
		{12345.67, "12,345.7"},
		{12345.64, "12,345.6"},
		{999.96, "1,000"},
		{42, "42"},
		{math.NaN(), "n/a"},
	}
	for _, tt := range tokens {
		if got := formatTokens(tt.in); got != tt.want {
			t.Errorf("formatTokens(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSetupCmd_Check(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()

	out, err := execute(t, "setup", "--check", "--dir", dir)
	if err == nil {
		t.Fatal("expected incomplete setup error")
	}
	if !strings.Contains(out, "(missing)") {
		t.Errorf("output = %q, want missing entries", out)
	}

	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(modelsDir, "m.gguf"), []byte("fake"), 0644); err != nil {
		t.Fatal(err)
	}
	out, _ = execute(t, "setup", "--check", "--json", "--dir", dir)
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got["model_path"] != filepath.Join(modelsDir, "m.gguf") {
		t.Errorf("model_path = %v", got["model_path"])
	}
	if got["available"] != false {
		t.Errorf("available = %v, want false without libraries", got["available"])
	}
}
