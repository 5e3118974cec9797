// Package config provides unified configuration loading for namegame.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/namegame/internal/constants"
	"github.com/nvandessel/namegame/internal/engine"
	"github.com/nvandessel/namegame/internal/llm"
	"github.com/nvandessel/namegame/internal/logging"
	"github.com/nvandessel/namegame/internal/models"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config contains all namegame configuration settings.
type Config struct {
	// Run holds the experiment parameters.
	Run RunConfig `json:"run" yaml:"run"`

	// Generation holds the sampling parameters passed to the decision source.
	Generation models.GenerationParams `json:"generation" yaml:"generation"`

	// LLM selects and configures the decision source.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Output controls where run logs go.
	Output OutputConfig `json:"output" yaml:"output"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// RunConfig holds the naming-game parameters.
type RunConfig struct {
	Population     int     `json:"population" yaml:"population"`
	Rounds         int     `json:"rounds" yaml:"rounds"`
	Seeds          int     `json:"seeds" yaml:"seeds"`
	Condition      string  `json:"condition" yaml:"condition"`
	LexiconSize    int     `json:"n_lexicon" yaml:"n_lexicon"`
	MemoryK        int     `json:"memory_k" yaml:"memory_k"`
	PayloadLimit   int     `json:"payload_limit" yaml:"payload_limit"`
	BaseSeed       int64   `json:"base_seed" yaml:"base_seed"`
	LoseShiftAlpha float64 `json:"lose_shift_alpha" yaml:"lose_shift_alpha"`
	Workers        int     `json:"workers" yaml:"workers"`

	// Target is the agreement threshold used by summaries.
	Target float64 `json:"target" yaml:"target"`
}

// LLMConfig configures the decision source.
type LLMConfig struct {
	// Provider identifies the backend: "mock", "local", "openai", or "anthropic".
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider. Supports ${VAR} syntax for env vars.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint (OpenAI-compatible servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the remote model identifier.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout is the maximum duration to wait for one response.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// CallsPerMinute throttles generation calls. Zero disables throttling.
	CallsPerMinute float64 `json:"calls_per_minute,omitempty" yaml:"calls_per_minute,omitempty"`

	// Local configures the "local" provider. Requires building with -tags llamacpp.
	Local llm.LocalConfig `json:"local,omitempty" yaml:"local,omitempty"`
}

// RedactedAPIKey returns the API key with most characters masked.
// Shows first 4 and last 4 characters, e.g., "sk-a...xyz9".
// Returns "" for empty keys and "(set)" for keys shorter than 12 chars.
func (c LLMConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
func (c LLMConfig) String() string {
	return fmt.Sprintf("LLMConfig{Provider:%s, APIKey:%s, Model:%s}",
		c.Provider, c.RedactedAPIKey(), c.Model)
}

// ClientConfig converts to the decision-source constructor input.
func (c LLMConfig) ClientConfig() llm.ClientConfig {
	return llm.ClientConfig{
		Provider:       c.Provider,
		APIKey:         c.APIKey,
		BaseURL:        c.BaseURL,
		Model:          c.Model,
		Timeout:        c.Timeout,
		CallsPerMinute: c.CallsPerMinute,
		Local:          c.Local,
	}
}

// OutputConfig controls run output.
type OutputConfig struct {
	// Dir receives JSONL logs and, when enabled, the run database.
	Dir string `json:"dir" yaml:"dir"`

	// JSONL enables the per-run JSONL log.
	JSONL bool `json:"jsonl" yaml:"jsonl"`

	// SQLite enables the run database.
	SQLite bool `json:"sqlite" yaml:"sqlite"`

	// DBPath overrides the database location. Empty means <dir>/namegame.db.
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoggingConfig configures namegame's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to <output dir>/decisions.jsonl.
	// "trace" additionally includes full prompts and responses.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with the reference experiment parameters.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Population:     constants.DefaultPopulation,
			Rounds:         constants.DefaultRounds,
			Seeds:          constants.DefaultSeeds,
			Condition:      string(models.ModeSchema),
			LexiconSize:    constants.DefaultLexiconSize,
			MemoryK:        constants.DefaultMemoryK,
			PayloadLimit:   constants.DefaultPayloadLimit,
			BaseSeed:       constants.DefaultBaseSeed,
			LoseShiftAlpha: constants.DefaultLoseShiftAlpha,
			Workers:        constants.DefaultWorkers,
			Target:         constants.DefaultTarget,
		},
		Generation: models.GenerationParams{
			MaxNewTokens:  constants.DefaultMaxNewTokens,
			Temperature:   constants.DefaultTemperature,
			TopP:          constants.DefaultTopP,
			RepeatPenalty: constants.DefaultRepeatPenalty,
		},
		LLM: LLMConfig{
			Provider: "mock",
			Timeout:  30 * time.Second,
		},
		Output: OutputConfig{
			Dir:   constants.DefaultOutputDir,
			JSONL: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.namegame/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".namegame", "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.namegame/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	if configPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// LoadPath loads path when non-empty, otherwise the default locations.
// Environment overrides apply either way.
func LoadPath(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in API key
	config.LLM.APIKey = expandEnvVars(config.LLM.APIKey)

	return config, nil
}

// Validate checks that the configuration is valid. Every error wraps
// ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	r := c.Run
	if r.Population < 1 {
		add("population must be at least 1, got %d", r.Population)
	}
	if r.Rounds < 0 {
		add("rounds must be non-negative, got %d", r.Rounds)
	}
	if r.Seeds < 1 {
		add("seeds must be at least 1, got %d", r.Seeds)
	}
	if r.LexiconSize < 1 || r.LexiconSize > constants.MaxLexiconSize {
		add("n_lexicon must be between 1 and %d, got %d", constants.MaxLexiconSize, r.LexiconSize)
	}
	if r.MemoryK < 0 {
		add("memory_k must be non-negative, got %d", r.MemoryK)
	}
	if r.PayloadLimit < 0 {
		add("payload_limit must be non-negative, got %d", r.PayloadLimit)
	}
	if r.LoseShiftAlpha < 0 || r.LoseShiftAlpha > 1 {
		add("lose_shift_alpha must be between 0 and 1, got %f", r.LoseShiftAlpha)
	}
	if r.Workers < 1 {
		add("workers must be at least 1, got %d", r.Workers)
	}
	if r.Target <= 0 || r.Target > 1 {
		add("target must be in (0, 1], got %f", r.Target)
	}
	if _, err := models.ParseMode(r.Condition); err != nil {
		errs = append(errs, err)
	}

	g := c.Generation
	if g.MaxNewTokens < 1 {
		add("max_new_tokens must be at least 1, got %d", g.MaxNewTokens)
	}
	if g.Temperature < 0 {
		add("temperature must be non-negative, got %f", g.Temperature)
	}
	if g.TopP <= 0 || g.TopP > 1 {
		add("top_p must be in (0, 1], got %f", g.TopP)
	}
	if g.RepeatPenalty <= 0 {
		add("repeat_penalty must be positive, got %f", g.RepeatPenalty)
	}

	if c.LLM.Timeout < 0 {
		add("timeout must be non-negative, got %v", c.LLM.Timeout)
	}
	if c.LLM.CallsPerMinute < 0 {
		add("calls_per_minute must be non-negative, got %f", c.LLM.CallsPerMinute)
	}
	validProviders := map[string]bool{"": true, "mock": true, "local": true, "openai": true, "anthropic": true}
	if !validProviders[c.LLM.Provider] {
		add("invalid provider: %s (valid: mock, local, openai, anthropic)", c.LLM.Provider)
	}

	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		add("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// EngineConfig converts the run and generation sections into an engine
// configuration.
func (c *Config) EngineConfig() (engine.Config, error) {
	mode, err := models.ParseMode(c.Run.Condition)
	if err != nil {
		return engine.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return engine.Config{
		Population:   c.Run.Population,
		Rounds:       c.Run.Rounds,
		Seeds:        c.Run.Seeds,
		Mode:         mode,
		LexiconSize:  c.Run.LexiconSize,
		MemoryK:      c.Run.MemoryK,
		PayloadLimit: c.Run.PayloadLimit,
		Params:       c.Generation,
		BaseSeed:     c.Run.BaseSeed,
		Alpha:        c.Run.LoseShiftAlpha,
		Workers:      c.Run.Workers,
	}, nil
}

// DBPath returns the run database path.
func (c *Config) DBPath() string {
	if c.Output.DBPath != "" {
		return c.Output.DBPath
	}
	return filepath.Join(c.Output.Dir, "namegame.db")
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("NAMEGAME_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := os.Getenv("NAMEGAME_LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv("NAMEGAME_LLM_BASE_URL"); v != "" {
		config.LLM.BaseURL = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.LLM.Provider == "anthropic" {
		config.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && config.LLM.Provider == "openai" {
		config.LLM.APIKey = v
	}

	// Local model config from environment
	if v := os.Getenv("NAMEGAME_LOCAL_MODEL_PATH"); v != "" {
		config.LLM.Local.ModelPath = v
	}
	if v := os.Getenv("YZMA_LIB"); v != "" && config.LLM.Local.LibPath == "" {
		config.LLM.Local.LibPath = v
	}
	setInt(&config.LLM.Local.GPULayers, "NAMEGAME_LOCAL_GPU_LAYERS")
	setInt(&config.LLM.Local.ContextSize, "NAMEGAME_LOCAL_CONTEXT_SIZE")

	if v := os.Getenv("NAMEGAME_CONDITION"); v != "" {
		config.Run.Condition = v
	}
	setInt(&config.Run.Population, "NAMEGAME_POPULATION")
	setInt(&config.Run.Rounds, "NAMEGAME_ROUNDS")
	setInt(&config.Run.Seeds, "NAMEGAME_SEEDS")
	setInt(&config.Run.Workers, "NAMEGAME_WORKERS")
	if v := os.Getenv("NAMEGAME_BASE_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Run.BaseSeed = n
		}
	}

	if v := os.Getenv("NAMEGAME_OUTPUT_DIR"); v != "" {
		config.Output.Dir = v
	}
	if v := os.Getenv("NAMEGAME_SQLITE"); v != "" {
		config.Output.SQLite = v == "true" || v == "1"
	}

	if v := os.Getenv("NAMEGAME_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// setInt parses the named environment variable into dst when it holds an
// integer.
func setInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
