package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nvandessel/namegame/internal/config"
	"github.com/nvandessel/namegame/internal/engine"
	"github.com/nvandessel/namegame/internal/llm"
	"github.com/nvandessel/namegame/internal/logging"
	"github.com/nvandessel/namegame/internal/metrics"
	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/runlog"
	"github.com/nvandessel/namegame/internal/setup"
	"github.com/nvandessel/namegame/internal/store"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a naming-game simulation",
		Long: `Run every seed repetition of a naming game and write the run log.

Flags override the config file, which overrides the built-in defaults.
The log path and elapsed seconds are printed on completion.

Examples:
  namegame run --condition schema --mock
  namegame run --condition nl_sw --population-size 12 --rounds 300 --seeds 3
  namegame run --condition schema --model-path ./models/qwen2.5-0.5b.gguf --sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			quiet, _ := cmd.Flags().GetBool("quiet")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			if quiet {
				logger = logging.Discard()
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			report, err := executeRun(ctx, cfg, logger, !quiet)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			if report.LogPath != "" {
				fmt.Fprintln(cmd.OutOrStdout(), report.LogPath)
			}
			if report.RunID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "run_id=%s\n", report.RunID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "elapsed_sec=%.2f\n", report.ElapsedSec)
			return nil
		},
	}

	cmd.Flags().String("condition", "", "Agent condition: nl, nl_sw, or schema")
	cmd.Flags().Int("population-size", 0, "Number of agents")
	cmd.Flags().Int("rounds", 0, "Rounds per seed")
	cmd.Flags().Int("seeds", 0, "Independent seed repetitions")
	cmd.Flags().Int("n-lexicon", 0, "Lexicon size (symbols C1..Cn)")
	cmd.Flags().Int("memory-k", 0, "Partner memory capacity")
	cmd.Flags().Int("payload-limit", 0, "Word cap hinted for schema rationales")
	cmd.Flags().Int("max-new-tokens", 0, "Generation length cap")
	cmd.Flags().Float64("temperature", 0, "Sampling temperature")
	cmd.Flags().Float64("top-p", 0, "Nucleus sampling threshold")
	cmd.Flags().Float64("repeat-penalty", 0, "Repetition penalty")
	cmd.Flags().Int64("base-seed", 0, "Base random seed")
	cmd.Flags().Float64("lose-shift-alpha", 0, "Probability of adopting the partner's name after a failure")
	cmd.Flags().Int("workers", 0, "Pairs played concurrently")
	cmd.Flags().Bool("mock", false, "Use the built-in mock decision source")
	cmd.Flags().String("model-path", "", "GGUF model for the local decision source")
	cmd.Flags().String("provider", "", "Decision source: mock, local, openai, anthropic")
	cmd.Flags().String("out", "", "Output directory for run logs")
	cmd.Flags().Bool("sqlite", false, "Also record the run in the SQLite run store")
	cmd.Flags().Float64("target", 0, "Agreement threshold for rounds-to-target")
	cmd.Flags().Bool("quiet", false, "Suppress progress and operational logs")

	return cmd
}

// applyRunFlags overlays the explicitly set run flags on cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	set := flags.Changed

	if set("condition") {
		cfg.Run.Condition, _ = flags.GetString("condition")
	}
	if set("population-size") {
		cfg.Run.Population, _ = flags.GetInt("population-size")
	}
	if set("rounds") {
		cfg.Run.Rounds, _ = flags.GetInt("rounds")
	}
	if set("seeds") {
		cfg.Run.Seeds, _ = flags.GetInt("seeds")
	}
	if set("n-lexicon") {
		cfg.Run.LexiconSize, _ = flags.GetInt("n-lexicon")
	}
	if set("memory-k") {
		cfg.Run.MemoryK, _ = flags.GetInt("memory-k")
	}
	if set("payload-limit") {
		cfg.Run.PayloadLimit, _ = flags.GetInt("payload-limit")
	}
	if set("max-new-tokens") {
		cfg.Generation.MaxNewTokens, _ = flags.GetInt("max-new-tokens")
	}
	if set("temperature") {
		cfg.Generation.Temperature, _ = flags.GetFloat64("temperature")
	}
	if set("top-p") {
		cfg.Generation.TopP, _ = flags.GetFloat64("top-p")
	}
	if set("repeat-penalty") {
		cfg.Generation.RepeatPenalty, _ = flags.GetFloat64("repeat-penalty")
	}
	if set("base-seed") {
		cfg.Run.BaseSeed, _ = flags.GetInt64("base-seed")
	}
	if set("lose-shift-alpha") {
		cfg.Run.LoseShiftAlpha, _ = flags.GetFloat64("lose-shift-alpha")
	}
	if set("workers") {
		cfg.Run.Workers, _ = flags.GetInt("workers")
	}
	if set("target") {
		cfg.Run.Target, _ = flags.GetFloat64("target")
	}
	if set("out") {
		cfg.Output.Dir, _ = flags.GetString("out")
	}
	if set("sqlite") {
		cfg.Output.SQLite, _ = flags.GetBool("sqlite")
	}

	if set("provider") {
		cfg.LLM.Provider, _ = flags.GetString("provider")
	}
	if set("model-path") {
		cfg.LLM.Local.ModelPath, _ = flags.GetString("model-path")
		if !set("provider") {
			cfg.LLM.Provider = "local"
		}
	}
	if mock, _ := flags.GetBool("mock"); mock {
		if set("provider") && cfg.LLM.Provider != "mock" {
			return fmt.Errorf("--mock conflicts with --provider %s", cfg.LLM.Provider)
		}
		cfg.LLM.Provider = "mock"
	}
	return nil
}

// runReport is the outcome of one run invocation.
type runReport struct {
	LogPath     string          `json:"log_path,omitempty"`
	RunID       string          `json:"run_id,omitempty"`
	Source      string          `json:"source"`
	ElapsedSec  float64         `json:"elapsed_sec"`
	TokensTotal int             `json:"tokens_total"`
	Summary     metrics.Summary `json:"summary"`
}

// executeRun runs the configured simulation with every enabled sink.
func executeRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, progress bool) (*runReport, error) {
	engCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}

	src, err := llm.New(setup.Resolve(cfg.LLM.ClientConfig()))
	if err != nil {
		return nil, fmt.Errorf("failed to create decision source: %w", err)
	}
	if c, ok := src.(llm.Closer); ok {
		defer c.Close()
	}
	if !src.Available() {
		return nil, fmt.Errorf("%w: %s is not configured", llm.ErrSourceUnavailable, src.Name())
	}

	tally := runlog.NewSummarySink()
	sinks := runlog.MultiSink{tally}
	report := &runReport{Source: src.Name()}

	if cfg.Output.JSONL {
		report.LogPath = filepath.Join(cfg.Output.Dir,
			runlog.FileName(engCfg.Mode, engCfg.Population, engCfg.Rounds, engCfg.Seeds, time.Now()))
		jsonl, err := runlog.CreateJSONL(report.LogPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, jsonl)
	}

	if cfg.Output.SQLite {
		s, err := store.Open(cfg.DBPath())
		if err != nil {
			sinks.Close()
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		defer s.Close()
		dbSink, err := s.BeginRun(ctx, store.RunInfo{
			Condition:  engCfg.Mode,
			Population: engCfg.Population,
			Rounds:     engCfg.Rounds,
			Seeds:      engCfg.Seeds,
			Source:     src.Name(),
			Config:     engCfg,
		})
		if err != nil {
			sinks.Close()
			return nil, err
		}
		report.RunID = dbSink.RunID()
		sinks = append(sinks, dbSink)
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if dir, err := store.GlobalPath(); err == nil {
		if dl := logging.NewDecisionLogger(dir, cfg.Logging.Level); dl != nil {
			defer dl.Close()
			opts = append(opts, engine.WithDecisionLogger(dl))
		}
	}
	if progress {
		opts = append(opts, engine.WithRoundHook(progressHook(logger, engCfg.Rounds)))
	}

	eng, err := engine.New(engCfg, src, sinks, opts...)
	if err != nil {
		sinks.Close()
		return nil, err
	}
	res, runErr := eng.Run(ctx)
	closeErr := sinks.Close()
	if runErr != nil {
		if report.LogPath != "" {
			logger.Warn("partial run log kept", "path", report.LogPath)
		}
		return nil, fmt.Errorf("run failed: %w", runErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("failed to flush run log: %w", closeErr)
	}

	report.ElapsedSec = res.Elapsed.Seconds()
	report.TokensTotal = res.TokensTotal()
	report.Summary = metrics.Summarize(tally.Log(), cfg.Run.Target)

	logger.Info("run summary",
		"tokens", humanize.Comma(int64(report.TokensTotal)),
		"interactions", humanize.Comma(int64(tally.Interactions())),
		"log", report.LogPath)
	return report, nil
}

// progressHook logs agreement roughly every tenth of the schedule.
func progressHook(logger *slog.Logger, rounds int) func(models.RoundAggregate) {
	every := max(1, rounds/10)
	return func(a models.RoundAggregate) {
		if (a.Round+1)%every != 0 {
			return
		}
		logger.Info("progress",
			"seed", a.Seed,
			"round", a.Round+1,
			"of", rounds,
			"agreement", fmt.Sprintf("%.3f", a.PopulationAgreement),
			"pair_success", a.PairSuccess)
	}
}

// signalContext returns a context cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
