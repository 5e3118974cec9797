package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/namegame/internal/engine"
	"github.com/nvandessel/namegame/internal/llm"
	"github.com/nvandessel/namegame/internal/metrics"
	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/pathutil"
	"github.com/nvandessel/namegame/internal/ratelimit"
	"github.com/nvandessel/namegame/internal/runlog"
	"github.com/nvandessel/namegame/internal/setup"
	"github.com/nvandessel/namegame/internal/store"
)

// maxToolTurns caps population*rounds*seeds for a single namegame_run call.
const maxToolTurns = 250_000

const runsResourceURI = "namegame://runs"

// registerTools registers all namegame tools with the MCP server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "namegame_run",
		Description: "Run a naming-game simulation and return its cross-seed summary and log path",
	}, s.handleRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "namegame_summarize",
		Description: "Summarize a JSONL run log (file or directory) or a stored run",
	}, s.handleSummarize)

	if s.store != nil {
		sdk.AddTool(s.server, &sdk.Tool{
			Name:        "namegame_runs",
			Description: "List runs recorded in the SQLite run store",
		}, s.handleListRuns)
	}
}

// registerResources registers the run index resource.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         runsResourceURI,
		Name:        "namegame-runs",
		Description: "Recent simulation runs available for summarizing.",
		MIMEType:    "text/markdown",
	}, s.handleRunsResource)
}

// handleRun implements the namegame_run tool.
func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	start := time.Now()
	defer func() {
		params := map[string]any{
			"condition": args.Condition, "population": args.Population,
			"seeds": args.Seeds, "n_lexicon": args.LexiconSize,
			"workers": args.Workers, "target": args.Target,
		}
		if args.Rounds != nil {
			params["rounds"] = *args.Rounds
		}
		if args.MemoryK != nil {
			params["memory_k"] = *args.MemoryK
		}
		if args.BaseSeed != nil {
			params["base_seed"] = *args.BaseSeed
		}
		if args.Alpha != nil {
			params["alpha"] = *args.Alpha
		}
		s.auditTool("namegame_run", start, retErr, sanitizeToolParams(params))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "namegame_run"); err != nil {
		return nil, RunOutput{}, err
	}

	cfg, err := s.runConfig(args)
	if err != nil {
		return nil, RunOutput{}, err
	}
	target, err := s.target(args.Target)
	if err != nil {
		return nil, RunOutput{}, err
	}

	src, err := llm.New(setup.Resolve(s.settings.LLM.ClientConfig()))
	if err != nil {
		return nil, RunOutput{}, fmt.Errorf("failed to create decision source: %w", err)
	}
	if c, ok := src.(llm.Closer); ok {
		defer c.Close()
	}
	if !src.Available() {
		return nil, RunOutput{}, fmt.Errorf("%w: %s", llm.ErrSourceUnavailable, src.Name())
	}

	path := filepath.Join(s.outDir, runlog.FileName(cfg.Mode, cfg.Population, cfg.Rounds, cfg.Seeds, start))
	jsonl, err := runlog.CreateJSONL(path)
	if err != nil {
		return nil, RunOutput{}, err
	}
	tally := runlog.NewSummarySink()
	sinks := runlog.MultiSink{tally, jsonl}

	var runID string
	if s.store != nil {
		dbSink, err := s.store.BeginRun(ctx, store.RunInfo{
			Condition:  cfg.Mode,
			Population: cfg.Population,
			Rounds:     cfg.Rounds,
			Seeds:      cfg.Seeds,
			Source:     src.Name(),
			Config:     cfg,
		})
		if err != nil {
			sinks.Close()
			return nil, RunOutput{}, err
		}
		runID = dbSink.RunID()
		sinks = append(sinks, dbSink)
	}

	eng, err := engine.New(cfg, src, sinks, engine.WithLogger(s.logger))
	if err != nil {
		sinks.Close()
		return nil, RunOutput{}, err
	}
	res, runErr := eng.Run(ctx)
	closeErr := sinks.Close()
	if runErr != nil {
		return nil, RunOutput{}, fmt.Errorf("run failed: %w", runErr)
	}
	if closeErr != nil {
		return nil, RunOutput{}, fmt.Errorf("failed to flush run log: %w", closeErr)
	}

	return nil, RunOutput{
		LogPath:    path,
		RunID:      runID,
		Source:     src.Name(),
		ElapsedSec: res.Elapsed.Seconds(),
		Summary:    toSummaryOutput(metrics.Summarize(tally.Log(), target)),
	}, nil
}

// handleSummarize implements the namegame_summarize tool.
func (s *Server) handleSummarize(ctx context.Context, req *sdk.CallToolRequest, args SummarizeInput) (_ *sdk.CallToolResult, _ SummaryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("namegame_summarize", start, retErr, sanitizeToolParams(map[string]any{
			"path": args.Path, "run_id": args.RunID, "target": args.Target,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "namegame_summarize"); err != nil {
		return nil, SummaryOutput{}, err
	}

	target, err := s.target(args.Target)
	if err != nil {
		return nil, SummaryOutput{}, err
	}

	var log *runlog.Log
	switch {
	case args.Path != "" && args.RunID != "":
		return nil, SummaryOutput{}, errors.New("path and run_id are mutually exclusive")
	case args.Path != "":
		allowed, err := pathutil.AllowedLogDirs(s.outDir)
		if err != nil {
			return nil, SummaryOutput{}, err
		}
		path, err := pathutil.ResolveLogPath(args.Path, allowed)
		if err != nil {
			return nil, SummaryOutput{}, err
		}
		if log, err = runlog.Load(path); err != nil {
			return nil, SummaryOutput{}, err
		}
	case args.RunID != "":
		if s.store == nil {
			return nil, SummaryOutput{}, errors.New("run store is disabled; set output.sqlite in the config")
		}
		if log, err = s.store.LoadRun(ctx, args.RunID); err != nil {
			return nil, SummaryOutput{}, err
		}
	default:
		return nil, SummaryOutput{}, errors.New("one of path or run_id is required")
	}

	return nil, toSummaryOutput(metrics.Summarize(log, target)), nil
}

// handleListRuns implements the namegame_runs tool.
func (s *Server) handleListRuns(ctx context.Context, req *sdk.CallToolRequest, _ struct{}) (_ *sdk.CallToolResult, _ ListRunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("namegame_runs", start, retErr, nil)
	}()

	if s.store == nil {
		return nil, ListRunsOutput{}, errors.New("run store is disabled")
	}
	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	items := make([]RunListItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, RunListItem{
			ID:         r.ID,
			StartedAt:  r.StartedAt.Format(time.RFC3339),
			Condition:  string(r.Condition),
			Population: r.Population,
			Rounds:     r.Rounds,
			Seeds:      r.Seeds,
			Source:     r.Source,
		})
	}
	return nil, ListRunsOutput{Runs: items, Count: len(items)}, nil
}

// handleRunsResource lists stored runs, or the JSONL logs in the output
// directory when the store is disabled.
func (s *Server) handleRunsResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# Naming-game runs\n\n")

	if s.store != nil {
		runs, err := s.store.ListRuns(ctx)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			sb.WriteString("No runs yet. Start one with `namegame_run`.\n")
		}
		for _, r := range runs {
			fmt.Fprintf(&sb, "- `%s` %s %s N=%d R=%d S=%d (%s)\n",
				r.ID, r.StartedAt.Format(time.RFC3339), r.Condition, r.Population, r.Rounds, r.Seeds, r.Source)
		}
	} else {
		logs, err := filepath.Glob(filepath.Join(s.outDir, "logs_*.jsonl"))
		if err != nil {
			return nil, err
		}
		sort.Sort(sort.Reverse(sort.StringSlice(logs)))
		if len(logs) == 0 {
			sb.WriteString("No run logs yet. Start one with `namegame_run`.\n")
		}
		for _, p := range logs {
			fmt.Fprintf(&sb, "- `%s`\n", p)
		}
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      runsResourceURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// runConfig overlays the given tool arguments on the configured run
// defaults.
func (s *Server) runConfig(args RunInput) (engine.Config, error) {
	cfg, err := s.settings.EngineConfig()
	if err != nil {
		return engine.Config{}, err
	}
	if args.Condition != "" {
		mode, err := models.ParseMode(args.Condition)
		if err != nil {
			return engine.Config{}, err
		}
		cfg.Mode = mode
	}
	if args.Population != 0 {
		cfg.Population = args.Population
	}
	if args.Rounds != nil {
		cfg.Rounds = *args.Rounds
	}
	if args.Seeds != 0 {
		cfg.Seeds = args.Seeds
	}
	if args.LexiconSize != 0 {
		cfg.LexiconSize = args.LexiconSize
	}
	if args.MemoryK != nil {
		cfg.MemoryK = *args.MemoryK
	}
	if args.BaseSeed != nil {
		cfg.BaseSeed = *args.BaseSeed
	}
	if args.Alpha != nil {
		cfg.Alpha = *args.Alpha
	}
	if args.Workers != 0 {
		cfg.Workers = args.Workers
	}

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	if !withinTurns(maxToolTurns, cfg.Population, cfg.Rounds, cfg.Seeds) {
		return engine.Config{}, fmt.Errorf("run too large: population %d x rounds %d x seeds %d exceeds %d agent turns; use the CLI",
			cfg.Population, cfg.Rounds, cfg.Seeds, maxToolTurns)
	}
	return cfg, nil
}

// withinTurns reports whether the product of the non-negative factors is at
// most limit, without overflowing.
func withinTurns(limit int, factors ...int) bool {
	for _, f := range factors {
		if f == 0 {
			return true
		}
	}
	total := 1
	for _, f := range factors {
		if f < 0 || f > limit/total {
			return false
		}
		total *= f
	}
	return true
}

// target returns t, or the configured target when t is zero.
func (s *Server) target(t float64) (float64, error) {
	if t == 0 {
		t = s.settings.Run.Target
	}
	if t <= 0 || t > 1 {
		return 0, fmt.Errorf("target must be in (0, 1], got %v", t)
	}
	return t, nil
}

// toSummaryOutput converts undefined statistics to null.
func toSummaryOutput(sum metrics.Summary) SummaryOutput {
	seeds := sum.Seeds
	if seeds == nil {
		seeds = []metrics.SeedSummary{}
	}
	return SummaryOutput{
		Target:             sum.Target,
		Seeds:              seeds,
		RoundsToTargetMean: metrics.Nullable(sum.RoundsToTargetMean),
		RoundsToTargetStd:  metrics.Nullable(sum.RoundsToTargetStd),
		TokensTotalMean:    metrics.Nullable(sum.TokensTotalMean),
		FinalEntropyMean:   metrics.Nullable(sum.FinalEntropyMean),
		FinalEntropyStd:    metrics.Nullable(sum.FinalEntropyStd),
	}
}
