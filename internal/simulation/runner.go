package simulation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvandessel/namegame/internal/engine"
	"github.com/nvandessel/namegame/internal/llm"
	"github.com/nvandessel/namegame/internal/metrics"
	"github.com/nvandessel/namegame/internal/runlog"
	"github.com/nvandessel/namegame/internal/store"
)

// Runner executes scenarios against the real engine with every sink wired:
// memory, JSONL, and the SQLite run store.
type Runner struct {
	t     *testing.T
	dir   string
	store *store.Store
}

// NewRunner creates a simulation runner with an isolated output directory,
// SQLite store and sandboxed HOME directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.Open(store.DBPath(tmpDir))
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, dir: tmpDir, store: s}
}

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()
	ctx := context.Background()
	cfg := scenario.Config

	src := llm.NewMockSource()
	if scenario.Respond != nil {
		respond := scenario.Respond
		src.WithResponder(func(prompt string, seed int64) string {
			turn, err := parseTurn(prompt, seed)
			if err != nil {
				r.t.Errorf("%s: %v", scenario.Name, err)
				return ""
			}
			return respond(turn)
		})
	}
	if scenario.TokenCount != nil {
		src.WithTokenCounter(scenario.TokenCount)
	}

	path := filepath.Join(r.dir, runlog.FileName(cfg.Mode, cfg.Population, cfg.Rounds, cfg.Seeds, time.Now()))
	jsonl, err := runlog.CreateJSONL(path)
	if err != nil {
		r.t.Fatalf("%s: %v", scenario.Name, err)
	}
	dbSink, err := r.store.BeginRun(ctx, store.RunInfo{
		Condition:  cfg.Mode,
		Population: cfg.Population,
		Rounds:     cfg.Rounds,
		Seeds:      cfg.Seeds,
		Source:     src.Name(),
		Config:     cfg,
	})
	if err != nil {
		r.t.Fatalf("%s: BeginRun: %v", scenario.Name, err)
	}
	mem := runlog.NewMemorySink()
	sink := runlog.MultiSink{mem, jsonl, dbSink}

	eng, err := engine.New(cfg, src, sink)
	if err != nil {
		r.t.Fatalf("%s: engine.New: %v", scenario.Name, err)
	}
	res, err := eng.Run(ctx)
	if err != nil {
		r.t.Fatalf("%s: Run: %v", scenario.Name, err)
	}
	if err := sink.Close(); err != nil {
		r.t.Fatalf("%s: closing sinks: %v", scenario.Name, err)
	}

	target := scenario.Target
	if target == 0 {
		target = metrics.DefaultTarget
	}
	log := mem.Log()
	return SimulationResult{
		Config:    cfg,
		Result:    res,
		Log:       log,
		Summary:   metrics.Summarize(log, target),
		Calls:     src.CallCount(),
		JSONLPath: path,
		RunID:     dbSink.RunID(),
		Store:     r.store,
	}
}
