package mcp

import "github.com/nvandessel/namegame/internal/metrics"

// RunInput defines the input for the namegame_run tool. Zero values fall
// back to the server configuration.
type RunInput struct {
	Condition   string   `json:"condition,omitempty" jsonschema:"Agent condition: nl, nl_sw, or schema"`
	Population  int      `json:"population,omitempty" jsonschema:"Number of agents"`
	Rounds      *int     `json:"rounds,omitempty" jsonschema:"Rounds per seed"`
	Seeds       int      `json:"seeds,omitempty" jsonschema:"Independent seed repetitions"`
	LexiconSize int      `json:"n_lexicon,omitempty" jsonschema:"Lexicon size (symbols C1..Cn)"`
	MemoryK     *int     `json:"memory_k,omitempty" jsonschema:"Partner memory capacity (0 disables memory)"`
	BaseSeed    *int64   `json:"base_seed,omitempty" jsonschema:"Base random seed"`
	Alpha       *float64 `json:"alpha,omitempty" jsonschema:"Lose-shift adoption probability (0.0-1.0)"`
	Workers     int      `json:"workers,omitempty" jsonschema:"Pairs played concurrently"`
	Target      float64  `json:"target,omitempty" jsonschema:"Agreement threshold for rounds-to-target (0.0-1.0)"`
}

// RunOutput defines the output for the namegame_run tool.
type RunOutput struct {
	LogPath    string        `json:"log_path" jsonschema:"Path of the JSONL run log"`
	RunID      string        `json:"run_id,omitempty" jsonschema:"Run id in the SQLite store, when enabled"`
	Source     string        `json:"source" jsonschema:"Decision source used"`
	ElapsedSec float64       `json:"elapsed_sec" jsonschema:"Wall-clock run time in seconds"`
	Summary    SummaryOutput `json:"summary" jsonschema:"Cross-seed metrics"`
}

// SummarizeInput defines the input for the namegame_summarize tool.
type SummarizeInput struct {
	Path   string  `json:"path,omitempty" jsonschema:"JSONL log file or directory of logs inside the output directory"`
	RunID  string  `json:"run_id,omitempty" jsonschema:"Run id in the SQLite store (alternative to path)"`
	Target float64 `json:"target,omitempty" jsonschema:"Agreement threshold for rounds-to-target (0.0-1.0)"`
}

// SummaryOutput is a metrics.Summary with undefined statistics as null.
type SummaryOutput struct {
	Target             float64               `json:"target"`
	Seeds              []metrics.SeedSummary `json:"seeds"`
	RoundsToTargetMean *float64              `json:"rounds_to_target_mean"`
	RoundsToTargetStd  *float64              `json:"rounds_to_target_std"`
	TokensTotalMean    *float64              `json:"tokens_total_mean"`
	FinalEntropyMean   *float64              `json:"final_entropy_mean"`
	FinalEntropyStd    *float64              `json:"final_entropy_std"`
}

// ListRunsOutput defines the output for the namegame_runs tool.
type ListRunsOutput struct {
	Runs  []RunListItem `json:"runs" jsonschema:"Stored runs, newest first"`
	Count int           `json:"count" jsonschema:"Number of runs"`
}

// RunListItem provides a list view of a stored run.
type RunListItem struct {
	ID         string `json:"id"`
	StartedAt  string `json:"started_at"`
	Condition  string `json:"condition"`
	Population int    `json:"population"`
	Rounds     int    `json:"rounds"`
	Seeds      int    `json:"seeds"`
	Source     string `json:"source"`
}
