package simulation

import (
	"fmt"
	"strings"

	"github.com/nvandessel/namegame/internal/agent"
	"github.com/nvandessel/namegame/internal/engine"
	"github.com/nvandessel/namegame/internal/metrics"
	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/runlog"
	"github.com/nvandessel/namegame/internal/store"
)

// Turn is what a scripted decision source sees of one prompt.
type Turn struct {
	AgentID int
	Round   int
	Anchor  models.Symbol
	Retry   bool
	Seed    int64
}

// Responder answers one turn.
type Responder func(Turn) string

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name   string
	Config engine.Config

	// Respond scripts the decision source. Nil uses the mock sampler.
	Respond Responder

	// TokenCount overrides the mock token count.
	TokenCount func(string) int

	// Target is the agreement threshold for the summary. Zero uses
	// metrics.DefaultTarget.
	Target float64
}

// SimulationResult captures the run output and its persisted copies.
type SimulationResult struct {
	Config    engine.Config
	Result    *engine.Result
	Log       *runlog.Log
	Summary   metrics.Summary
	Calls     int
	JSONLPath string
	RunID     string
	Store     *store.Store
}

// Rounds returns the aggregates of seed s in round order.
func (r SimulationResult) Rounds(s int) []models.RoundAggregate {
	var out []models.RoundAggregate
	for _, a := range r.Log.Aggregates {
		if a.Seed == s {
			out = append(out, a)
		}
	}
	return out
}

// parseTurn recovers a Turn from a prompt built by package agent.
func parseTurn(prompt string, seed int64) (Turn, error) {
	t := Turn{Seed: seed, Retry: strings.HasSuffix(prompt, agent.RetryReminder)}
	lines := strings.Split(prompt, "\n")
	if len(lines) < 2 {
		return t, fmt.Errorf("short prompt %q", prompt)
	}
	if _, err := fmt.Sscanf(lines[0], "You are agent %d in round %d.", &t.AgentID, &t.Round); err != nil {
		return t, fmt.Errorf("prompt header %q: %w", lines[0], err)
	}
	var anchor string
	if _, err := fmt.Sscanf(lines[1], "Your current proposed name is %s", &anchor); err != nil {
		return t, fmt.Errorf("prompt anchor %q: %w", lines[1], err)
	}
	t.Anchor = models.Symbol(strings.TrimSuffix(anchor, "."))
	return t, nil
}

// Echo proposes the anchor in strict form.
func Echo(t Turn) string {
	return "@say {name: " + string(t.Anchor) + "}"
}

// Constant always replies text.
func Constant(text string) Responder {
	return func(Turn) string { return text }
}

// Parity makes even agents say even and odd agents say odd.
func Parity(even, odd string) Responder {
	return func(t Turn) string {
		if t.AgentID%2 == 0 {
			return even
		}
		return odd
	}
}

// CompliantOnRetry replies loosely first and strictly after the reminder.
func CompliantOnRetry(t Turn) string {
	if t.Retry {
		return Echo(t)
	}
	return "I would go with " + string(t.Anchor) + " I think."
}
