// Package agent implements one participant of the naming game: its
// preferred-symbol register, its partner memory, and the decision policy
// that turns a decision-source reply into a proposal.
package agent

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/nvandessel/namegame/internal/history"
	"github.com/nvandessel/namegame/internal/llm"
	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/schema"
	"github.com/nvandessel/namegame/internal/seed"
)

// Path names the decode stage that produced a proposal.
type Path string

const (
	PathStrict       Path = "strict"        // first schema reply decoded
	PathRetry        Path = "retry"         // reminder retry decoded
	PathSalvageRetry Path = "salvage_retry" // salvaged from the retry reply
	PathSalvageFirst Path = "salvage_first" // salvaged from the first reply
	PathSalvage      Path = "salvage"       // free-text salvage
	PathUndecodable  Path = "undecodable"
)

// Policy is the run-wide part of the decision policy shared by every agent.
type Policy struct {
	Mode         models.Mode
	Lexicon      models.Lexicon
	PayloadLimit int
}

// Agent holds one participant's mutable state. Only the engine goroutine
// that owns the agent's pair for a round may touch it.
type Agent struct {
	ID        int
	Preferred models.Symbol
	History   *history.Bounded

	policy Policy
	rng    *rand.Rand
}

// New creates an agent with initial preference preferred, a history of
// capacity memoryK and a private random stream seeded with rngSeed.
func New(id int, preferred models.Symbol, memoryK int, rngSeed int64, policy Policy) *Agent {
	return &Agent{
		ID:        id,
		Preferred: preferred,
		History:   history.NewBounded(memoryK),
		policy:    policy,
		rng:       rand.New(rand.NewSource(rngSeed)),
	}
}

// Draw returns the next value in [0,1) from the agent's private stream.
func (a *Agent) Draw() float64 {
	return a.rng.Float64()
}

// Proposal is the outcome of one Propose call.
type Proposal struct {
	Symbol    models.Symbol // NoSymbol when undecodable
	Raw       string        // accepted decision-source text
	Tokens    int
	Compliant bool
	Path      Path
	Prompt    string
	Calls     int
}

// Decoded reports whether the proposal carries a symbol.
func (p Proposal) Decoded() bool {
	return p.Symbol.Defined()
}

// Propose asks src for the agent's utterance in round, anchored on anchor,
// and decodes it according to the policy mode. callBase is the per-seed base
// for call seeds. Decode failures are not errors; an error means the decision
// source itself failed and the run must stop.
func (a *Agent) Propose(ctx context.Context, src llm.Source, round int, anchor models.Symbol, params models.GenerationParams, callBase int64) (Proposal, error) {
	if a.policy.Mode.Structured() {
		return a.proposeSchema(ctx, src, round, anchor, params, callBase)
	}
	return a.proposeFreeText(ctx, src, round, anchor, params, callBase)
}

func (a *Agent) proposeFreeText(ctx context.Context, src llm.Source, round int, anchor models.Symbol, params models.GenerationParams, callBase int64) (Proposal, error) {
	prompt := FreeTextPrompt(a.ID, round, anchor)
	raw, err := src.Generate(ctx, prompt, params, seed.Call(callBase, a.ID, round, 0))
	if err != nil {
		return Proposal{}, fmt.Errorf("agent %d round %d: %w", a.ID, round, err)
	}

	p := Proposal{Raw: raw, Compliant: true, Path: PathSalvage, Prompt: prompt, Calls: 1}
	if sym, err := schema.Salvage(raw, a.policy.Lexicon); err == nil {
		p.Symbol = sym
	} else {
		p.Path = PathUndecodable
	}
	p.Tokens = src.TokenCount(p.Raw)
	return p, nil
}

func (a *Agent) proposeSchema(ctx context.Context, src llm.Source, round int, anchor models.Symbol, params models.GenerationParams, callBase int64) (Proposal, error) {
	lex := a.policy.Lexicon
	prompt := SchemaPrompt(a.ID, round, anchor, a.policy.PayloadLimit)

	first, err := src.Generate(ctx, prompt, params, seed.Call(callBase, a.ID, round, 0))
	if err != nil {
		return Proposal{}, fmt.Errorf("agent %d round %d: %w", a.ID, round, err)
	}
	p := Proposal{Raw: first, Prompt: prompt, Calls: 1}

	if sym, ok := strictInLexicon(first, lex); ok {
		p.Symbol, p.Compliant, p.Path = sym, true, PathStrict
		p.Tokens = src.TokenCount(p.Raw)
		return p, nil
	}

	retry, err := src.Generate(ctx, RetryPrompt(prompt), params, seed.Call(callBase, a.ID, round, seed.RetryOffset))
	if err != nil {
		return Proposal{}, fmt.Errorf("agent %d round %d retry: %w", a.ID, round, err)
	}
	p.Calls = 2

	switch sym, ok := strictInLexicon(retry, lex); {
	case ok:
		p.Raw, p.Symbol, p.Compliant, p.Path = retry, sym, true, PathRetry
	default:
		p.Compliant = false
		if s, err := schema.Salvage(retry, lex); err == nil {
			p.Symbol, p.Path = s, PathSalvageRetry
		} else if s, err := schema.Salvage(first, lex); err == nil {
			p.Symbol, p.Path = s, PathSalvageFirst
		} else {
			p.Path = PathUndecodable
		}
	}
	p.Tokens = src.TokenCount(p.Raw)
	return p, nil
}

// strictInLexicon strict-decodes text and accepts only lexicon members.
func strictInLexicon(text string, lex models.Lexicon) (models.Symbol, bool) {
	sym, ok := schema.Strict(text)
	if !ok {
		return models.NoSymbol, false
	}
	return lex.Lookup(sym)
}
