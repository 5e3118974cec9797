// Package engine runs the naming game: it pairs agents each round, collects
// their proposals from the decision source, applies the preference update
// rule, and emits one record per pair plus one aggregate per round.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/namegame/internal/agent"
	"github.com/nvandessel/namegame/internal/constants"
	"github.com/nvandessel/namegame/internal/llm"
	"github.com/nvandessel/namegame/internal/logging"
	"github.com/nvandessel/namegame/internal/metrics"
	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/runlog"
	"github.com/nvandessel/namegame/internal/sanitize"
	"github.com/nvandessel/namegame/internal/seed"
)

// Engine executes runs for one configuration.
type Engine struct {
	cfg       Config
	src       llm.Source
	sink      runlog.Sink
	lexicon   models.Lexicon
	policy    agent.Policy
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	onRound   func(models.RoundAggregate)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithDecisionLogger sets the per-proposal trace writer.
func WithDecisionLogger(dl *logging.DecisionLogger) Option {
	return func(e *Engine) { e.decisions = dl }
}

// WithRoundHook registers fn to be called after every emitted aggregate.
func WithRoundHook(fn func(models.RoundAggregate)) Option {
	return func(e *Engine) { e.onRound = fn }
}

// New validates cfg and builds an Engine. A nil sink discards records.
func New(cfg Config, src llm.Source, sink runlog.Sink, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: no decision source", ErrInvalidConfig)
	}
	lex, err := models.NewLexicon(cfg.LexiconSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if sink == nil {
		sink = runlog.Discard
	}

	e := &Engine{
		cfg:     cfg,
		src:     src,
		sink:    sink,
		lexicon: lex,
		policy:  agent.Policy{Mode: cfg.Mode, Lexicon: lex, PayloadLimit: cfg.PayloadLimit},
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the validated configuration.
func (e *Engine) Config() Config { return e.cfg }

// Lexicon returns the run lexicon.
func (e *Engine) Lexicon() models.Lexicon { return e.lexicon }

// SeedResult summarizes one seed repetition.
type SeedResult struct {
	Seed           int
	Rounds         int
	Interactions   int
	TokensTotal    int
	FinalAgreement float64
	Preferences    []models.Symbol
}

// Result summarizes a run.
type Result struct {
	Seeds   []SeedResult
	Elapsed time.Duration
}

// TokensTotal sums tokens across seeds.
func (r *Result) TokensTotal() int {
	total := 0
	for _, s := range r.Seeds {
		total += s.TokensTotal
	}
	return total
}

// Run executes every seed repetition in order. A decision-source failure
// or cancellation stops the run; records already emitted stay in the sink.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}
	e.logger.Info("run starting",
		"condition", e.cfg.Mode,
		"population", e.cfg.Population,
		"rounds", e.cfg.Rounds,
		"seeds", e.cfg.Seeds,
		"source", e.src.Name(),
		"workers", e.cfg.Workers)

	for s := 0; s < e.cfg.Seeds; s++ {
		sr, err := e.RunSeed(ctx, s)
		if err != nil {
			return res, err
		}
		res.Seeds = append(res.Seeds, sr)
	}
	res.Elapsed = time.Since(start)
	e.logger.Info("run complete", "elapsed", res.Elapsed.Round(time.Millisecond), "tokens", res.TokensTotal())
	return res, nil
}

// RunSeed executes seed repetition s: fresh agents, uniform initial
// preferences, then every round in order.
func (e *Engine) RunSeed(ctx context.Context, s int) (SeedResult, error) {
	rng := rand.New(rand.NewSource(seed.Run(e.cfg.BaseSeed, s, e.cfg.Population, e.cfg.Rounds)))
	callBase := seed.CallBase(e.cfg.BaseSeed, s)

	agents := make([]*agent.Agent, e.cfg.Population)
	for i := range agents {
		pref := e.lexicon.At(rng.Intn(e.lexicon.Len()))
		agents[i] = agent.New(i, pref, e.cfg.MemoryK, seed.Agent(e.cfg.BaseSeed, s, i), e.policy)
	}

	sr := SeedResult{Seed: s}
	for r := 0; r < e.cfg.Rounds; r++ {
		if err := ctx.Err(); err != nil {
			return sr, fmt.Errorf("seed %d round %d: %w", s, r, err)
		}
		agg, n, err := e.playRound(ctx, s, r, agents, rng, callBase)
		if err != nil {
			return sr, err
		}
		sr.Rounds++
		sr.Interactions += n
		sr.TokensTotal += agg.RoundTokens
		sr.FinalAgreement = agg.PopulationAgreement
	}

	sr.Preferences = make([]models.Symbol, len(agents))
	for i, a := range agents {
		sr.Preferences[i] = a.Preferred
	}
	e.logger.Info("seed complete",
		"seed", s,
		"rounds", sr.Rounds,
		"final_agreement", sr.FinalAgreement,
		"tokens", sr.TokensTotal)
	return sr, nil
}

// pairOutcome is the partial result of one pair, merged after the round.
type pairOutcome struct {
	record  models.InteractionRecord
	hist    metrics.Histogram
	tokens  int
	success bool
}

// playRound pairs the agents, plays every pair, and emits the round's
// records. It returns the aggregate and the number of interactions.
func (e *Engine) playRound(ctx context.Context, s, r int, agents []*agent.Agent, rng *rand.Rand, callBase int64) (models.RoundAggregate, int, error) {
	pairs := Pair(len(agents), rng)
	outcomes := make([]pairOutcome, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for k, p := range pairs {
		g.Go(func() error {
			out, err := e.playPair(gctx, s, r, agents[p[0]], agents[p[1]], callBase)
			if err != nil {
				return err
			}
			outcomes[k] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.RoundAggregate{}, 0, fmt.Errorf("seed %d round %d: %w", s, r, err)
	}

	agg := models.RoundAggregate{
		Seed:      s,
		Round:     r,
		Aggregate: true,
		Pairs:     len(pairs),
		Condition: e.cfg.Mode,
	}
	hist := metrics.Histogram{}
	for _, out := range outcomes {
		if err := e.sink.WriteInteraction(ctx, out.record); err != nil {
			return agg, 0, fmt.Errorf("writing interaction: %w", err)
		}
		hist.Merge(out.hist)
		agg.RoundTokens += out.tokens
		if out.success {
			agg.PairSuccess++
		}
	}
	agg.PopulationAgreement = metrics.AgreementRatio(hist, len(agents))

	if err := e.sink.WriteAggregate(ctx, agg); err != nil {
		return agg, 0, fmt.Errorf("writing aggregate: %w", err)
	}
	if e.onRound != nil {
		e.onRound(agg)
	}

	e.logger.Debug("round complete",
		"seed", s,
		"round", r,
		"pairs", agg.Pairs,
		"success", agg.PairSuccess,
		"agreement", agg.PopulationAgreement,
		"tokens", agg.RoundTokens)
	return agg, len(pairs), nil
}

// playPair runs both proposals and applies the update rule to both agents.
// It touches only a and b.
func (e *Engine) playPair(ctx context.Context, s, r int, a, b *agent.Agent, callBase int64) (pairOutcome, error) {
	pa, err := a.Propose(ctx, e.src, r, a.Preferred, e.cfg.Params, callBase)
	if err != nil {
		return pairOutcome{}, err
	}
	pb, err := b.Propose(ctx, e.src, r, b.Preferred, e.cfg.Params, callBase)
	if err != nil {
		return pairOutcome{}, err
	}
	e.trace(ctx, s, r, a, pa)
	e.trace(ctx, s, r, b, pb)

	success := pa.Decoded() && pb.Decoded() && pa.Symbol == pb.Symbol

	rec := models.InteractionRecord{
		Seed:      s,
		Round:     r,
		Pair:      [2]int{a.ID, b.ID},
		IID:       a.ID,
		JID:       b.ID,
		IName:     pa.Symbol,
		JName:     pb.Symbol,
		IText:     pa.Raw,
		JText:     pb.Raw,
		ITokens:   pa.Tokens,
		JTokens:   pb.Tokens,
		Condition: e.cfg.Mode,
	}
	if e.cfg.Mode.Structured() {
		rec.ICompliant = models.Bool(pa.Compliant)
		rec.JCompliant = models.Bool(pb.Compliant)
	}

	hist := metrics.Histogram{}
	hist.Add(pa.Symbol)
	hist.Add(pb.Symbol)

	nextPreference(a, pb, success, e.cfg.Mode, e.cfg.Alpha)
	nextPreference(b, pa, success, e.cfg.Mode, e.cfg.Alpha)

	return pairOutcome{
		record:  rec,
		hist:    hist,
		tokens:  pa.Tokens + pb.Tokens,
		success: success,
	}, nil
}

func (e *Engine) trace(ctx context.Context, s, r int, a *agent.Agent, p agent.Proposal) {
	e.logger.Log(ctx, logging.LevelTrace, "proposal",
		"seed", s,
		"round", r,
		"agent", a.ID,
		"path", p.Path,
		"prompt", p.Prompt,
		"raw", p.Raw)
	e.decisions.LogDecision(logging.Decision{
		Seed:      s,
		Round:     r,
		AgentID:   a.ID,
		Anchor:    string(a.Preferred),
		Symbol:    string(p.Symbol),
		Path:      string(p.Path),
		Compliant: p.Compliant,
		Calls:     p.Calls,
		Tokens:    p.Tokens,
		Preview:   sanitize.Preview(p.Raw, constants.PreviewLen),
	})
}

// Pair shuffles 0..n-1 with rng and pairs consecutive ids. With odd n the
// last id after shuffling sits out.
func Pair(n int, rng *rand.Rand) [][2]int {
	idx := rng.Perm(n)
	pairs := make([][2]int, 0, n/2)
	for i := 0; i+1 < n; i += 2 {
		pairs = append(pairs, [2]int{idx[i], idx[i+1]})
	}
	return pairs
}
