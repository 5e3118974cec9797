// Package metrics measures convergence: per-round agreement, symbol entropy,
// rounds-to-target, and the cross-seed summary of a finished run log.
package metrics

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/runlog"
)

// DefaultTarget is the agreement threshold for rounds-to-target.
const DefaultTarget = 0.9

// Histogram counts decoded symbols.
type Histogram map[models.Symbol]int

// Add counts sym when it is defined.
func (h Histogram) Add(sym models.Symbol) {
	if sym.Defined() {
		h[sym]++
	}
}

// Merge adds every count of other into h.
func (h Histogram) Merge(other Histogram) {
	for s, c := range other {
		h[s] += c
	}
}

// Largest returns the size of the largest group, 0 when empty.
func (h Histogram) Largest() int {
	largest := 0
	for _, c := range h {
		if c > largest {
			largest = c
		}
	}
	return largest
}

// AgreementRatio is the largest group over population, in [0,1].
// A non-positive population yields 0.
func AgreementRatio(h Histogram, population int) float64 {
	if population <= 0 {
		return 0
	}
	r := float64(h.Largest()) / float64(population)
	if r > 1 {
		return 1
	}
	return r
}

// Entropy returns -Σ p·log2(p) over the non-zero counts, 0 when empty.
func Entropy(counts []int) float64 {
	total := 0
	for _, c := range counts {
		if c > 0 {
			total += c
		}
	}
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c <= 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	if h == 0 {
		return 0 // avoid -0
	}
	return h
}

// RoundsToTarget returns the first round (by round number) whose agreement
// reaches target, and false if none does.
func RoundsToTarget(aggs []models.RoundAggregate, target float64) (int, bool) {
	sorted := make([]models.RoundAggregate, len(aggs))
	copy(sorted, aggs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Round < sorted[j].Round })
	for _, a := range sorted {
		if a.PopulationAgreement >= target {
			return a.Round, true
		}
	}
	return 0, false
}

// SeedSummary holds the metrics of one seed.
type SeedSummary struct {
	Seed           int     `json:"seed"`
	Rounds         int     `json:"rounds"`
	RoundsToTarget *int    `json:"rounds_to_target"`
	TokensTotal    int     `json:"tokens_total"`
	FinalEntropy   float64 `json:"final_entropy"`
	FinalAgreement float64 `json:"final_agreement"`
	SuccessRate    float64 `json:"success_rate"`
}

// Summary aggregates a run log across seeds. Means and standard deviations
// are NaN when no seed contributes; RoundsToTargetMean ignores seeds that
// never reached the target.
type Summary struct {
	Target             float64       `json:"target"`
	Seeds              []SeedSummary `json:"seeds"`
	RoundsToTargetMean float64       `json:"rounds_to_target_mean"`
	RoundsToTargetStd  float64       `json:"rounds_to_target_std"`
	TokensTotalMean    float64       `json:"tokens_total_mean"`
	FinalEntropyMean   float64       `json:"final_entropy_mean"`
	FinalEntropyStd    float64       `json:"final_entropy_std"`
}

// Summarize computes the per-seed metrics of log and their cross-seed
// mean and population standard deviation. It is a pure function of log.
func Summarize(log *runlog.Log, target float64) Summary {
	sum := Summary{Target: target}

	bySeed := make(map[int][]models.RoundAggregate)
	for _, a := range log.Aggregates {
		bySeed[a.Seed] = append(bySeed[a.Seed], a)
	}
	seeds := make([]int, 0, len(bySeed))
	for s := range bySeed {
		seeds = append(seeds, s)
	}
	sort.Ints(seeds)

	var rtt, tokens, entropy []float64
	for _, s := range seeds {
		ss := summarizeSeed(log, s, bySeed[s], target)
		sum.Seeds = append(sum.Seeds, ss)
		if ss.RoundsToTarget != nil {
			rtt = append(rtt, float64(*ss.RoundsToTarget))
		}
		tokens = append(tokens, float64(ss.TokensTotal))
		entropy = append(entropy, ss.FinalEntropy)
	}

	sum.RoundsToTargetMean, sum.RoundsToTargetStd = meanStd(rtt)
	sum.TokensTotalMean, _ = meanStd(tokens)
	sum.FinalEntropyMean, sum.FinalEntropyStd = meanStd(entropy)
	return sum
}

func summarizeSeed(log *runlog.Log, s int, aggs []models.RoundAggregate, target float64) SeedSummary {
	ss := SeedSummary{Seed: s, Rounds: len(aggs)}
	if r, ok := RoundsToTarget(aggs, target); ok {
		ss.RoundsToTarget = &r
	}

	lastRound := aggs[0].Round
	pairs, successes := 0, 0
	for _, a := range aggs {
		ss.TokensTotal += a.RoundTokens
		pairs += a.Pairs
		successes += a.PairSuccess
		if a.Round >= lastRound {
			lastRound = a.Round
			ss.FinalAgreement = a.PopulationAgreement
		}
	}
	if pairs > 0 {
		ss.SuccessRate = float64(successes) / float64(pairs)
	}

	h := Histogram{}
	for _, rec := range log.Interactions {
		if rec.Seed == s && rec.Round == lastRound {
			h.Add(rec.IName)
			h.Add(rec.JName)
		}
	}
	ss.FinalEntropy = Entropy(h.Counts())
	return ss
}

// Counts returns the histogram counts in symbol-index order.
func (h Histogram) Counts() []int {
	syms := make([]models.Symbol, 0, len(h))
	for s := range h {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].Index() != syms[j].Index() {
			return syms[i].Index() < syms[j].Index()
		}
		return syms[i] < syms[j]
	})
	out := make([]int, len(syms))
	for i, s := range syms {
		out[i] = h[s]
	}
	return out
}

// meanStd returns the mean and population standard deviation, NaN for
// empty input.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, math.Sqrt(variance)
}

// Nullable returns nil for NaN, otherwise a pointer to f.
func Nullable(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

// MarshalJSON renders NaN statistics as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Target             float64       `json:"target"`
		Seeds              []SeedSummary `json:"seeds"`
		RoundsToTargetMean *float64      `json:"rounds_to_target_mean"`
		RoundsToTargetStd  *float64      `json:"rounds_to_target_std"`
		TokensTotalMean    *float64      `json:"tokens_total_mean"`
		FinalEntropyMean   *float64      `json:"final_entropy_mean"`
		FinalEntropyStd    *float64      `json:"final_entropy_std"`
	}{
		Target:             s.Target,
		Seeds:              s.Seeds,
		RoundsToTargetMean: Nullable(s.RoundsToTargetMean),
		RoundsToTargetStd:  Nullable(s.RoundsToTargetStd),
		TokensTotalMean:    Nullable(s.TokensTotalMean),
		FinalEntropyMean:   Nullable(s.FinalEntropyMean),
		FinalEntropyStd:    Nullable(s.FinalEntropyStd),
	})
}
