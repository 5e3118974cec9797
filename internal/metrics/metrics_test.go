package metrics

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/runlog"
)

const eps = 1e-9

func TestEntropy(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   float64
	}{
		{"empty", nil, 0},
		{"all identical", []int{8}, 0},
		{"even split", []int{4, 4}, 1},
		{"four-way even", []int{1, 1, 1, 1}, 2},
		{"zeros ignored", []int{0, 3, 0, 3}, 1},
		{"skewed", []int{3, 1}, -(0.75*math.Log2(0.75) + 0.25*math.Log2(0.25))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Entropy(tt.counts)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("Entropy(%v) = %v, want %v", tt.counts, got, tt.want)
			}
			if math.Signbit(got) {
				t.Errorf("Entropy(%v) is negative zero", tt.counts)
			}
		})
	}
}

func TestAgreementRatio(t *testing.T) {
	tests := []struct {
		name string
		h    Histogram
		pop  int
		want float64
	}{
		{"empty", Histogram{}, 4, 0},
		{"unanimous", Histogram{"C1": 4}, 4, 1},
		{"half", Histogram{"C1": 2, "C2": 2}, 4, 0.5},
		{"odd one out", Histogram{"C3": 4}, 5, 0.8},
		{"zero population", Histogram{"C1": 1}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AgreementRatio(tt.h, tt.pop)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("AgreementRatio = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("ratio %v outside [0,1]", got)
			}
		})
	}
}

func TestHistogram(t *testing.T) {
	h := Histogram{}
	h.Add("C2")
	h.Add(models.NoSymbol)
	h.Add("C10")
	h.Add("C2")
	h.Merge(Histogram{"C1": 1})

	if h[models.NoSymbol] != 0 {
		t.Error("undefined symbols must not be counted")
	}
	got := h.Counts()
	want := []int{1, 2, 1} // C1, C2, C10
	if len(got) != len(want) {
		t.Fatalf("Counts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Counts = %v, want %v", got, want)
		}
	}
	if h.Largest() != 2 {
		t.Errorf("Largest = %d", h.Largest())
	}
}

func TestRoundsToTarget(t *testing.T) {
	aggs := []models.RoundAggregate{
		{Round: 2, PopulationAgreement: 0.95},
		{Round: 0, PopulationAgreement: 0.5},
		{Round: 1, PopulationAgreement: 0.9},
	}
	if r, ok := RoundsToTarget(aggs, 0.9); !ok || r != 1 {
		t.Errorf("RoundsToTarget = %d, %v; want 1, true", r, ok)
	}
	if _, ok := RoundsToTarget(aggs, 0.99); ok {
		t.Error("target never reached should report false")
	}
}

func buildLog() *runlog.Log {
	log := &runlog.Log{}
	// Seed 0: reaches target at round 1, final round unanimous on C1.
	log.Aggregates = append(log.Aggregates,
		models.RoundAggregate{Seed: 0, Round: 0, Aggregate: true, Pairs: 2, RoundTokens: 10, PairSuccess: 0, PopulationAgreement: 0.5},
		models.RoundAggregate{Seed: 0, Round: 1, Aggregate: true, Pairs: 2, RoundTokens: 20, PairSuccess: 2, PopulationAgreement: 1.0},
	)
	log.Interactions = append(log.Interactions,
		models.InteractionRecord{Seed: 0, Round: 0, IName: "C1", JName: "C2"},
		models.InteractionRecord{Seed: 0, Round: 1, IName: "C1", JName: "C1"},
		models.InteractionRecord{Seed: 0, Round: 1, IName: "C1", JName: "C1"},
	)
	// Seed 1: never reaches target, final round split evenly with one undecodable.
	log.Aggregates = append(log.Aggregates,
		models.RoundAggregate{Seed: 1, Round: 0, Aggregate: true, Pairs: 2, RoundTokens: 5, PopulationAgreement: 0.25},
		models.RoundAggregate{Seed: 1, Round: 1, Aggregate: true, Pairs: 2, RoundTokens: 5, PopulationAgreement: 0.5},
	)
	log.Interactions = append(log.Interactions,
		models.InteractionRecord{Seed: 1, Round: 1, IName: "C1", JName: "C2"},
		models.InteractionRecord{Seed: 1, Round: 1, IName: "C2", JName: models.NoSymbol},
		models.InteractionRecord{Seed: 1, Round: 1, IName: models.NoSymbol, JName: "C1"},
	)
	return log
}

func TestSummarize(t *testing.T) {
	sum := Summarize(buildLog(), DefaultTarget)

	if len(sum.Seeds) != 2 {
		t.Fatalf("seeds = %d, want 2", len(sum.Seeds))
	}
	s0, s1 := sum.Seeds[0], sum.Seeds[1]

	if s0.RoundsToTarget == nil || *s0.RoundsToTarget != 1 {
		t.Errorf("seed 0 rounds-to-target = %v, want 1", s0.RoundsToTarget)
	}
	if s1.RoundsToTarget != nil {
		t.Errorf("seed 1 rounds-to-target = %d, want undefined", *s1.RoundsToTarget)
	}
	if s0.TokensTotal != 30 || s1.TokensTotal != 10 {
		t.Errorf("tokens = %d, %d", s0.TokensTotal, s1.TokensTotal)
	}
	if s0.FinalEntropy != 0 {
		t.Errorf("seed 0 entropy = %v, want 0", s0.FinalEntropy)
	}
	if math.Abs(s1.FinalEntropy-1) > eps {
		t.Errorf("seed 1 entropy = %v, want 1", s1.FinalEntropy)
	}
	if math.Abs(s0.SuccessRate-0.5) > eps {
		t.Errorf("seed 0 success rate = %v", s0.SuccessRate)
	}

	// NaN seeds are ignored for rounds-to-target.
	if sum.RoundsToTargetMean != 1 || sum.RoundsToTargetStd != 0 {
		t.Errorf("rtt mean/std = %v/%v", sum.RoundsToTargetMean, sum.RoundsToTargetStd)
	}
	if sum.TokensTotalMean != 20 {
		t.Errorf("tokens mean = %v", sum.TokensTotalMean)
	}
	if math.Abs(sum.FinalEntropyMean-0.5) > eps || math.Abs(sum.FinalEntropyStd-0.5) > eps {
		t.Errorf("entropy mean/std = %v/%v", sum.FinalEntropyMean, sum.FinalEntropyStd)
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(&runlog.Log{}, DefaultTarget)
	if !math.IsNaN(sum.RoundsToTargetMean) || !math.IsNaN(sum.TokensTotalMean) {
		t.Error("empty log should give NaN statistics")
	}

	data, err := json.Marshal(sum)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"rounds_to_target_mean":null`) {
		t.Errorf("NaN not rendered as null: %s", data)
	}
}

func TestSummarize_NoSeedReachesTarget(t *testing.T) {
	log := &runlog.Log{Aggregates: []models.RoundAggregate{{Seed: 0, Round: 0, PopulationAgreement: 0.1}}}
	sum := Summarize(log, DefaultTarget)
	if !math.IsNaN(sum.RoundsToTargetMean) {
		t.Errorf("rtt mean = %v, want NaN", sum.RoundsToTargetMean)
	}
	if sum.TokensTotalMean != 0 {
		t.Errorf("tokens mean = %v, want 0", sum.TokensTotalMean)
	}
}
