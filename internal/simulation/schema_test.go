package simulation_test

import (
	"strings"
	"testing"

	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/simulation"
)

// TestRetryRestoresCompliance validates the reminder retry: agents that
// answer loosely first and strictly on retry are compliant, cost two calls
// each, and are charged for the retry text.
func TestRetryRestoresCompliance(t *testing.T) {
	cfg := config(models.ModeSchema, 6, 3, 2, 5)
	r := simulation.NewRunner(t)
	result := r.Run(simulation.Scenario{
		Name:       "retry",
		Config:     cfg,
		Respond:    simulation.CompliantOnRetry,
		TokenCount: func(s string) int { return len(s) },
	})

	simulation.AssertCompliance(t, result, true)
	simulation.AssertTokensConserved(t, result)
	simulation.AssertPersisted(t, result)

	if want := 2 * cfg.Population * cfg.Rounds * cfg.Seeds; result.Calls != want {
		t.Errorf("source calls = %d, want %d", result.Calls, want)
	}
	for _, rec := range result.Log.Interactions {
		if !strings.HasPrefix(rec.IText, "@say") || rec.ITokens != len(rec.IText) {
			t.Errorf("record text %q with %d tokens, want the strict retry reply", rec.IText, rec.ITokens)
		}
	}
}

// TestSalvageIsNonCompliant validates that replies carrying exactly one
// symbol but never the strict form still decode, flagged non-compliant.
func TestSalvageIsNonCompliant(t *testing.T) {
	cfg := config(models.ModeSchema, 4, 2, 1, 3)
	r := simulation.NewRunner(t)
	result := r.Run(simulation.Scenario{
		Name:    "salvage",
		Config:  cfg,
		Respond: simulation.Constant("maybe C2 works"),
	})

	simulation.AssertCompliance(t, result, false)
	for _, rec := range result.Log.Interactions {
		if rec.IName != "C2" || rec.JName != "C2" {
			t.Errorf("names %v/%v, want C2/C2", rec.IName, rec.JName)
		}
		if rec.IText != "maybe C2 works" {
			t.Errorf("text %q, want the first reply", rec.IText)
		}
	}
	for _, a := range result.Log.Aggregates {
		if a.PopulationAgreement != 1 || a.PairSuccess != a.Pairs {
			t.Errorf("round %d: agreement %v success %d/%d, want full", a.Round, a.PopulationAgreement, a.PairSuccess, a.Pairs)
		}
	}
}

// TestUndecodableRepliesNeverSucceed validates rounds in which no reply
// names a lexicon symbol.
//
// Expected: null names, zero agreement and success, zero entropy, tokens
// still charged.
func TestUndecodableRepliesNeverSucceed(t *testing.T) {
	for _, mode := range []models.Mode{models.ModeFreeText, models.ModeSchema} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := config(mode, 4, 3, 2, 3)
			r := simulation.NewRunner(t)
			result := r.Run(simulation.Scenario{
				Name:    "undecodable-" + string(mode),
				Config:  cfg,
				Respond: simulation.Constant("C7 or C8, hard to say"),
			})

			simulation.AssertRecordCounts(t, result)
			simulation.AssertTokensConserved(t, result)
			simulation.AssertPersisted(t, result)

			for _, rec := range result.Log.Interactions {
				if rec.IName.Defined() || rec.JName.Defined() {
					t.Errorf("names %v/%v, want undefined", rec.IName, rec.JName)
				}
				if rec.ITokens == 0 {
					t.Error("undecodable replies must still be charged")
				}
			}
			for _, a := range result.Log.Aggregates {
				if a.PopulationAgreement != 0 || a.PairSuccess != 0 {
					t.Errorf("round %d: agreement %v success %d, want 0/0", a.Round, a.PopulationAgreement, a.PairSuccess)
				}
			}
			for _, ss := range result.Summary.Seeds {
				if ss.FinalEntropy != 0 || ss.SuccessRate != 0 {
					t.Errorf("seed %d: entropy %v success %v, want 0/0", ss.Seed, ss.FinalEntropy, ss.SuccessRate)
				}
			}
		})
	}
}

// TestDefaultSamplerRun runs every mode with the mock word sampler and
// checks the structural invariants and persistence. The sampler only echoes
// alphabetic prompt words, so no proposal ever decodes.
func TestDefaultSamplerRun(t *testing.T) {
	for _, mode := range []models.Mode{models.ModeFreeText, models.ModeFreeTextMemory, models.ModeSchema} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := config(mode, 7, 6, 2, 12)
			cfg.Workers = 3

			r := simulation.NewRunner(t)
			result := r.Run(simulation.Scenario{Name: "sampler-" + string(mode), Config: cfg})

			simulation.AssertRecordCounts(t, result)
			simulation.AssertAgreementBounds(t, result)
			simulation.AssertTokensConserved(t, result)
			simulation.AssertPersisted(t, result)
			if len(result.Summary.Seeds) != cfg.Seeds {
				t.Errorf("summary seeds = %d, want %d", len(result.Summary.Seeds), cfg.Seeds)
			}
			for _, rec := range result.Log.Interactions {
				if rec.IName.Defined() || rec.JName.Defined() {
					t.Fatalf("round %d: sampler reply decoded to %q/%q", rec.Round, rec.IName, rec.JName)
				}
			}
		})
	}
}
