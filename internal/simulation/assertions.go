package simulation

import (
	"context"
	"reflect"
	"testing"

	"github.com/nvandessel/namegame/internal/runlog"
)

// AssertRecordCounts asserts one record per pair per round and one
// aggregate per round, for every seed.
func AssertRecordCounts(t *testing.T, result SimulationResult) {
	t.Helper()
	cfg := result.Config
	pairs := cfg.Population / 2
	if got, want := len(result.Log.Interactions), cfg.Seeds*cfg.Rounds*pairs; got != want {
		t.Errorf("AssertRecordCounts: %d interaction records, want %d", got, want)
	}
	if got, want := len(result.Log.Aggregates), cfg.Seeds*cfg.Rounds; got != want {
		t.Errorf("AssertRecordCounts: %d aggregates, want %d", got, want)
	}
	for _, a := range result.Log.Aggregates {
		if a.Pairs != pairs {
			t.Errorf("AssertRecordCounts: seed %d round %d: pairs=%d, want %d", a.Seed, a.Round, a.Pairs, pairs)
		}
	}
}

// AssertAgreementBounds asserts every aggregate's agreement lies in [0,1]
// and its success count never exceeds its pair count.
func AssertAgreementBounds(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, a := range result.Log.Aggregates {
		if a.PopulationAgreement < 0 || a.PopulationAgreement > 1 {
			t.Errorf("AssertAgreementBounds: seed %d round %d: agreement %.4f out of [0,1]", a.Seed, a.Round, a.PopulationAgreement)
		}
		if a.PairSuccess < 0 || a.PairSuccess > a.Pairs {
			t.Errorf("AssertAgreementBounds: seed %d round %d: success %d of %d pairs", a.Seed, a.Round, a.PairSuccess, a.Pairs)
		}
	}
}

// AssertTokensConserved asserts each aggregate's tokens and successes equal
// the sums over its records, and that the run total matches.
func AssertTokensConserved(t *testing.T, result SimulationResult) {
	t.Helper()
	type key struct{ seed, round int }
	tokens := make(map[key]int)
	success := make(map[key]int)
	total := 0
	for _, rec := range result.Log.Interactions {
		k := key{rec.Seed, rec.Round}
		tokens[k] += rec.ITokens + rec.JTokens
		if rec.Success() {
			success[k]++
		}
		total += rec.ITokens + rec.JTokens
	}
	for _, a := range result.Log.Aggregates {
		k := key{a.Seed, a.Round}
		if a.RoundTokens != tokens[k] {
			t.Errorf("AssertTokensConserved: seed %d round %d: aggregate %d tokens, records %d", a.Seed, a.Round, a.RoundTokens, tokens[k])
		}
		if a.PairSuccess != success[k] {
			t.Errorf("AssertTokensConserved: seed %d round %d: aggregate %d successes, records %d", a.Seed, a.Round, a.PairSuccess, success[k])
		}
	}
	if got := result.Result.TokensTotal(); got != total {
		t.Errorf("AssertTokensConserved: result total %d, records %d", got, total)
	}
}

// AssertConsensusAbsorbing asserts that once a seed reaches full agreement
// it never leaves it.
func AssertConsensusAbsorbing(t *testing.T, result SimulationResult) {
	t.Helper()
	for s := 0; s < result.Config.Seeds; s++ {
		reached := -1
		for _, a := range result.Rounds(s) {
			if reached < 0 && a.PopulationAgreement == 1 {
				reached = a.Round
				continue
			}
			if reached >= 0 && a.PopulationAgreement != 1 {
				t.Errorf("AssertConsensusAbsorbing: seed %d reached consensus in round %d but round %d has agreement %.4f",
					s, reached, a.Round, a.PopulationAgreement)
				break
			}
		}
	}
}

// AssertPreferencesFrozen asserts every agent proposed its final preference
// in every round.
func AssertPreferencesFrozen(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, rec := range result.Log.Interactions {
		prefs := result.Result.Seeds[rec.Seed].Preferences
		if rec.IName != prefs[rec.IID] {
			t.Errorf("AssertPreferencesFrozen: seed %d round %d: agent %d said %v, final preference %v",
				rec.Seed, rec.Round, rec.IID, rec.IName, prefs[rec.IID])
		}
		if rec.JName != prefs[rec.JID] {
			t.Errorf("AssertPreferencesFrozen: seed %d round %d: agent %d said %v, final preference %v",
				rec.Seed, rec.Round, rec.JID, rec.JName, prefs[rec.JID])
		}
	}
}

// AssertCompliance asserts every schema record's compliance flags equal
// want, or are null outside schema mode.
func AssertCompliance(t *testing.T, result SimulationResult, want bool) {
	t.Helper()
	structured := result.Config.Mode.Structured()
	for _, rec := range result.Log.Interactions {
		for _, c := range []*bool{rec.ICompliant, rec.JCompliant} {
			switch {
			case !structured && c != nil:
				t.Errorf("AssertCompliance: seed %d round %d: compliance set outside schema mode", rec.Seed, rec.Round)
			case structured && c == nil:
				t.Errorf("AssertCompliance: seed %d round %d: compliance missing", rec.Seed, rec.Round)
			case structured && *c != want:
				t.Errorf("AssertCompliance: seed %d round %d: compliant=%v, want %v", rec.Seed, rec.Round, *c, want)
			}
		}
	}
}

// AssertPersisted asserts the JSONL file and the SQLite run both hold
// exactly the in-memory log.
func AssertPersisted(t *testing.T, result SimulationResult) {
	t.Helper()

	fromFile, err := runlog.Load(result.JSONLPath)
	if err != nil {
		t.Fatalf("AssertPersisted: loading %s: %v", result.JSONLPath, err)
	}
	assertSameLog(t, "jsonl", fromFile, result.Log)

	fromDB, err := result.Store.LoadRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("AssertPersisted: loading run %s: %v", result.RunID, err)
	}
	assertSameLog(t, "sqlite", fromDB, result.Log)
}

func assertSameLog(t *testing.T, label string, got, want *runlog.Log) {
	t.Helper()
	if !reflect.DeepEqual(normalize(got.Interactions), normalize(want.Interactions)) {
		t.Errorf("AssertPersisted: %s interactions differ from memory (%d vs %d records)",
			label, len(got.Interactions), len(want.Interactions))
	}
	if !reflect.DeepEqual(normalize(got.Aggregates), normalize(want.Aggregates)) {
		t.Errorf("AssertPersisted: %s aggregates differ from memory (%d vs %d rounds)",
			label, len(got.Aggregates), len(want.Aggregates))
	}
}

// normalize returns nil for an empty slice so loaders that allocate and
// loaders that do not compare equal.
func normalize[T any](recs []T) []T {
	if len(recs) == 0 {
		return nil
	}
	return recs
}
