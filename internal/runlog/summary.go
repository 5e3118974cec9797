package runlog

import (
	"context"
	"sync"

	"github.com/nvandessel/namegame/internal/models"
)

// SummarySink keeps what end-of-run metrics need: every round aggregate and,
// per seed, the decoded names of the latest round seen. Raw texts are not
// retained, so memory is bounded by seeds*rounds aggregates plus one round
// of names per seed.
type SummarySink struct {
	mu           sync.Mutex
	aggregates   []models.RoundAggregate
	latest       map[int][]models.InteractionRecord
	interactions int
}

// NewSummarySink creates an empty SummarySink.
func NewSummarySink() *SummarySink {
	return &SummarySink{latest: make(map[int][]models.InteractionRecord)}
}

// WriteInteraction implements Sink.
func (s *SummarySink) WriteInteraction(_ context.Context, rec models.InteractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions++

	kept := s.latest[rec.Seed]
	switch {
	case len(kept) > 0 && rec.Round < kept[0].Round:
		return nil
	case len(kept) > 0 && rec.Round > kept[0].Round:
		kept = kept[:0]
	}
	s.latest[rec.Seed] = append(kept, models.InteractionRecord{
		Seed:      rec.Seed,
		Round:     rec.Round,
		Pair:      rec.Pair,
		IID:       rec.IID,
		JID:       rec.JID,
		IName:     rec.IName,
		JName:     rec.JName,
		Condition: rec.Condition,
	})
	return nil
}

// WriteAggregate implements Sink.
func (s *SummarySink) WriteAggregate(_ context.Context, agg models.RoundAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aggregates = append(s.aggregates, agg)
	return nil
}

// Close implements Sink.
func (s *SummarySink) Close() error { return nil }

// Interactions returns the number of interaction records written.
func (s *SummarySink) Interactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interactions
}

// Log returns the retained records: all aggregates and the final-round
// interactions of each seed, in seed order.
func (s *SummarySink) Log() *Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := &Log{Aggregates: make([]models.RoundAggregate, len(s.aggregates))}
	copy(out.Aggregates, s.aggregates)

	maxSeed := -1
	for seed := range s.latest {
		maxSeed = max(maxSeed, seed)
	}
	for seed := 0; seed <= maxSeed; seed++ {
		out.Interactions = append(out.Interactions, s.latest[seed]...)
	}
	return out
}
