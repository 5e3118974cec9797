// Package runlog carries the records a run emits: the Sink contract the
// engine writes through, a JSONL file sink, and loaders that read those
// files back for analysis.
package runlog

import (
	"context"
	"errors"
	"sync"

	"github.com/nvandessel/namegame/internal/models"
)

// Sink receives run records in emission order: every interaction record of
// a round, then that round's aggregate.
type Sink interface {
	WriteInteraction(ctx context.Context, rec models.InteractionRecord) error
	WriteAggregate(ctx context.Context, agg models.RoundAggregate) error
	Close() error
}

// Log is an in-memory run log.
type Log struct {
	Interactions []models.InteractionRecord
	Aggregates   []models.RoundAggregate
}

// MemorySink collects records into a Log. It is safe for concurrent use.
type MemorySink struct {
	mu  sync.Mutex
	log Log
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// WriteInteraction implements Sink.
func (m *MemorySink) WriteInteraction(_ context.Context, rec models.InteractionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Interactions = append(m.log.Interactions, rec)
	return nil
}

// WriteAggregate implements Sink.
func (m *MemorySink) WriteAggregate(_ context.Context, agg models.RoundAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Aggregates = append(m.log.Aggregates, agg)
	return nil
}

// Close implements Sink.
func (m *MemorySink) Close() error { return nil }

// Log returns a copy of the collected records.
func (m *MemorySink) Log() *Log {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &Log{
		Interactions: make([]models.InteractionRecord, len(m.log.Interactions)),
		Aggregates:   make([]models.RoundAggregate, len(m.log.Aggregates)),
	}
	copy(out.Interactions, m.log.Interactions)
	copy(out.Aggregates, m.log.Aggregates)
	return out
}

// MultiSink fans records out to several sinks in order. The first error
// stops the fan-out for that record.
type MultiSink []Sink

// WriteInteraction implements Sink.
func (ms MultiSink) WriteInteraction(ctx context.Context, rec models.InteractionRecord) error {
	for _, s := range ms {
		if err := s.WriteInteraction(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteAggregate implements Sink.
func (ms MultiSink) WriteAggregate(ctx context.Context, agg models.RoundAggregate) error {
	for _, s := range ms {
		if err := s.WriteAggregate(ctx, agg); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (ms MultiSink) Close() error {
	var errs []error
	for _, s := range ms {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) WriteInteraction(context.Context, models.InteractionRecord) error { return nil }
func (discard) WriteAggregate(context.Context, models.RoundAggregate) error      { return nil }
func (discard) Close() error                                                     { return nil }
