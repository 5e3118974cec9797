package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/nvandessel/namegame/internal/models"
)

// ErrSinkClosed is returned for writes after Close.
var ErrSinkClosed = errors.New("run sink closed")

// RunSink writes one run's records. Interactions are buffered and committed
// in one transaction together with their round's aggregate.
type RunSink struct {
	mu      sync.Mutex
	db      *sqlx.DB
	runID   string
	pending []models.InteractionRecord
	closed  bool
}

// RunID returns the id of the run being written.
func (s *RunSink) RunID() string { return s.runID }

// WriteInteraction implements runlog.Sink.
func (s *RunSink) WriteInteraction(_ context.Context, rec models.InteractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.pending = append(s.pending, rec)
	return nil
}

// WriteAggregate implements runlog.Sink.
func (s *RunSink) WriteAggregate(ctx context.Context, agg models.RoundAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	return s.commit(ctx, &agg)
}

// Close commits interactions still pending from an interrupted round.
func (s *RunSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if len(s.pending) == 0 {
		return nil
	}
	return s.commit(context.Background(), nil)
}

func (s *RunSink) commit(ctx context.Context, agg *models.RoundAggregate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(s.pending) > 0 {
		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO interactions
			(run_id, seed, round, i_id, j_id, i_name, j_name, i_txt, j_txt,
			 i_tokens, j_tokens, i_compliant, j_compliant)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare interaction insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range s.pending {
			if _, err := stmt.ExecContext(ctx,
				s.runID, r.Seed, r.Round, r.IID, r.JID,
				nullString(r.IName), nullString(r.JName), r.IText, r.JText,
				r.ITokens, r.JTokens, toNullBool(r.ICompliant), toNullBool(r.JCompliant)); err != nil {
				return fmt.Errorf("failed to insert interaction seed=%d round=%d: %w", r.Seed, r.Round, err)
			}
		}
	}

	if agg != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO aggregates
			(run_id, seed, round, pairs, round_tokens, pair_success, population_agreement)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.runID, agg.Seed, agg.Round, agg.Pairs, agg.RoundTokens, agg.PairSuccess,
			agg.PopulationAgreement); err != nil {
			return fmt.Errorf("failed to insert aggregate seed=%d round=%d: %w", agg.Seed, agg.Round, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit round: %w", err)
	}
	s.pending = s.pending[:0]
	return nil
}

func toNullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
