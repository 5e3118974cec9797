// Package store persists naming-game runs in SQLite so several runs can be
// queried and summarized side by side.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/namegame/internal/models"
	"github.com/nvandessel/namegame/internal/runlog"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// Store is a SQLite run database.
type Store struct {
	db     *sqlx.DB
	dbPath string
}

// Open opens or creates the database at dbPath, creating parent
// directories as needed.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInfo describes a run at the moment it starts.
type RunInfo struct {
	Condition  models.Mode
	Population int
	Rounds     int
	Seeds      int
	Source     string
	Config     any // serialized to config_json
}

// Run is a stored run header.
type Run struct {
	ID         string      `db:"id" json:"id"`
	StartedAt  time.Time   `db:"-" json:"started_at"`
	Condition  models.Mode `db:"condition" json:"condition"`
	Population int         `db:"population" json:"population"`
	Rounds     int         `db:"rounds" json:"rounds"`
	Seeds      int         `db:"seeds" json:"seeds"`
	Source     string      `db:"source" json:"source"`
	ConfigJSON string      `db:"config_json" json:"-"`

	StartedAtRaw string `db:"started_at" json:"-"`
}

// BeginRun inserts a run header under a fresh id and returns a sink that
// writes the run's records.
func (s *Store) BeginRun(ctx context.Context, info RunInfo) (*RunSink, error) {
	cfg := []byte("{}")
	if info.Config != nil {
		var err error
		if cfg, err = json.Marshal(info.Config); err != nil {
			return nil, fmt.Errorf("failed to encode run config: %w", err)
		}
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, condition, population, rounds, seeds, source, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339Nano), string(info.Condition),
		info.Population, info.Rounds, info.Seeds, info.Source, string(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return &RunSink{db: s.db, runID: id}, nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, `
		SELECT id, started_at, condition, population, rounds, seeds, source, config_json
		FROM runs ORDER BY started_at DESC, id`); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	for i := range runs {
		runs[i].StartedAt = parseTime(runs[i].StartedAtRaw)
	}
	return runs, nil
}

// GetRun returns one run header.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `
		SELECT id, started_at, condition, population, rounds, seeds, source, config_json
		FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.StartedAt = parseTime(run.StartedAtRaw)
	return &run, nil
}

// interactionRow is the database shape of an InteractionRecord.
type interactionRow struct {
	Seed       int            `db:"seed"`
	Round      int            `db:"round"`
	IID        int            `db:"i_id"`
	JID        int            `db:"j_id"`
	IName      sql.NullString `db:"i_name"`
	JName      sql.NullString `db:"j_name"`
	IText      string         `db:"i_txt"`
	JText      string         `db:"j_txt"`
	ITokens    int            `db:"i_tokens"`
	JTokens    int            `db:"j_tokens"`
	ICompliant sql.NullBool   `db:"i_compliant"`
	JCompliant sql.NullBool   `db:"j_compliant"`
}

type aggregateRow struct {
	Seed                int     `db:"seed"`
	Round               int     `db:"round"`
	Pairs               int     `db:"pairs"`
	RoundTokens         int     `db:"round_tokens"`
	PairSuccess         int     `db:"pair_success"`
	PopulationAgreement float64 `db:"population_agreement"`
}

// LoadRun reads a run back as a log, in seed and round order, ready for
// metrics.Summarize.
func (s *Store) LoadRun(ctx context.Context, id string) (*runlog.Log, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	var irows []interactionRow
	if err := s.db.SelectContext(ctx, &irows, `
		SELECT seed, round, i_id, j_id, i_name, j_name, i_txt, j_txt,
		       i_tokens, j_tokens, i_compliant, j_compliant
		FROM interactions WHERE run_id = ? ORDER BY seed, round, rowid`, id); err != nil {
		return nil, fmt.Errorf("failed to load interactions: %w", err)
	}
	var arows []aggregateRow
	if err := s.db.SelectContext(ctx, &arows, `
		SELECT seed, round, pairs, round_tokens, pair_success, population_agreement
		FROM aggregates WHERE run_id = ? ORDER BY seed, round`, id); err != nil {
		return nil, fmt.Errorf("failed to load aggregates: %w", err)
	}

	log := &runlog.Log{
		Interactions: make([]models.InteractionRecord, 0, len(irows)),
		Aggregates:   make([]models.RoundAggregate, 0, len(arows)),
	}
	for _, r := range irows {
		log.Interactions = append(log.Interactions, models.InteractionRecord{
			Seed:       r.Seed,
			Round:      r.Round,
			Pair:       [2]int{r.IID, r.JID},
			IID:        r.IID,
			JID:        r.JID,
			IName:      models.Symbol(r.IName.String),
			JName:      models.Symbol(r.JName.String),
			IText:      r.IText,
			JText:      r.JText,
			ITokens:    r.ITokens,
			JTokens:    r.JTokens,
			ICompliant: nullBool(r.ICompliant),
			JCompliant: nullBool(r.JCompliant),
			Condition:  run.Condition,
		})
	}
	for _, r := range arows {
		log.Aggregates = append(log.Aggregates, models.RoundAggregate{
			Seed:                r.Seed,
			Round:               r.Round,
			Aggregate:           true,
			Pairs:               r.Pairs,
			RoundTokens:         r.RoundTokens,
			PairSuccess:         r.PairSuccess,
			PopulationAgreement: r.PopulationAgreement,
			Condition:           run.Condition,
		})
	}
	return log, nil
}

// DeleteRun removes a run and its records.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func nullBool(b sql.NullBool) *bool {
	if !b.Valid {
		return nil
	}
	return models.Bool(b.Bool)
}

func nullString(s models.Symbol) sql.NullString {
	return sql.NullString{String: string(s), Valid: s.Defined()}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
