package runlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/namegame/internal/models"
)

// FileName returns the conventional log file name for a run started at ts.
func FileName(mode models.Mode, population, rounds, seeds int, ts time.Time) string {
	return fmt.Sprintf("logs_%s_N%d_R%d_S%d_%s.jsonl", mode, population, rounds, seeds, ts.Format("20060102_150405"))
}

// JSONLSink writes one JSON object per line. It is safe for concurrent use.
type JSONLSink struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
}

// CreateJSONL creates (truncating) the file at path, making parent
// directories as needed.
func CreateJSONL(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	return &JSONLSink{path: path, file: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the file path.
func (s *JSONLSink) Path() string { return s.path }

// WriteInteraction implements Sink.
func (s *JSONLSink) WriteInteraction(_ context.Context, rec models.InteractionRecord) error {
	return s.writeLine(rec)
}

// WriteAggregate implements Sink.
func (s *JSONLSink) WriteAggregate(_ context.Context, agg models.RoundAggregate) error {
	if err := s.writeLine(agg); err != nil {
		return err
	}
	// Complete rounds reach disk before the next begins.
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

func (s *JSONLSink) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("write to closed log %s", s.path)
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("writing log: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Safe to call more than once.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	s.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
