package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvandessel/namegame/internal/models"
)

// maxLine bounds a single log line; raw replies are short but unbounded.
const maxLine = 4 << 20

// Load reads a JSONL log file, or every *.jsonl file in a directory.
// A malformed line in a single file is an error; in directory mode
// malformed lines are skipped.
func Load(path string) (*Log, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	log := &Log{}
	if !info.IsDir() {
		if err := loadFile(path, log, true); err != nil {
			return nil, err
		}
		return log, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if err := loadFile(filepath.Join(path, name), log, false); err != nil {
			return nil, err
		}
	}
	return log, nil
}

// recordKind peeks at the aggregate marker of a line.
type recordKind struct {
	Aggregate bool `json:"aggregate"`
}

func loadFile(path string, log *Log, strict bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := decodeLine([]byte(line), log); err != nil {
			if strict {
				return fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			continue
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

func decodeLine(line []byte, log *Log) error {
	var kind recordKind
	if err := json.Unmarshal(line, &kind); err != nil {
		return err
	}
	if kind.Aggregate {
		var agg models.RoundAggregate
		if err := json.Unmarshal(line, &agg); err != nil {
			return err
		}
		log.Aggregates = append(log.Aggregates, agg)
		return nil
	}
	var rec models.InteractionRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return err
	}
	log.Interactions = append(log.Interactions, rec)
	return nil
}
