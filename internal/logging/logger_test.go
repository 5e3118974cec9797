package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidLevel(t *testing.T) {
	for _, s := range []string{"", "info", "DEBUG", "trace"} {
		if !ValidLevel(s) {
			t.Errorf("ValidLevel(%q) = false", s)
		}
	}
	for _, s := range []string{"warn", "verbose"} {
		if ValidLevel(s) {
			t.Errorf("ValidLevel(%q) = true", s)
		}
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtTrace bool
	}{
		{"info filters debug", "info", false, false},
		{"debug passes debug", "debug", true, false},
		{"trace passes everything", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v", got, tt.logAtDebug)
			}

			buf.Reset()
			logger.Log(context.Background(), LevelTrace, "raw reply")
			if got := strings.Contains(buf.String(), "raw reply"); got != tt.logAtTrace {
				t.Errorf("trace message visible = %v, want %v", got, tt.logAtTrace)
			}
			if tt.logAtTrace && !strings.Contains(buf.String(), "level=TRACE") {
				t.Errorf("trace level not labelled: %q", buf.String())
			}
		})
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	NewJSONLogger("info", &buf).Info("round done", "round", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["round"] != float64(3) {
		t.Errorf("round = %v, want 3", entry["round"])
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("dropped")
}

func TestNewDecisionLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "info")
	if dl != nil {
		t.Error("expected nil DecisionLogger at info level")
	}

	// Nil logger should still be safe to use
	dl.LogDecision(Decision{AgentID: 1})
	dl.Log(map[string]any{"event": "test"})

	if _, err := os.Stat(filepath.Join(dir, "decisions.jsonl")); err == nil {
		t.Error("decisions.jsonl should not exist at info level")
	}
}

func TestDecisionLogger_LogDecision(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")
	if dl == nil {
		t.Fatal("expected DecisionLogger at debug level")
	}

	dl.LogDecision(Decision{Seed: 1, Round: 2, AgentID: 3, Anchor: "C2", Symbol: "C5", Path: "retry", Compliant: true, Calls: 2, Tokens: 6})
	dl.LogDecision(Decision{Seed: 1, Round: 2, AgentID: 4, Anchor: "C1", Path: "undecodable", Calls: 2})
	dl.Close()

	data, err := os.ReadFile(filepath.Join(dir, "decisions.jsonl"))
	if err != nil {
		t.Fatalf("read decisions.jsonl: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if first["symbol"] != "C5" || first["path"] != "retry" || first["agent_id"] != float64(3) {
		t.Errorf("unexpected entry %v", first)
	}
	if _, ok := first["time"]; !ok {
		t.Error("expected time field")
	}

	var second map[string]any
	json.Unmarshal([]byte(lines[1]), &second)
	if _, ok := second["symbol"]; ok {
		t.Error("undecodable entry should omit symbol")
	}
}

func TestDecisionLogger_Log(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "trace")
	defer dl.Close()

	event := map[string]any{"event": "seed_done", "agreement": 0.5}
	dl.Log(event)

	if _, hasTime := event["time"]; hasTime {
		t.Error("Log() should not mutate caller's map")
	}

	data, err := os.ReadFile(filepath.Join(dir, "decisions.jsonl"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "seed_done") {
		t.Error("expected event in decisions.jsonl")
	}
}

func TestDecisionLogger_LogAfterClose(t *testing.T) {
	dl := NewDecisionLogger(t.TempDir(), "debug")
	dl.Close()
	dl.LogDecision(Decision{})
	dl.Close()
}

func TestDecisionLogger_CreatesDirWithPermissions(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "sub", "dir")
	dl := NewDecisionLogger(nested, "debug")
	if dl == nil {
		t.Fatal("expected non-nil DecisionLogger when dir needs creation")
	}
	defer dl.Close()

	dl.Log(map[string]any{"event": "perm_test"})

	info, err := os.Stat(filepath.Join(nested, "decisions.jsonl"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}
