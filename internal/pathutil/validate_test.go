package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{}\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveLogPath(t *testing.T) {
	root := t.TempDir()
	allowed := filepath.Join(root, "data")
	outside := filepath.Join(root, "elsewhere")

	writeFile(t, filepath.Join(allowed, "logs_nl_N4_R3_S1_20260101_000000.jsonl"))
	writeFile(t, filepath.Join(allowed, "namegame.db"))
	writeFile(t, filepath.Join(outside, "secret.jsonl"))

	tests := []struct {
		name    string
		path    string
		wantErr error
		errText string
	}{
		{"log file", filepath.Join(allowed, "logs_nl_N4_R3_S1_20260101_000000.jsonl"), nil, ""},
		{"log directory", allowed, nil, ""},
		{"traversal", filepath.Join(allowed, "..", "elsewhere", "secret.jsonl"), ErrOutsideAllowed, ""},
		{"outside", filepath.Join(outside, "secret.jsonl"), ErrOutsideAllowed, ""},
		{"not a log", filepath.Join(allowed, "namegame.db"), ErrNotRunLog, ""},
		{"missing", filepath.Join(allowed, "nope.jsonl"), nil, "cannot resolve"},
		{"empty", "", nil, "empty"},
		{"null byte", allowed + "\x00x", nil, "null byte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveLogPath(tt.path, []string{allowed})
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			case tt.errText != "":
				if err == nil || !strings.Contains(err.Error(), tt.errText) {
					t.Errorf("error = %v, want it to mention %q", err, tt.errText)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !filepath.IsAbs(got) {
					t.Errorf("resolved path %q is not absolute", got)
				}
			}
		})
	}
}

func TestResolveLogPath_NoAllowedDirs(t *testing.T) {
	if _, err := ResolveLogPath("/tmp/x.jsonl", nil); err == nil {
		t.Error("expected error without allowed directories")
	}
}

func TestResolveLogPath_Symlinks(t *testing.T) {
	root := t.TempDir()
	allowed := filepath.Join(root, "data")
	outside := filepath.Join(root, "elsewhere")
	writeFile(t, filepath.Join(outside, "secret.jsonl"))
	writeFile(t, filepath.Join(allowed, "real.jsonl"))

	escape := filepath.Join(allowed, "escape.jsonl")
	if err := os.Symlink(filepath.Join(outside, "secret.jsonl"), escape); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if _, err := ResolveLogPath(escape, []string{allowed}); !errors.Is(err, ErrOutsideAllowed) {
		t.Errorf("symlink escape error = %v, want ErrOutsideAllowed", err)
	}

	alias := filepath.Join(allowed, "alias.jsonl")
	if err := os.Symlink(filepath.Join(allowed, "real.jsonl"), alias); err != nil {
		t.Fatal(err)
	}
	got, err := ResolveLogPath(alias, []string{allowed})
	if err != nil {
		t.Fatalf("internal symlink rejected: %v", err)
	}
	if filepath.Base(got) != "real.jsonl" {
		t.Errorf("resolved = %q, want the link target", got)
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/home/user/.namegame/config.yaml", ".../.namegame/config.yaml"},
		{"/audit.jsonl", "audit.jsonl"},
		{"run.jsonl", "run.jsonl"},
	}
	for _, tt := range tests {
		if got := RedactPath(tt.in); got != tt.want {
			t.Errorf("RedactPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAllowedLogDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dirs, err := AllowedLogDirs("/srv/data")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/srv/data", filepath.Join(home, ".namegame")}
	if len(dirs) != len(want) {
		t.Fatalf("dirs = %v, want %v", dirs, want)
	}
	for i := range want {
		if dirs[i] != want[i] {
			t.Errorf("dirs[%d] = %q, want %q", i, dirs[i], want[i])
		}
	}
}
