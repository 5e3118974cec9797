// Package pathutil confines caller-supplied log paths to known directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideAllowed means the resolved path escapes every allowed directory.
	ErrOutsideAllowed = errors.New("path is outside allowed directories")

	// ErrNotRunLog means the path is neither a directory nor a .jsonl file.
	ErrNotRunLog = errors.New("path is not a run log or log directory")
)

// RedactPath reduces a full path to .../<parent>/<basename> for error messages.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// ResolveLogPath returns the symlink-free absolute form of path after
// checking that it exists, lies inside one of allowedDirs, and is either a
// directory or a .jsonl file.
func ResolveLogPath(path string, allowedDirs []string) (string, error) {
	if path == "" {
		return "", errors.New("log path is empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return "", errors.New("log path contains null byte")
	}
	if len(allowedDirs) == 0 {
		return "", errors.New("no allowed log directories configured")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", RedactPath(path), err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", RedactPath(abs), err)
	}

	if !insideAny(resolved, allowedDirs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideAllowed, RedactPath(abs))
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("cannot stat %s: %w", RedactPath(abs), err)
	}
	if !info.IsDir() && filepath.Ext(resolved) != ".jsonl" {
		return "", fmt.Errorf("%w: %s", ErrNotRunLog, RedactPath(abs))
	}
	return resolved, nil
}

func insideAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		// Allowed directories may not exist yet; they then contain nothing.
		base, err := filepath.EvalSymlinks(abs)
		if err != nil {
			continue
		}
		if path == base || strings.HasPrefix(path, base+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// AllowedLogDirs returns the directories run logs may be read from:
// the output directory and ~/.namegame/.
func AllowedLogDirs(outputDir string) ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return []string{
		outputDir,
		filepath.Join(homeDir, ".namegame"),
	}, nil
}
