package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDBName is the file name of the run database inside an output
// directory.
const DefaultDBName = "namegame.db"

// GlobalPath returns the per-user namegame directory.
// On Unix: ~/.namegame
// On Windows: %USERPROFILE%\.namegame
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".namegame"), nil
}

// DBPath returns the run database path inside dir.
func DBPath(dir string) string {
	return filepath.Join(dir, DefaultDBName)
}
