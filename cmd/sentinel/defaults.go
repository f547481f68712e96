package main

import (
	"os"
	"path/filepath"
)

// defaultDataDir picks a per-user data directory, scoped to this sentinel's
// own directory name.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".sentinel")
}
