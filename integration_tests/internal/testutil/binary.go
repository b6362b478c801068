package testutil

import (
	"os"
	"path/filepath"
)

// GetBinaryPath returns the path to the depsched binary for integration tests.
// It checks, in order:
// 1. Current directory (./depsched)
// 2. Parent directory (../depsched)
// 3. bin directory (../bin/depsched)
func GetBinaryPath() string {
	if _, err := os.Stat("depsched"); err == nil {
		return "./depsched"
	}

	if _, err := os.Stat("../depsched"); err == nil {
		return "../depsched"
	}

	binPath := filepath.Join("..", "bin", "depsched")
	if _, err := os.Stat(binPath); err == nil {
		return binPath
	}

	return "./depsched"
}
