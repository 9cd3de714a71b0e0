package utils

import (
	"os"
	"path/filepath"
)

// FindUp searches for a file called name starting from startDir and walking up
// to the filesystem root. It returns the absolute path of the first match and
// false when no directory holds the file.
func FindUp(startDir, name string) (string, bool) {
	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}

	for {
		candidate := filepath.Join(currentDir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			return "", false
		}
		currentDir = parentDir
	}
}
