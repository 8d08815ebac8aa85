package files

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic writes data next to path and renames it into place, so a
// reader never observes a partially written artifact.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}

	return nil
}
