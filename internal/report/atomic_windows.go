//go:build windows

package report

import (
	"os"
	"path/filepath"
)

// atomicWriteFile writes a report file through a temp-file rename, since
// renameio does not support Windows. Rename is atomic on the same volume.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, perm); err != nil {
		return err
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return err
	}

	return nil
}
