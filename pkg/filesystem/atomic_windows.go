//go:build windows

package filesystem

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to filename via a temp file and rename.
// Windows lacks atomic replace-over-open-file semantics; this is
// best-effort only.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}

	os.Remove(filename)
	return os.Rename(tmpName, filename)
}
