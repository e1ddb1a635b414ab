//go:build !windows

package filesystem

import (
	"os"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic writes data to filename atomically via temp file + rename.
// Readers never see a truncated file; durability depends on fsync behavior.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(filename, data, perm)
}
