// Package filesystem provides the file primitives the scenario tooling is
// built on: atomic writes, one-directional copies from reference trees into
// scenario-private trees, and link-or-copy population of derived directories.
package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/scenforge/scenforge/pkg/logger"
)

const (
	// DefaultDirPerm is the permission used when creating directories.
	DefaultDirPerm = 0o755
	// DefaultFilePerm is the permission used for copied and written files.
	DefaultFilePerm = 0o644
)

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, DefaultDirPerm)
}

// RecreateDir removes dir (if present) and creates it empty.
func RecreateDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	return EnsureDir(dir)
}

// CopyFile copies src to dst byte-for-byte, creating parent directories.
// The destination is written atomically so readers never see a partial copy.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("creating parent of %s: %w", dst, err)
	}
	return WriteFileAtomic(dst, data, DefaultFilePerm)
}

// CopyIfMissing copies src to dst only if dst does not already exist.
// Repeat calls perform at most one disk copy.
func CopyIfMissing(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return nil
	}
	log.Debug("copying file", "src", src, "dst", dst)
	return CopyFile(src, dst)
}

// LinkOrCopy creates dst as a symlink to src, or as a copy when copyFiles
// is true. An existing dst is replaced.
func LinkOrCopy(src, dst string, copyFiles bool) error {
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("removing %s: %w", dst, err)
		}
	}
	if copyFiles {
		return CopyFile(src, dst)
	}
	return os.Symlink(src, dst)
}

// SameFile reports whether two paths refer to the same file. Either path
// not existing reports false.
func SameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// Exists reports whether path exists (without following symlinks).
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// copyReader is kept for large-file copies that should not be buffered in
// memory; unused by the XML paths, used by workspace population.
func copyReader(dst string, r io.Reader, perm os.FileMode) error {
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CopyLarge streams src to dst without buffering the whole file.
func CopyLarge(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	return copyReader(dst, in, DefaultFilePerm)
}
