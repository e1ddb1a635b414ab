// Package workspace replicates the reference model tree into a private
// run workspace. Replication is guarded by an advisory file lock so
// concurrent runs sharing a workspace do not interleave, and by a creation
// marker so a workspace left half-built by a crash is rebuilt rather than
// trusted.
package workspace

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	errUtils "github.com/scenforge/scenforge/errors"
	"github.com/scenforge/scenforge/pkg/filesystem"
	log "github.com/scenforge/scenforge/pkg/logger"
	"github.com/scenforge/scenforge/pkg/scenario"
	"github.com/scenforge/scenforge/pkg/schema"
)

const (
	// lockFileName guards concurrent creation of the same workspace.
	lockFileName = ".creation.lock"

	// markerFileName exists while population runs. Finding it on entry
	// means a previous run died mid-copy and the tree cannot be trusted.
	markerFileName = ".creation-in-progress"

	// lockRetryDelay is the poll interval while waiting for the lock.
	lockRetryDelay = 250 * time.Millisecond
)

// Ensure makes dst a usable private workspace mirroring the reference tree
// named in settings. An existing fully-built workspace is left alone; a
// half-built one is torn down and rebuilt. When dst is the reference tree
// itself nothing is copied.
func Ensure(ctx context.Context, dst string, settings schema.Settings) error {
	ref := settings.ReferenceWorkspace

	if filesystem.SameFile(dst, ref) {
		log.Info("workspace is the reference tree, skipping replication", "path", dst)
		return nil
	}

	if err := filesystem.EnsureDir(dst); err != nil {
		return errUtils.Build(errUtils.ErrWorkspace).WithCause(err).WithContext("path", dst).Err()
	}

	fl := flock.New(filepath.Join(dst, lockFileName))
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return errUtils.Build(errUtils.ErrWorkspaceLocked).
			WithCause(err).
			WithContext("path", dst).
			Err()
	}
	if !locked {
		return errUtils.Build(errUtils.ErrWorkspaceLocked).WithContext("path", dst).Err()
	}
	defer fl.Unlock()

	return ensureLocked(dst, ref, settings)
}

func ensureLocked(dst, ref string, settings schema.Settings) error {
	marker := filepath.Join(dst, markerFileName)

	if filesystem.Exists(marker) {
		log.Warn("workspace was left mid-creation by an earlier run, rebuilding", "path", dst)
		if err := clearWorkspace(dst); err != nil {
			return errUtils.Build(errUtils.ErrWorkspace).WithCause(err).WithContext("path", dst).Err()
		}
	} else if populated(dst, settings) {
		log.Debug("workspace already populated", "path", dst)
		return nil
	}

	log.Info("populating workspace", "path", dst, "reference", ref)

	if err := os.WriteFile(marker, nil, filesystem.DefaultFilePerm); err != nil {
		return errUtils.Build(errUtils.ErrWorkspace).WithCause(err).WithContext("path", dst).Err()
	}

	if err := populate(dst, ref, settings); err != nil {
		// The marker stays behind so the next run rebuilds.
		return errUtils.Build(errUtils.ErrWorkspace).
			WithCause(err).
			WithContext("path", dst).
			WithContext("reference", ref).
			Err()
	}

	if err := os.Remove(marker); err != nil {
		return errUtils.Build(errUtils.ErrWorkspace).WithCause(err).WithContext("path", dst).Err()
	}
	return nil
}

// populated reports whether every required entry already exists in dst.
func populated(dst string, settings schema.Settings) bool {
	for _, rel := range settings.RequiredFiles {
		if !filesystem.Exists(filepath.Join(dst, rel)) {
			return false
		}
	}
	return filesystem.Exists(filepath.Join(dst, scenario.LocalXMLName)) &&
		filesystem.Exists(filepath.Join(dst, scenario.DynXMLName))
}

// clearWorkspace removes everything except the lock file, which the caller
// holds open.
func clearWorkspace(dst string) error {
	entries, err := os.ReadDir(dst)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Name() == lockFileName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func populate(dst, ref string, settings schema.Settings) error {
	linked := make(map[string]bool, len(settings.FilesToLink))
	for _, rel := range settings.FilesToLink {
		linked[rel] = true
	}

	for _, rel := range settings.RequiredFiles {
		src := filepath.Join(ref, rel)
		target := filepath.Join(dst, rel)

		info, err := os.Stat(src)
		if err != nil {
			return err
		}

		switch {
		case info.IsDir():
			if err := linkOrCopyTree(src, target, settings.CopyAllFiles && !linked[rel]); err != nil {
				return err
			}
		case linked[rel] || !settings.CopyAllFiles:
			if err := filesystem.LinkOrCopy(src, target, false); err != nil {
				return err
			}
		default:
			if err := filesystem.EnsureDir(filepath.Dir(target)); err != nil {
				return err
			}
			if err := filesystem.CopyLarge(src, target); err != nil {
				return err
			}
		}
	}

	for _, name := range []string{scenario.LocalXMLName, scenario.DynXMLName, "exe"} {
		if err := filesystem.EnsureDir(filepath.Join(dst, name)); err != nil {
			return err
		}
	}
	return nil
}

// linkOrCopyTree replicates a directory: a single symlink when linking is
// allowed, a recursive copy otherwise.
func linkOrCopyTree(src, dst string, copyFiles bool) error {
	if !copyFiles {
		return filesystem.LinkOrCopy(src, dst, false)
	}

	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return filesystem.EnsureDir(target)
		}
		return filesystem.CopyLarge(path, target)
	})
}
