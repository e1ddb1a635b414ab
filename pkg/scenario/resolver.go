package scenario

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	errUtils "github.com/scenforge/scenforge/errors"
	"github.com/scenforge/scenforge/pkg/filesystem"
	log "github.com/scenforge/scenforge/pkg/logger"
)

// referencePrefixes are the fixed-priority locations, relative to the
// reference workspace, searched once the parent chain is exhausted.
var referencePrefixes = []string{
	filepath.Join("input", "xml"),
	filepath.Join("input", "solution"),
}

// xmlDirPattern matches a topic subdirectory segment like "/energy-xml/".
// When a source path carries one, the tail below it is retained in the
// scenario-local destination so same-named files from different topics
// cannot collide.
var xmlDirPattern = regexp.MustCompile(`/[^/]*-xml/`)

// PathKind classifies where a nominal path points.
type PathKind int

const (
	// KindReference is a path under the read-only reference workspace.
	KindReference PathKind = iota
	// KindScenarioLocal is a path under some scenario's local-xml tree.
	KindScenarioLocal
	// KindScenarioDynamic is a path under some scenario's dyn-xml tree.
	KindScenarioDynamic
)

// Classification is the result of Resolver.Classify.
type Classification struct {
	Kind PathKind

	// Scenario is the owning scenario name for scenario-relative paths.
	Scenario string

	// Tail is the path below the owning directory (scenario dir or
	// reference prefix).
	Tail string
}

// Resolver maps between absolute and scenario-relative paths and finds the
// most-derived existing copy of a file for a scenario chain. It is pure
// apart from MaterializeLocal's single idempotent copy.
type Resolver struct {
	node         *Node
	refWorkspace string
}

// NewResolver creates a resolver for the given scenario node.
func NewResolver(node *Node, refWorkspace string) *Resolver {
	return &Resolver{node: node, refWorkspace: refWorkspace}
}

// AbsFromExe converts a path recorded relative to the model's exe directory
// into an absolute path.
func (r *Resolver) AbsFromExe(relPath string) string {
	if filepath.IsAbs(relPath) {
		return filepath.Clean(relPath)
	}
	return filepath.Clean(filepath.Join(r.node.hierarchy.ExeDir(), relPath))
}

// Classify determines whether path falls under the current scenario chain's
// private trees or the global reference workspace.
func (r *Resolver) Classify(path string) Classification {
	clean := filepath.Clean(path)
	root := r.node.hierarchy.ScenarioRoot()

	for _, sub := range []struct {
		name string
		kind PathKind
	}{
		{LocalXMLName, KindScenarioLocal},
		{DynXMLName, KindScenarioDynamic},
	} {
		prefix := filepath.Join(root, sub.name) + string(filepath.Separator)
		if !strings.HasPrefix(clean, prefix) {
			continue
		}
		rest := strings.TrimPrefix(clean, prefix)
		// rest is <group>/<scenario>/<tail...>
		parts := strings.SplitN(rest, string(filepath.Separator), 3)
		if len(parts) == 3 {
			return Classification{Kind: sub.kind, Scenario: parts[1], Tail: parts[2]}
		}
	}

	tail := clean
	if prefix := r.refWorkspace + string(filepath.Separator); strings.HasPrefix(clean, prefix) {
		tail = strings.TrimPrefix(clean, prefix)
	}
	return Classification{Kind: KindReference, Tail: tail}
}

// ResolveClosest finds the most-derived existing copy of tail: the current
// scenario's local tree first, then each ancestor in turn, then the fixed
// reference prefixes.
func (r *Resolver) ResolveClosest(tail string) (string, error) {
	for node := r.node; node != nil; node = node.Parent() {
		candidate := filepath.Join(node.LocalDirAbs, tail)
		if filesystem.Exists(candidate) {
			return candidate, nil
		}
	}

	for _, prefix := range referencePrefixes {
		candidate := filepath.Join(r.refWorkspace, prefix, tail)
		if filesystem.Exists(candidate) {
			return candidate, nil
		}
	}

	return "", errUtils.Build(errUtils.ErrFileNotFound).
		WithContext("tail", tail).
		WithContext("scenario", r.node.Name).
		Err()
}

// MaterializeLocal returns scenario-local paths for tail, copying the
// closest existing version into the scenario's private tree on first use.
// Repeat calls perform no further I/O. The copy runs one way only: shared
// and reference files are sources, never targets.
func (r *Resolver) MaterializeLocal(tail string) (relPath, absPath string, err error) {
	absPath = filepath.Join(r.node.LocalDirAbs, tail)
	relPath = filepath.Join(r.node.LocalDirRel, tail)

	if filesystem.Exists(absPath) {
		return relPath, absPath, nil
	}

	// Resolve from the parent chain so we never "materialize" from a
	// partial local file.
	src := ""
	if parent := r.node.Parent(); parent != nil {
		src, err = NewResolver(parent, r.refWorkspace).ResolveClosest(tail)
	} else {
		src, err = r.resolveReference(tail)
	}
	if err != nil {
		return "", "", err
	}

	log.Debug("materializing local copy", "scenario", r.node.Name, "src", src, "dst", absPath)
	if err := filesystem.CopyIfMissing(src, absPath); err != nil {
		return "", "", fmt.Errorf("materializing %s: %w", tail, err)
	}
	return relPath, absPath, nil
}

func (r *Resolver) resolveReference(tail string) (string, error) {
	for _, prefix := range referencePrefixes {
		candidate := filepath.Join(r.refWorkspace, prefix, tail)
		if filesystem.Exists(candidate) {
			return candidate, nil
		}
	}
	return "", errUtils.Build(errUtils.ErrFileNotFound).
		WithContext("tail", tail).
		WithContext("workspace", r.refWorkspace).
		Err()
}

// RetainedTail computes the scenario-local tail for a source path: the
// portion below the last "*-xml/" segment when present (except local-xml,
// which contributes only the basename), the bare basename otherwise.
func RetainedTail(srcAbsPath string) string {
	normalized := filepath.ToSlash(srcAbsPath)
	matches := xmlDirPattern.FindAllStringIndex(normalized, -1)
	if len(matches) == 0 {
		return filepath.Base(srcAbsPath)
	}

	last := matches[len(matches)-1]
	segment := normalized[last[0]:last[1]]
	if segment == "/"+LocalXMLName+"/" {
		return filepath.Base(srcAbsPath)
	}
	return filepath.FromSlash(normalized[last[0]+1:])
}
