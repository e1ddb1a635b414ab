// Package scenario implements the scenario hierarchy, path resolution and
// lazy local-copy materialization, the config.xml component registry, and
// the Editor facade exposing the named setup operations.
package scenario

import (
	"fmt"
	"path/filepath"

	errUtils "github.com/scenforge/scenforge/errors"
)

const (
	// LocalXMLName is the subtree holding scenario-owned static files.
	LocalXMLName = "local-xml"
	// DynXMLName is the parallel subtree of derived dynamic files.
	DynXMLName = "dyn-xml"
	// ConfigFileName is the per-scenario top-level configuration document.
	ConfigFileName = "config.xml"
)

// Node is one scenario in the hierarchy. A node holds its parent's name,
// not an owning reference; the parent is resolved through the Hierarchy.
type Node struct {
	Name     string
	GroupDir string

	// parentName is empty for baselines.
	parentName string

	hierarchy *Hierarchy

	// LocalDirAbs/LocalDirRel locate the scenario's private static tree;
	// the relative form is anchored at the model's exe directory.
	LocalDirAbs string
	LocalDirRel string

	// DynDirAbs/DynDirRel locate the derived dynamic tree.
	DynDirAbs string
	DynDirRel string
}

// Parent returns the parent node, or nil for baselines.
func (n *Node) Parent() *Node {
	if n.parentName == "" {
		return nil
	}
	parent, _ := n.hierarchy.Lookup(n.parentName)
	return parent
}

// IsBaseline reports whether the node has no parent.
func (n *Node) IsBaseline() bool {
	return n.parentName == ""
}

// ConfigPath returns the absolute path of the scenario's config.xml.
func (n *Node) ConfigPath() string {
	return filepath.Join(n.LocalDirAbs, ConfigFileName)
}

// Hierarchy is the registry of scenario nodes, keyed by name. It forms a
// forest: one root per baseline, unbounded depth.
type Hierarchy struct {
	scenarioRoot string
	nodes        map[string]*Node
}

// NewHierarchy creates an empty hierarchy rooted at scenarioRoot, under
// which local-xml and dyn-xml trees are laid out.
func NewHierarchy(scenarioRoot string) *Hierarchy {
	return &Hierarchy{
		scenarioRoot: scenarioRoot,
		nodes:        make(map[string]*Node),
	}
}

// ScenarioRoot returns the output root the hierarchy is anchored at.
func (h *Hierarchy) ScenarioRoot() string {
	return h.scenarioRoot
}

// ExeDir returns the model's working directory; component paths recorded in
// config.xml are relative to it.
func (h *Hierarchy) ExeDir() string {
	return filepath.Join(h.scenarioRoot, "exe")
}

// Add registers a scenario node. The parent, when named, must already be
// registered; duplicate names are rejected.
func (h *Hierarchy) Add(name, groupDir, parentName string) (*Node, error) {
	if _, exists := h.nodes[name]; exists {
		return nil, fmt.Errorf("%w: scenario %q already registered", errUtils.ErrBadArgument, name)
	}
	if parentName != "" {
		if _, ok := h.nodes[parentName]; !ok {
			return nil, fmt.Errorf("%w: parent scenario %q of %q", errUtils.ErrComponentNotFound, parentName, name)
		}
	}

	node := &Node{
		Name:        name,
		GroupDir:    groupDir,
		parentName:  parentName,
		hierarchy:   h,
		LocalDirAbs: filepath.Join(h.scenarioRoot, LocalXMLName, groupDir, name),
		LocalDirRel: filepath.Join("..", LocalXMLName, groupDir, name),
		DynDirAbs:   filepath.Join(h.scenarioRoot, DynXMLName, groupDir, name),
		DynDirRel:   filepath.Join("..", DynXMLName, groupDir, name),
	}
	h.nodes[name] = node
	return node, nil
}

// Lookup returns the node registered under name.
func (h *Hierarchy) Lookup(name string) (*Node, error) {
	node, ok := h.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: scenario %q", errUtils.ErrComponentNotFound, name)
	}
	return node, nil
}
