package scenario

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/scenforge/scenforge/errors"
)

func TestHierarchyAddAndLookup(t *testing.T) {
	h := NewHierarchy("/out")

	base, err := h.Add("base", "grp", "")
	require.NoError(t, err)
	child, err := h.Add("tax-25", "grp", "base")
	require.NoError(t, err)

	assert.True(t, base.IsBaseline())
	assert.Nil(t, base.Parent())

	assert.False(t, child.IsBaseline())
	require.NotNil(t, child.Parent())
	assert.Equal(t, "base", child.Parent().Name)

	got, err := h.Lookup("tax-25")
	require.NoError(t, err)
	assert.Same(t, child, got)
}

func TestHierarchyGrandchildChain(t *testing.T) {
	h := NewHierarchy("/out")
	_, err := h.Add("base", "grp", "")
	require.NoError(t, err)
	_, err = h.Add("mid", "grp", "base")
	require.NoError(t, err)
	leaf, err := h.Add("leaf", "grp", "mid")
	require.NoError(t, err)

	assert.Equal(t, "mid", leaf.Parent().Name)
	assert.Equal(t, "base", leaf.Parent().Parent().Name)
	assert.Nil(t, leaf.Parent().Parent().Parent())
}

func TestHierarchyRejectsDuplicates(t *testing.T) {
	h := NewHierarchy("/out")
	_, err := h.Add("base", "grp", "")
	require.NoError(t, err)

	_, err = h.Add("base", "grp", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)
}

func TestHierarchyRejectsUnknownParent(t *testing.T) {
	h := NewHierarchy("/out")
	_, err := h.Add("child", "grp", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrComponentNotFound)
}

func TestNodePaths(t *testing.T) {
	h := NewHierarchy("/out")
	node, err := h.Add("base", "grp", "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/out", "local-xml", "grp", "base"), node.LocalDirAbs)
	assert.Equal(t, filepath.Join("..", "local-xml", "grp", "base"), node.LocalDirRel)
	assert.Equal(t, filepath.Join("/out", "dyn-xml", "grp", "base"), node.DynDirAbs)
	assert.Equal(t, filepath.Join(node.LocalDirAbs, "config.xml"), node.ConfigPath())
	assert.Equal(t, filepath.Join("/out", "exe"), h.ExeDir())
}
