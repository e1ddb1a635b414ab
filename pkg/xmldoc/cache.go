// Package xmldoc provides the parsed-document cache and the edit engine used
// for all XML manipulation during scenario setup.
//
// The cache holds exactly one parsed tree per canonical file path for the
// lifetime of a run, so every edit against a file sees every earlier edit and
// mutated documents are flushed to disk exactly once. It is not safe for
// concurrent use; one setup process owns one scenario-output tree at a time.
package xmldoc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/beevik/etree"

	errUtils "github.com/scenforge/scenforge/errors"
	"github.com/scenforge/scenforge/pkg/filesystem"
	log "github.com/scenforge/scenforge/pkg/logger"
)

const indentSpaces = 2

// Document is one cached parsed tree. The same *Document is returned for
// every Get of the same canonical path within a run.
type Document struct {
	// Path is the canonical absolute path the document was parsed from and
	// will be flushed to.
	Path string

	// Tree is the parsed document. Mutations must be followed by MarkDirty
	// or they are silently dropped at flush time.
	Tree *etree.Document

	dirty bool
}

// Dirty reports whether the document has unflushed edits.
func (d *Document) Dirty() bool {
	return d.dirty
}

// Cache is a write-through cache of parsed XML documents keyed by canonical
// absolute path.
type Cache struct {
	docs map[string]*Document

	// parses counts disk parses, for write-minimization tests.
	parses int
	// writes counts disk flushes.
	writes int
}

// NewCache creates an empty document cache.
func NewCache() *Cache {
	return &Cache{docs: make(map[string]*Document)}
}

// canonicalPath resolves path to its canonical absolute form. Symlinks are
// resolved when the file exists so that a link and its target share one
// cache entry.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	// Not-yet-existing files (generated documents) canonicalize lexically.
	return filepath.Clean(abs), nil
}

// Get returns the cached document for path, parsing it from disk on first
// use. Parse failure is fatal to the caller; there is no partial parse.
func (c *Cache) Get(path string) (*Document, error) {
	canonical, err := canonicalPath(path)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing %s: %w", path, err)
	}

	if doc, ok := c.docs[canonical]; ok {
		return doc, nil
	}

	log.Debug("parsing document", "path", canonical)

	tree := etree.NewDocument()
	if err := tree.ReadFromFile(canonical); err != nil {
		return nil, errUtils.Build(errUtils.ErrXMLParse).
			WithCause(err).
			WithContext("path", canonical).
			Err()
	}

	doc := &Document{Path: canonical, Tree: tree}
	c.docs[canonical] = doc
	c.parses++
	return doc, nil
}

// Put registers a document constructed in memory (a generated file) under
// path, marked dirty so it is written at the next flush.
func (c *Cache) Put(path string, tree *etree.Document) (*Document, error) {
	canonical, err := canonicalPath(path)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing %s: %w", path, err)
	}
	doc := &Document{Path: canonical, Tree: tree, dirty: true}
	c.docs[canonical] = doc
	return doc, nil
}

// MarkDirty flags the document for writing at the next flush.
func (c *Cache) MarkDirty(doc *Document) {
	doc.dirty = true
}

// Flush serializes the document to its path if it is dirty, then clears the
// flag. Element and attribute order is preserved as parsed.
func (c *Cache) Flush(doc *Document) error {
	if !doc.dirty {
		return nil
	}

	log.Debug("writing document", "path", doc.Path)

	doc.Tree.Indent(indentSpaces)
	data, err := doc.Tree.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serializing %s: %w", doc.Path, err)
	}
	if err := filesystem.WriteFileAtomic(doc.Path, data, filesystem.DefaultFilePerm); err != nil {
		return fmt.Errorf("writing %s: %w", doc.Path, err)
	}

	doc.dirty = false
	c.writes++
	return nil
}

// FlushAll flushes every dirty document. Used at phase checkpoints so files
// touched by many edits are written once.
func (c *Cache) FlushAll() error {
	for _, doc := range c.docs {
		if err := c.Flush(doc); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops the entry for path, if cached. The next Get re-parses.
func (c *Cache) Invalidate(path string) {
	canonical, err := canonicalPath(path)
	if err != nil {
		return
	}
	delete(c.docs, canonical)
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	return len(c.docs)
}

// Stats returns the number of disk parses and writes performed so far.
func (c *Cache) Stats() (parses, writes int) {
	return c.parses, c.writes
}

// NewGeneratedDocument returns an empty document with an XML declaration,
// for files the tooling generates from scratch.
func NewGeneratedDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

// fileExists is a small helper shared by tests.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
