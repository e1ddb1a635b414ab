package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	errUtils "github.com/scenforge/scenforge/errors"
	"github.com/scenforge/scenforge/pkg/filesystem"
	log "github.com/scenforge/scenforge/pkg/logger"
	"github.com/scenforge/scenforge/pkg/schema"
	"github.com/scenforge/scenforge/pkg/xmldoc"
)

// State tracks which setup phases have completed for an Editor.
type State int

const (
	// Uninitialized means no setup phase has run.
	Uninitialized State = iota
	// StaticSetupDone means the local-xml tree and config document exist.
	StaticSetupDone
	// DynamicSetupDone means the dyn-xml tree has been populated.
	DynamicSetupDone
)

// Editor binds one scenario's identity and exposes the named edit
// operations. Every operation follows the same shape: resolve and
// materialize the owning file, build selectors from caller identifiers,
// apply edit instructions through the shared cache, and refresh the owning
// component's path in the scenario configuration.
type Editor struct {
	settings   schema.Settings
	cache      *xmldoc.Cache
	node       *Node
	resolver   *Resolver
	components *Components

	// sourceDir holds the scenario's fully-custom static files.
	sourceDir string

	state State
}

// NewEditor creates an editor for the given scenario node. subdir overrides
// the source subdirectory; empty means the scenario name.
func NewEditor(settings schema.Settings, cache *xmldoc.Cache, node *Node, subdir string) *Editor {
	if subdir == "" {
		subdir = node.Name
	}
	return &Editor{
		settings:   settings,
		cache:      cache,
		node:       node,
		resolver:   NewResolver(node, settings.ReferenceWorkspace),
		components: NewComponents(cache, node.ConfigPath()),
		sourceDir:  filepath.Join(settings.SourceRoot, node.GroupDir, subdir),
	}
}

// Node returns the scenario node the editor is bound to.
func (e *Editor) Node() *Node {
	return e.node
}

// Components returns the component registry for the scenario's config.
func (e *Editor) Components() *Components {
	return e.components
}

// Cache returns the shared document cache.
func (e *Editor) Cache() *xmldoc.Cache {
	return e.cache
}

// State returns the editor's setup state.
func (e *Editor) State() State {
	return e.state
}

func (e *Editor) capabilities() (Capabilities, error) {
	return ResolveCapabilities(e.settings.ModelVersion)
}

// SetupOptions controls the setup phases.
type SetupOptions struct {
	// SkipStatic / SkipDynamic make the corresponding phase a no-op.
	// The cache is flushed at the end regardless.
	SkipStatic  bool
	SkipDynamic bool

	// StopPeriod, when set, is applied after the static phase. Values
	// below 1000 are literal period indexes; larger values are calendar
	// years.
	StopPeriod *int

	// Optional Files-group output toggles. Nil leaves the reference
	// behavior untouched.
	WriteDebugFile    *bool
	WriteXMLOutput    *bool
	WriteOutputCSV    *bool
	WriteRestartFiles *bool
	WritePrices       *bool
}

// Setup runs the static and dynamic phases per opts and always flushes the
// document cache, so files touched by many edits are written once.
func (e *Editor) Setup(opts SetupOptions) (err error) {
	defer func() {
		if flushErr := e.cache.FlushAll(); flushErr != nil && err == nil {
			err = flushErr
		}
	}()

	if !opts.SkipStatic {
		if err = e.SetupStatic(opts); err != nil {
			return err
		}
	}
	if !opts.SkipDynamic {
		if err = e.SetupDynamic(); err != nil {
			return err
		}
	}
	return nil
}

// SetupStatic creates the scenario's local-xml tree: clears stale files for
// derived scenarios, copies fully-custom static files from the source
// directory, clones the parent's (or the reference) configuration document,
// and stamps the scenario name. Root scenarios additionally get the one-time
// component renaming pass on model versions that need it.
func (e *Editor) SetupStatic(opts SetupOptions) error {
	log.Info("generating local-xml", "scenario", e.node.Name)

	if err := filesystem.EnsureDir(e.node.LocalDirAbs); err != nil {
		return err
	}
	if err := filesystem.EnsureDir(e.node.DynDirAbs); err != nil {
		return err
	}

	// Derived scenarios are rebuilt from scratch each run; stale local
	// files would mask parent edits.
	if !e.node.IsBaseline() {
		if err := e.clearStaleFiles(); err != nil {
			return err
		}
	}

	if err := e.copyStaticSources(); err != nil {
		return err
	}

	if err := e.cloneConfig(); err != nil {
		return err
	}

	if err := e.components.UpdateConfigValue(GroupStrings, "scenarioName", e.node.Name, nil); err != nil {
		return err
	}

	caps, err := e.capabilities()
	if err != nil {
		return err
	}

	// Derived scenarios inherit unique names from their baseline.
	if e.node.IsBaseline() && !caps.UniqueComponentNames {
		if err := e.makeComponentsUnique(caps); err != nil {
			return err
		}
	}

	if opts.StopPeriod != nil {
		if err := e.SetStopPeriod(*opts.StopPeriod); err != nil {
			return err
		}
	}
	if err := e.applyOutputToggles(opts, caps); err != nil {
		return err
	}

	e.state = StaticSetupDone
	return nil
}

func (e *Editor) clearStaleFiles() error {
	entries, err := os.ReadDir(e.node.LocalDirAbs)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		stale := filepath.Join(e.node.LocalDirAbs, entry.Name())
		log.Debug("removing stale file", "path", stale)
		e.cache.Invalidate(stale)
		if err := os.RemoveAll(stale); err != nil {
			return err
		}
	}
	return nil
}

func (e *Editor) copyStaticSources() error {
	files, err := e.staticSourceFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Info("no static XML files to copy", "dir", e.sourceDir)
		return nil
	}

	log.Info("copying static XML files", "count", len(files), "src", e.sourceDir, "dst", e.node.LocalDirAbs)
	for _, src := range files {
		dst := filepath.Join(e.node.LocalDirAbs, filepath.Base(src))
		if err := filesystem.CopyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// staticSourceFiles matches *.xml in the source dir and, for older project
// layouts, in an "xml" subdirectory.
func (e *Editor) staticSourceFiles() ([]string, error) {
	var files []string
	for _, pattern := range []string{
		filepath.Join(e.sourceDir, "*.xml"),
		filepath.Join(e.sourceDir, "xml", "*.xml"),
	} {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("globbing %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

func (e *Editor) cloneConfig() error {
	src := e.settings.ReferenceConfig
	if parent := e.node.Parent(); parent != nil {
		src = parent.ConfigPath()
	}

	dst := e.node.ConfigPath()
	log.Info("cloning configuration", "src", src, "dst", dst)
	if err := filesystem.CopyFile(src, dst); err != nil {
		return errUtils.Build(errUtils.ErrFileNotFound).
			WithCause(err).
			WithContext("config", src).
			Err()
	}
	// The on-disk clone replaced whatever an earlier run left there.
	e.cache.Invalidate(dst)
	return nil
}

func (e *Editor) applyOutputToggles(opts SetupOptions, caps Capabilities) error {
	if opts.WritePrices != nil {
		if err := e.components.UpdateConfigValue(GroupBools, "PrintPrices", boolInt(*opts.WritePrices), nil); err != nil {
			return err
		}
	}
	if opts.WriteDebugFile != nil {
		if err := e.components.UpdateConfigValue(GroupFiles, "xmlDebugFileName", nil,
			&FileAttrs{WriteOutput: opts.WriteDebugFile}); err != nil {
			return err
		}
	}
	if opts.WriteXMLOutput != nil {
		if err := e.components.UpdateConfigValue(GroupFiles, "xmlOutputFileName", nil,
			&FileAttrs{WriteOutput: opts.WriteXMLOutput}); err != nil {
			return err
		}
	}
	if opts.WriteOutputCSV != nil && caps.WriteOutputCSV {
		if err := e.components.UpdateConfigValue(GroupFiles, "outFileName", nil,
			&FileAttrs{WriteOutput: opts.WriteOutputCSV}); err != nil {
			return err
		}
	}
	if opts.WriteRestartFiles != nil && caps.RestartFiles {
		if err := e.components.UpdateConfigValue(GroupFiles, "restart", nil,
			&FileAttrs{WriteOutput: opts.WriteRestartFiles}); err != nil {
			return err
		}
	}
	return nil
}

// SetupDynamic recreates the dynamic-output directory and links (or copies,
// per policy) every static file from the local directory into it.
func (e *Editor) SetupDynamic() error {
	log.Info("generating dyn-xml", "scenario", e.node.Name)

	if err := filesystem.RecreateDir(e.node.DynDirAbs); err != nil {
		return err
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(e.node.LocalDirAbs, "*.xml"))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		log.Info("no static XML files to link", "dir", e.node.LocalDirAbs)
		e.state = DynamicSetupDone
		return nil
	}

	mode := "link"
	if e.settings.CopyAllFiles {
		mode = "copy"
	}
	log.Info("populating dyn-xml", "mode", mode, "count", len(matches))

	for _, src := range matches {
		dst := filepath.Join(e.node.DynDirAbs, filepath.Base(src))
		if err := filesystem.LinkOrCopy(src, dst, e.settings.CopyAllFiles); err != nil {
			return err
		}
	}

	e.state = DynamicSetupDone
	return nil
}

// LocalCopy resolves the file behind the component named tag to the most
// local version in the scenario hierarchy, materializing a private copy on
// first use, and returns its (relative, absolute) paths.
func (e *Editor) LocalCopy(tag string) (relPath, absPath string, err error) {
	pathname, err := e.components.Lookup(tag)
	if err != nil {
		return "", "", err
	}

	srcAbs := e.resolver.AbsFromExe(pathname)
	if !filesystem.Exists(srcAbs) {
		// Not under the scenario tree: fall back to the reference
		// configuration's record of the same component.
		log.Debug("component file missing locally, consulting reference", "tag", tag, "path", srcAbs)
		refComponents := NewComponents(e.cache, e.settings.ReferenceConfig)
		refPath, lookupErr := refComponents.Lookup(tag)
		if lookupErr != nil {
			return "", "", lookupErr
		}
		srcAbs = filepath.Clean(filepath.Join(e.settings.ReferenceWorkspace, "exe", refPath))
	}

	tail := RetainedTail(srcAbs)
	absPath = filepath.Join(e.node.LocalDirAbs, tail)
	relPath = filepath.Join(e.node.LocalDirRel, tail)

	if err := filesystem.CopyIfMissing(srcAbs, absPath); err != nil {
		return "", "", err
	}
	return relPath, absPath, nil
}

// editComponentFile applies instructions to the component's local copy and
// refreshes the component path. The shared pattern behind most operations.
func (e *Editor) editComponentFile(tag string, instructions []xmldoc.Instruction) error {
	fileRel, fileAbs, err := e.LocalCopy(tag)
	if err != nil {
		return err
	}

	doc, err := e.cache.Get(fileAbs)
	if err != nil {
		return err
	}
	if _, err := e.cache.Apply(doc, instructions); err != nil {
		return err
	}

	return e.components.Update(tag, fileRel)
}
