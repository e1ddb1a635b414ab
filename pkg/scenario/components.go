package scenario

import (
	"fmt"
	"path/filepath"

	"github.com/beevik/etree"

	errUtils "github.com/scenforge/scenforge/errors"
	log "github.com/scenforge/scenforge/pkg/logger"
	"github.com/scenforge/scenforge/pkg/xmldoc"
)

// Recognized groups in a scenario's top-level configuration document.
const (
	GroupStrings            = "Strings"
	GroupBools              = "Bools"
	GroupInts               = "Ints"
	GroupDoubles            = "Doubles"
	GroupFiles              = "Files"
	GroupScenarioComponents = "ScenarioComponents"
)

// Components operates on the ScenarioComponents section of one scenario's
// configuration document: named slots pointing to relative file paths.
// Exactly one path per name at any time; Add enforces uniqueness.
type Components struct {
	cache      *xmldoc.Cache
	configPath string
}

// NewComponents creates a registry bound to the configuration document at
// configPath, accessed through the shared cache.
func NewComponents(cache *xmldoc.Cache, configPath string) *Components {
	return &Components{cache: cache, configPath: configPath}
}

// ConfigPath returns the path of the underlying configuration document.
func (c *Components) ConfigPath() string {
	return c.configPath
}

func (c *Components) section() (*xmldoc.Document, *etree.Element, error) {
	doc, err := c.cache.Get(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	elt := doc.Tree.FindElement("//" + GroupScenarioComponents)
	if elt == nil {
		return nil, nil, fmt.Errorf("%w: no <%s> section in %s",
			errUtils.ErrElementNotFound, GroupScenarioComponents, c.configPath)
	}
	return doc, elt, nil
}

func findValue(section *etree.Element, name string) *etree.Element {
	for _, child := range section.SelectElements("Value") {
		if child.SelectAttrValue("name", "") == name {
			return child
		}
	}
	return nil
}

func newValue(name, path string) *etree.Element {
	elt := etree.NewElement("Value")
	elt.CreateAttr("name", name)
	elt.SetText(filepath.ToSlash(path))
	return elt
}

// Add appends a component at the end of the list. A duplicate name is an
// error; callers needing replace semantics must Delete first.
func (c *Components) Add(name, path string) error {
	doc, section, err := c.section()
	if err != nil {
		return err
	}
	if findValue(section, name) != nil {
		return fmt.Errorf("%w: component %q already present in %s",
			errUtils.ErrBadArgument, name, c.configPath)
	}

	log.Debug("adding scenario component", "name", name, "path", path)
	section.AddChild(newValue(name, path))
	c.cache.MarkDirty(doc)
	return nil
}

// InsertAfter inserts a component immediately following the entry named
// afterName, which must exist.
func (c *Components) InsertAfter(name, path, afterName string) error {
	doc, section, err := c.section()
	if err != nil {
		return err
	}
	anchor := findValue(section, afterName)
	if anchor == nil {
		return fmt.Errorf("%w: cannot insert %q after %q: no such component in %s",
			errUtils.ErrComponentNotFound, name, afterName, c.configPath)
	}

	log.Debug("inserting scenario component", "name", name, "path", path, "after", afterName)
	section.InsertChildAt(anchor.Index()+1, newValue(name, path))
	c.cache.MarkDirty(doc)
	return nil
}

// Update points an existing component at a new path. The name must exist.
func (c *Components) Update(name, path string) error {
	doc, section, err := c.section()
	if err != nil {
		return err
	}
	elt := findValue(section, name)
	if elt == nil {
		return fmt.Errorf("%w: component %q in %s", errUtils.ErrComponentNotFound, name, c.configPath)
	}

	elt.SetText(filepath.ToSlash(path))
	c.cache.MarkDirty(doc)
	return nil
}

// Delete removes the component named name. Absence is benign.
func (c *Components) Delete(name string) error {
	doc, section, err := c.section()
	if err != nil {
		return err
	}
	elt := findValue(section, name)
	if elt == nil {
		return nil
	}

	log.Debug("deleting scenario component", "name", name)
	section.RemoveChild(elt)
	c.cache.MarkDirty(doc)
	return nil
}

// Rename finds the entry whose recorded path exactly equals oldPathMatch
// and gives it a new name. Used once per root scenario to assign unique
// names to reference components that ship with colliding defaults.
func (c *Components) Rename(oldPathMatch, newName string) error {
	doc, section, err := c.section()
	if err != nil {
		return err
	}

	want := filepath.ToSlash(oldPathMatch)
	for _, child := range section.SelectElements("Value") {
		if filepath.ToSlash(child.Text()) == want {
			child.CreateAttr("name", newName)
			c.cache.MarkDirty(doc)
			return nil
		}
	}
	return fmt.Errorf("%w: no component with path %q in %s",
		errUtils.ErrComponentNotFound, oldPathMatch, c.configPath)
}

// Lookup returns the path recorded for name.
func (c *Components) Lookup(name string) (string, error) {
	_, section, err := c.section()
	if err != nil {
		return "", err
	}
	elt := findValue(section, name)
	if elt == nil {
		return "", fmt.Errorf("%w: component %q in %s", errUtils.ErrComponentNotFound, name, c.configPath)
	}
	return elt.Text(), nil
}

// Exists reports whether a component named name is present.
func (c *Components) Exists(name string) (bool, error) {
	_, section, err := c.section()
	if err != nil {
		return false, err
	}
	return findValue(section, name) != nil, nil
}

// FileAttrs carries the optional attributes of <Files> group entries.
type FileAttrs struct {
	WriteOutput        *bool
	AppendScenarioName *bool
}

// UpdateConfigValue updates an arbitrary <group>/<Value name="..."> entry
// of the configuration document, i.e. <Group><Value name="x">v</Value></Group>.
// A nil value leaves the text untouched (used to set Files attributes only).
// The entry must exist.
func (c *Components) UpdateConfigValue(group, name string, value any, attrs *FileAttrs) error {
	doc, err := c.cache.Get(c.configPath)
	if err != nil {
		return err
	}

	prefix := fmt.Sprintf("//%s/Value[@name='%s']", group, name)

	var instructions []xmldoc.Instruction
	if value != nil {
		instructions = append(instructions, xmldoc.Instruction{
			Selector: prefix, Op: xmldoc.OpAssign, Value: value,
		})
	}
	if attrs != nil {
		if attrs.WriteOutput != nil {
			instructions = append(instructions, xmldoc.Instruction{
				Selector: prefix + "/@write-output", Op: xmldoc.OpAssign, Value: boolInt(*attrs.WriteOutput),
			})
		}
		if attrs.AppendScenarioName != nil {
			instructions = append(instructions, xmldoc.Instruction{
				Selector: prefix + "/@append-scenario-name", Op: xmldoc.OpAssign, Value: boolInt(*attrs.AppendScenarioName),
			})
		}
	}
	if len(instructions) == 0 {
		return nil
	}

	changed, err := c.cache.Apply(doc, instructions)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: no <%s> entry named %q in %s",
			errUtils.ErrComponentNotFound, group, name, c.configPath)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
