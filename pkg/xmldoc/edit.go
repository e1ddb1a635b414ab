package xmldoc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	errUtils "github.com/scenforge/scenforge/errors"
)

// Op is an edit operation applied to matched elements.
type Op int

const (
	// OpAssign replaces element text (or an attribute value) with the
	// value's string form.
	OpAssign Op = iota
	// OpMultiply replaces numeric element text with oldText * value.
	// Not defined for attribute selectors.
	OpMultiply
	// OpAdd replaces numeric element text with oldText + value.
	// Not defined for attribute selectors.
	OpAdd
)

func (op Op) String() string {
	switch op {
	case OpAssign:
		return "assign"
	case OpMultiply:
		return "multiply"
	case OpAdd:
		return "add"
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Instruction is one declarative edit: a selector, an operation, and a value.
type Instruction struct {
	// Selector is a path query for element text, or for an attribute when
	// suffixed with "/@attrName".
	Selector string
	Op       Op
	Value    any
}

// attributePattern splits a selector ending in an attribute reference into
// the element selector and the attribute name.
var attributePattern = regexp.MustCompile(`(.*)/@([-\w]+)$`)

// compiled is an instruction whose selector has been validated and compiled.
type compiled struct {
	inst Instruction
	path etree.Path
	attr string
}

// compileInstructions validates every selector before anything is applied,
// so a selector syntax error fails the whole batch.
func compileInstructions(instructions []Instruction) ([]compiled, error) {
	out := make([]compiled, 0, len(instructions))

	for _, inst := range instructions {
		selector := inst.Selector
		attr := ""

		if m := attributePattern.FindStringSubmatch(selector); m != nil {
			selector = m[1]
			attr = m[2]
		}

		if attr != "" && inst.Op != OpAssign {
			return nil, fmt.Errorf("%w: operation %s not supported on attribute selector %q",
				errUtils.ErrBadArgument, inst.Op, inst.Selector)
		}

		path, err := etree.CompilePath(selector)
		if err != nil {
			return nil, errUtils.Build(errUtils.ErrBadSelector).
				WithCause(err).
				WithContext("selector", inst.Selector).
				Err()
		}

		out = append(out, compiled{inst: inst, path: path, attr: attr})
	}

	return out, nil
}

// Apply runs the instructions against doc in order. Each instruction's edits
// are visible to later instructions in the same call. An instruction
// matching zero elements is a no-op; changed is true iff at least one
// instruction matched at least one element. The document is marked dirty
// when changed.
//
// Selector errors fail the batch before any instruction is applied. A
// numeric failure on a matched element (non-numeric text under multiply or
// add) aborts the remaining instructions.
func (c *Cache) Apply(doc *Document, instructions []Instruction) (bool, error) {
	batch, err := compileInstructions(instructions)
	if err != nil {
		return false, err
	}

	changed := false

	for _, ci := range batch {
		elements := doc.Tree.FindElementsPath(ci.path)
		if len(elements) == 0 {
			continue
		}
		changed = true

		if ci.attr != "" {
			value := ValueString(ci.inst.Value)
			for _, elt := range elements {
				elt.CreateAttr(ci.attr, value)
			}
			continue
		}

		for _, elt := range elements {
			if err := applyToElement(elt, ci.inst); err != nil {
				return changed, err
			}
		}
	}

	if changed {
		c.MarkDirty(doc)
	}
	return changed, nil
}

func applyToElement(elt *etree.Element, inst Instruction) error {
	switch inst.Op {
	case OpAssign:
		elt.SetText(ValueString(inst.Value))
		return nil
	case OpMultiply, OpAdd:
		old, err := strconv.ParseFloat(strings.TrimSpace(elt.Text()), 64)
		if err != nil {
			return fmt.Errorf("%w: element <%s> text %q is not numeric (selector %q)",
				errUtils.ErrBadArgument, elt.Tag, elt.Text(), inst.Selector)
		}
		operand, err := valueFloat(inst.Value)
		if err != nil {
			return fmt.Errorf("%w: selector %q: %v", errUtils.ErrBadArgument, inst.Selector, err)
		}
		if inst.Op == OpMultiply {
			elt.SetText(FormatFloat(old * operand))
		} else {
			elt.SetText(FormatFloat(old + operand))
		}
		return nil
	default:
		return fmt.Errorf("%w: operation %s", errUtils.ErrBadArgument, inst.Op)
	}
}

// Exists reports whether the selector matches at least one element.
// A selector syntax error is a configuration error.
func (c *Cache) Exists(doc *Document, selector string) (bool, error) {
	path, err := etree.CompilePath(selector)
	if err != nil {
		return false, errUtils.Build(errUtils.ErrBadSelector).
			WithCause(err).
			WithContext("selector", selector).
			Err()
	}
	return doc.Tree.FindElementPath(path) != nil, nil
}

// Text returns the text of the first element matched by the selector, and
// whether a match was found. Absence is benign.
func (c *Cache) Text(doc *Document, selector string) (string, bool, error) {
	path, err := etree.CompilePath(selector)
	if err != nil {
		return "", false, errUtils.Build(errUtils.ErrBadSelector).
			WithCause(err).
			WithContext("selector", selector).
			Err()
	}
	elt := doc.Tree.FindElementPath(path)
	if elt == nil {
		return "", false, nil
	}
	return elt.Text(), true, nil
}

// InsertChild appends elt as the last child of the element matched by
// parentSelector. The parent must exist.
func (c *Cache) InsertChild(doc *Document, parentSelector string, elt *etree.Element) error {
	path, err := etree.CompilePath(parentSelector)
	if err != nil {
		return errUtils.Build(errUtils.ErrBadSelector).
			WithCause(err).
			WithContext("selector", parentSelector).
			Err()
	}
	parent := doc.Tree.FindElementPath(path)
	if parent == nil {
		return fmt.Errorf("%w: no parent element at %q in %s",
			errUtils.ErrElementNotFound, parentSelector, doc.Path)
	}
	parent.AddChild(elt)
	c.MarkDirty(doc)
	return nil
}

// InsertBefore inserts elt as a sibling immediately preceding the element
// matched by anchorSelector. The anchor must exist.
func (c *Cache) InsertBefore(doc *Document, anchorSelector string, elt *etree.Element) error {
	path, err := etree.CompilePath(anchorSelector)
	if err != nil {
		return errUtils.Build(errUtils.ErrBadSelector).
			WithCause(err).
			WithContext("selector", anchorSelector).
			Err()
	}
	anchor := doc.Tree.FindElementPath(path)
	if anchor == nil {
		return fmt.Errorf("%w: no anchor element at %q in %s",
			errUtils.ErrElementNotFound, anchorSelector, doc.Path)
	}
	parent := anchor.Parent()
	if parent == nil {
		return fmt.Errorf("%w: anchor %q has no parent", errUtils.ErrElementNotFound, anchorSelector)
	}
	parent.InsertChildAt(anchor.Index(), elt)
	c.MarkDirty(doc)
	return nil
}

// ValueString renders an instruction value the way the model's files expect:
// strings verbatim, integers without a decimal point, floats via FormatFloat.
func ValueString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return FormatFloat(v)
	case float32:
		return FormatFloat(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func valueFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", value, value)
	}
}

// FormatFloat renders a float in its shortest decimal form, keeping a
// trailing ".0" on integral values ("20.0", not "20"). The model's files
// carry the trailing fraction and downstream diffs depend on it; changing
// the precision rules here requires coordinating with those files.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
