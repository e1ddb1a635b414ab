package scenario

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	errUtils "github.com/scenforge/scenforge/errors"
	log "github.com/scenforge/scenforge/pkg/logger"
	"github.com/scenforge/scenforge/pkg/xmldoc"
)

// ReplaceValue sets the text of every element matched by selector in the
// file behind the component named tag.
func (e *Editor) ReplaceValue(tag, selector string, value any) error {
	log.Debug("replaceValue", "tag", tag, "selector", selector, "value", value)
	return e.editComponentFile(tag, []xmldoc.Instruction{
		{Selector: selector, Op: xmldoc.OpAssign, Value: value},
	})
}

// Multiply scales the numeric text of every element matched by selector.
func (e *Editor) Multiply(tag, selector string, value float64) error {
	log.Debug("multiply", "tag", tag, "selector", selector, "value", value)
	return e.editComponentFile(tag, []xmldoc.Instruction{
		{Selector: selector, Op: xmldoc.OpMultiply, Value: value},
	})
}

// Add offsets the numeric text of every element matched by selector.
func (e *Editor) Add(tag, selector string, value float64) error {
	log.Debug("add", "tag", tag, "selector", selector, "value", value)
	return e.editComponentFile(tag, []xmldoc.Instruction{
		{Selector: selector, Op: xmldoc.OpAdd, Value: value},
	})
}

// StringReplace rewrites the text of every element matched by selector,
// replacing all occurrences of old with new. At least one element must match.
func (e *Editor) StringReplace(tag, selector, oldText, newText string) error {
	log.Debug("stringReplace", "tag", tag, "selector", selector)

	fileRel, fileAbs, err := e.LocalCopy(tag)
	if err != nil {
		return err
	}
	doc, err := e.cache.Get(fileAbs)
	if err != nil {
		return err
	}

	path, err := etree.CompilePath(selector)
	if err != nil {
		return errUtils.Build(errUtils.ErrBadSelector).
			WithCause(err).
			WithContext("selector", selector).
			Err()
	}
	elements := doc.Tree.FindElementsPath(path)
	if len(elements) == 0 {
		return fmt.Errorf("%w: selector %q in %s", errUtils.ErrElementNotFound, selector, fileAbs)
	}
	for _, elt := range elements {
		elt.SetText(strings.ReplaceAll(elt.Text(), oldText, newText))
	}
	e.cache.MarkDirty(doc)

	return e.components.Update(tag, fileRel)
}

// SetConfigValue updates a named entry in one of the configuration value
// groups (Strings, Bools, Ints, Doubles). The entry must exist.
func (e *Editor) SetConfigValue(group, name string, value any) error {
	log.Debug("setConfigValue", "group", group, "name", name, "value", value)
	return e.components.UpdateConfigValue(group, name, value, nil)
}

// setOrInsertConfigValue updates an Ints/Doubles style entry, creating it
// when the reference configuration does not carry one.
func (e *Editor) setOrInsertConfigValue(group, name string, value any) error {
	err := e.components.UpdateConfigValue(group, name, value, nil)
	if err == nil || !errUtils.Is(err, errUtils.ErrComponentNotFound) {
		return err
	}

	doc, err := e.cache.Get(e.node.ConfigPath())
	if err != nil {
		return err
	}
	elt := etree.NewElement("Value")
	elt.CreateAttr("name", name)
	elt.SetText(xmldoc.ValueString(value))
	return e.cache.InsertChild(doc, "//"+group, elt)
}

// SetClimateOutputInterval sets the number of years between climate model
// outputs.
func (e *Editor) SetClimateOutputInterval(years int) error {
	log.Debug("setClimateOutputInterval", "years", years)
	return e.setOrInsertConfigValue(GroupInts, "climateOutputInterval", years)
}

// SetStopPeriod limits the simulation horizon. Values between 1 and 1000
// are literal period indexes; larger values are calendar years converted
// using the model timestep.
func (e *Editor) SetStopPeriod(yearOrPeriod int) error {
	period := yearOrPeriod
	if yearOrPeriod >= 1000 {
		timestep := e.settings.Timestep
		if timestep <= 0 {
			timestep = DefaultYearStep
		}
		period = 1 + (yearOrPeriod-2000)/timestep
	}
	log.Debug("setStopPeriod", "input", yearOrPeriod, "period", period)
	return e.setOrInsertConfigValue(GroupInts, "stop-period", period)
}

// AddScenarioComponent registers a component under name, replacing any
// existing entry with that name.
func (e *Editor) AddScenarioComponent(name, xmlfile string) error {
	log.Info("addScenarioComponent", "name", name, "file", xmlfile)
	if err := e.components.Delete(name); err != nil {
		return err
	}
	return e.components.Add(name, xmlfile)
}

// InsertScenarioComponent registers a component immediately after an
// existing one, preserving the model's load-order semantics.
func (e *Editor) InsertScenarioComponent(name, xmlfile, after string) error {
	log.Info("insertScenarioComponent", "name", name, "file", xmlfile, "after", after)
	return e.components.InsertAfter(name, xmlfile, after)
}

// UpdateScenarioComponent points an existing component at a new file.
func (e *Editor) UpdateScenarioComponent(name, xmlfile string) error {
	log.Info("updateScenarioComponent", "name", name, "file", xmlfile)
	return e.components.Update(name, xmlfile)
}

// DeleteScenarioComponent removes a component; absence is benign.
func (e *Editor) DeleteScenarioComponent(name string) error {
	log.Info("deleteScenarioComponent", "name", name)
	return e.components.Delete(name)
}

// RenameScenarioComponent gives a new name to the component whose recorded
// path matches xmlfile exactly.
func (e *Editor) RenameScenarioComponent(name, xmlfile string) error {
	log.Info("renameScenarioComponent", "name", name, "file", xmlfile)
	return e.components.Rename(xmlfile, name)
}

// makeComponentsUnique renames reference components that ship with
// colliding default names, so later operations can address them by name.
// Missing entries are tolerated: reference configurations vary in which of
// these files they load.
func (e *Editor) makeComponentsUnique(caps Capabilities) error {
	xmlDir := "../input/gcam-data-system/xml"
	if caps.FlatInputLayout {
		xmlDir = "../input/gcamdata/xml"
	}

	renames := []struct{ name, path string }{
		{"socioeconomics_1", xmlDir + "/socioeconomics-xml/interest_rate.xml"},
		{"socioeconomics_2", xmlDir + "/socioeconomics-xml/socioeconomics_GCAM3.xml"},
		{"industry_1", xmlDir + "/energy-xml/industry.xml"},
		{"industry_2", xmlDir + "/energy-xml/industry_incelas_gcam3.xml"},
		{"cement_1", xmlDir + "/energy-xml/cement.xml"},
		{"cement_2", xmlDir + "/energy-xml/cement_incelas_gcam3.xml"},
		{"land_1", xmlDir + "/aglu-xml/land_input_1.xml"},
		{"land_2", xmlDir + "/aglu-xml/land_input_2.xml"},
		{"land_3", xmlDir + "/aglu-xml/land_input_3.xml"},
		{"protected_land_2", xmlDir + "/aglu-xml/protected_land_input_2.xml"},
		{"protected_land_3", xmlDir + "/aglu-xml/protected_land_input_3.xml"},
	}

	log.Info("assigning unique component names", "scenario", e.node.Name)
	for _, r := range renames {
		err := e.components.Rename(r.path, r.name)
		if err == nil {
			continue
		}
		if errUtils.Is(err, errUtils.ErrComponentNotFound) {
			log.Debug("component not in reference configuration, skipping", "path", r.path)
			continue
		}
		return err
	}
	return nil
}

// AddMarketConstraint registers the policy/constraint component pair for a
// constrained target, replacing existing entries of the same names. The
// constraint file lives in the dynamic tree when dynamic is true.
func (e *Editor) AddMarketConstraint(target, policy string, dynamic bool) error {
	log.Info("addMarketConstraint", "target", target, "policy", policy, "dynamic", dynamic)

	basename := target + "-" + policy
	policyTag := target + "-policy"
	constraintTag := target + "-constraint"

	constraintDir := e.node.LocalDirRel
	if dynamic {
		constraintDir = e.node.DynDirRel
	}

	pairs := []struct{ tag, path string }{
		{policyTag, filepath.Join(e.node.LocalDirRel, basename+".xml")},
		{constraintTag, filepath.Join(constraintDir, basename+"-constraint.xml")},
	}
	for _, p := range pairs {
		exists, err := e.components.Exists(p.tag)
		if err != nil {
			return err
		}
		if exists {
			if err := e.components.Update(p.tag, p.path); err != nil {
				return err
			}
			continue
		}
		if err := e.components.Add(p.tag, p.path); err != nil {
			return err
		}
	}
	return nil
}

// DelMarketConstraint removes the policy/constraint component pair for a
// constrained target. Absence of either entry is benign.
func (e *Editor) DelMarketConstraint(target, policy string) error {
	log.Info("delMarketConstraint", "target", target, "policy", policy)

	if err := e.components.Delete(target + "-policy"); err != nil {
		return err
	}
	return e.components.Delete(target + "-constraint")
}

// SolverSettings carries the tunable solver parameters. Zero values leave
// the corresponding setting untouched.
type SolverSettings struct {
	SolutionTolerance float64
	BroydenTolerance  float64
	MaxModelCalcs     int
	MaxIterations     int
}

func (s SolverSettings) validate() error {
	if s.SolutionTolerance < 0 || s.BroydenTolerance < 0 || s.MaxModelCalcs < 0 || s.MaxIterations < 0 {
		return fmt.Errorf("%w: solver settings must be positive", errUtils.ErrBadArgument)
	}
	if s.SolutionTolerance == 0 && s.BroydenTolerance == 0 && s.MaxModelCalcs == 0 && s.MaxIterations == 0 {
		return fmt.Errorf("%w: no solver settings given", errUtils.ErrBadArgument)
	}
	if s.SolutionTolerance > 0 && s.BroydenTolerance > s.SolutionTolerance {
		return fmt.Errorf("%w: broyden tolerance %v exceeds solution tolerance %v",
			errUtils.ErrBadArgument, s.BroydenTolerance, s.SolutionTolerance)
	}
	return nil
}

// SetupSolver tunes the solver configuration file. All settings are
// validated before any file is touched; a bad combination changes nothing.
func (e *Editor) SetupSolver(s SolverSettings) error {
	if err := s.validate(); err != nil {
		return err
	}
	log.Info("setupSolver", "solutionTolerance", s.SolutionTolerance,
		"broydenTolerance", s.BroydenTolerance,
		"maxModelCalcs", s.MaxModelCalcs, "maxIterations", s.MaxIterations)

	const prefix = "//user-configurable-solver"

	var instructions []xmldoc.Instruction
	if s.SolutionTolerance > 0 {
		instructions = append(instructions, xmldoc.Instruction{
			Selector: prefix + "/solution-tolerance", Op: xmldoc.OpAssign, Value: s.SolutionTolerance,
		})
	}
	if s.BroydenTolerance > 0 {
		instructions = append(instructions, xmldoc.Instruction{
			Selector: prefix + "/broyden-solver-component/ftol", Op: xmldoc.OpAssign, Value: s.BroydenTolerance,
		})
	}
	if s.MaxModelCalcs > 0 {
		instructions = append(instructions, xmldoc.Instruction{
			Selector: prefix + "/max-model-calcs", Op: xmldoc.OpAssign, Value: s.MaxModelCalcs,
		})
	}
	if s.MaxIterations > 0 {
		instructions = append(instructions, xmldoc.Instruction{
			Selector: prefix + "/broyden-solver-component/max-iterations", Op: xmldoc.OpAssign, Value: s.MaxIterations,
		})
	}

	return e.editComponentFile("solver", instructions)
}

// DropLandProtection unloads the prescribed land-protection components.
// On model versions where protected land carries its own emissions data,
// dropEmissions controls whether that component is removed as well.
func (e *Editor) DropLandProtection(dropEmissions bool) error {
	log.Info("dropLandProtection", "dropEmissions", dropEmissions)

	for _, tag := range []string{"protected_land_2", "protected_land_3"} {
		if err := e.components.Delete(tag); err != nil {
			return err
		}
	}

	caps, err := e.capabilities()
	if err != nil {
		return err
	}
	if caps.ProtectedLandEmissions && dropEmissions {
		if err := e.components.Delete("nonco2_aglu_prot"); err != nil {
			return err
		}
	}
	return nil
}

// ProtectLand withdraws a fraction of matching unmanaged land from the
// economy: each matched leaf's allocations are scaled down by fraction and a
// protected sibling leaf holding the withdrawn share is inserted beside it.
// landClasses filters leaves by name prefix; regions filters by region name;
// empty filters match everything. Applied to the land_2 and land_3
// components, which between them hold all unmanaged leaves.
func (e *Editor) ProtectLand(fraction float64, landClasses, regions []string) error {
	if fraction < 0 || fraction > 1 {
		return fmt.Errorf("%w: protection fraction %v not in [0,1]", errUtils.ErrBadArgument, fraction)
	}
	log.Info("protectLand", "fraction", fraction, "landClasses", landClasses, "regions", regions)

	regionSet := stringSet(regions)
	classes := landClasses

	for _, tag := range []string{"land_2", "land_3"} {
		fileRel, fileAbs, err := e.LocalCopy(tag)
		if err != nil {
			return err
		}
		doc, err := e.cache.Get(fileAbs)
		if err != nil {
			return err
		}

		protected := 0
		for _, region := range doc.Tree.FindElements("//region") {
			if len(regionSet) > 0 {
				if _, ok := regionSet[region.SelectAttrValue("name", "")]; !ok {
					continue
				}
			}
			for _, leaf := range region.FindElements(".//UnmanagedLandLeaf") {
				name := leaf.SelectAttrValue("name", "")
				if !matchesLandClass(name, classes) {
					continue
				}
				protectLeaf(leaf, fraction)
				protected++
			}
		}

		if protected > 0 {
			log.Debug("protected land leaves", "tag", tag, "count", protected)
			e.cache.MarkDirty(doc)
		}
		if err := e.components.Update(tag, fileRel); err != nil {
			return err
		}
	}
	return nil
}

// matchesLandClass reports whether a leaf name like "Shrubland_NelsonR"
// belongs to one of the wanted land classes. An empty class list matches all.
func matchesLandClass(leafName string, classes []string) bool {
	if len(classes) == 0 {
		return true
	}
	class := leafName
	if i := strings.IndexByte(leafName, '_'); i >= 0 {
		class = leafName[:i]
	}
	for _, want := range classes {
		if class == want {
			return true
		}
	}
	return false
}

// protectLeaf scales leaf's allocations down by fraction and inserts a
// "Protected" sibling carrying the withdrawn share.
func protectLeaf(leaf *etree.Element, fraction float64) {
	clone := leaf.Copy()
	clone.CreateAttr("name", "Protected"+leaf.SelectAttrValue("name", ""))

	scaleAllocations(leaf, 1-fraction)
	scaleAllocations(clone, fraction)

	leaf.Parent().InsertChildAt(leaf.Index(), clone)
}

func scaleAllocations(leaf *etree.Element, factor float64) {
	for _, tag := range []string{"allocation", "landAllocation"} {
		for _, alloc := range leaf.FindElements(".//" + tag) {
			old, err := parseFloatText(alloc.Text())
			if err != nil {
				continue
			}
			alloc.SetText(xmldoc.FormatFloat(old * factor))
		}
	}
}

func parseFloatText(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &f)
	return f, err
}

func stringSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

// InterpolationSettings selects an interpolation rule and the values it
// interpolates between. Rules are addressed by the element they apply to.
type InterpolationSettings struct {
	Region    string
	Sector    string
	Subsector string

	// StubTechnology narrows the rule to one technology when set.
	StubTechnology string

	// SubsectorTag overrides the subsector element name; defaults to
	// "subsector" (transportation files use "tranSubsector").
	SubsectorTag string

	// ApplyTo selects the rule; defaults to "share-weight".
	ApplyTo string

	FromYear string
	ToYear   string

	// FuncName defaults to "linear".
	FuncName string

	// FromValue / ToValue set the rule's endpoint values when non-nil.
	FromValue *float64
	ToValue   *float64

	// Delete marks the rule deleted instead of active.
	Delete bool
}

func (s *InterpolationSettings) applyDefaults() {
	if s.SubsectorTag == "" {
		s.SubsectorTag = "subsector"
	}
	if s.ApplyTo == "" {
		s.ApplyTo = "share-weight"
	}
	if s.FuncName == "" {
		s.FuncName = "linear"
	}
}

// SetInterpolationFunction rewires an interpolation rule in the file behind
// the component named tag (defaulting to energy_transformation). The rule
// must exist; its from-value and to-value elements are created on demand,
// and a share-weight anchor for the target year is created when the rule
// applies to share weights.
func (e *Editor) SetInterpolationFunction(tag string, s InterpolationSettings) error {
	s.applyDefaults()
	if tag == "" {
		tag = "energy_transformation"
	}
	log.Info("setInterpolationFunction", "tag", tag, "region", s.Region,
		"sector", s.Sector, "subsector", s.Subsector, "applyTo", s.ApplyTo)

	fileRel, fileAbs, err := e.LocalCopy(tag)
	if err != nil {
		return err
	}
	doc, err := e.cache.Get(fileAbs)
	if err != nil {
		return err
	}

	prefix := fmt.Sprintf("//region[@name='%s']/supplysector[@name='%s']/%s[@name='%s']",
		s.Region, s.Sector, s.SubsectorTag, s.Subsector)
	if s.StubTechnology != "" {
		prefix += fmt.Sprintf("/stub-technology[@name='%s']", s.StubTechnology)
	}
	rule := prefix + fmt.Sprintf("/interpolation-rule[@apply-to='%s']", s.ApplyTo)

	instructions := []xmldoc.Instruction{
		{Selector: rule + "/@from-year", Op: xmldoc.OpAssign, Value: s.FromYear},
		{Selector: rule + "/@to-year", Op: xmldoc.OpAssign, Value: s.ToYear},
		{Selector: rule + "/interpolation-function/@name", Op: xmldoc.OpAssign, Value: s.FuncName},
	}
	if s.Delete {
		instructions = append(instructions, xmldoc.Instruction{
			Selector: rule + "/@delete", Op: xmldoc.OpAssign, Value: "1",
		})
	}

	changed, err := e.cache.Apply(doc, instructions)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: no interpolation rule at %q in %s",
			errUtils.ErrElementNotFound, rule, fileAbs)
	}

	if s.FromValue != nil {
		if err := e.setOrInsertRuleValue(doc, rule, "from-value", *s.FromValue); err != nil {
			return err
		}
	}
	if s.ToValue != nil {
		if err := e.setOrInsertRuleValue(doc, rule, "to-value", *s.ToValue); err != nil {
			return err
		}

		// Interpolation toward a share weight needs an explicit anchor
		// element at the target year.
		if s.ApplyTo == "share-weight" {
			if err := e.ensureShareWeightAnchor(doc, prefix, rule, s.ToYear, *s.ToValue); err != nil {
				return err
			}
		}
	}

	return e.components.Update(tag, fileRel)
}

func (e *Editor) setOrInsertRuleValue(doc *xmldoc.Document, rule, child string, value float64) error {
	selector := rule + "/" + child
	changed, err := e.cache.Apply(doc, []xmldoc.Instruction{
		{Selector: selector, Op: xmldoc.OpAssign, Value: value},
	})
	if err != nil || changed {
		return err
	}

	elt := etree.NewElement(child)
	elt.SetText(xmldoc.FormatFloat(value))
	return e.cache.InsertChild(doc, rule, elt)
}

func (e *Editor) ensureShareWeightAnchor(doc *xmldoc.Document, prefix, rule, year string, value float64) error {
	selector := prefix + fmt.Sprintf("/share-weight[@year='%s']", year)
	changed, err := e.cache.Apply(doc, []xmldoc.Instruction{
		{Selector: selector, Op: xmldoc.OpAssign, Value: value},
	})
	if err != nil || changed {
		return err
	}

	elt := etree.NewElement("share-weight")
	elt.CreateAttr("year", year)
	elt.SetText(xmldoc.FormatFloat(value))
	return e.cache.InsertBefore(doc, rule, elt)
}
