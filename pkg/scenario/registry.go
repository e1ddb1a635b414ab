package scenario

import (
	"fmt"
	"sort"
	"strconv"

	errUtils "github.com/scenforge/scenforge/errors"
	"github.com/scenforge/scenforge/pkg/policy"
	"github.com/scenforge/scenforge/pkg/schema"
)

// Args holds one operation call's named arguments as decoded from a
// scenario group file. Accessors convert and validate; a missing required
// key or a value of the wrong shape is a configuration error naming the key.
type Args map[string]any

func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%w: missing argument %q", errUtils.ErrBadArgument, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q: want string, got %T", errUtils.ErrBadArgument, key, v)
	}
	return s, nil
}

func (a Args) StringOr(key, fallback string) (string, error) {
	if _, ok := a[key]; !ok {
		return fallback, nil
	}
	return a.String(key)
}

func (a Args) Float(key string) (float64, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing argument %q", errUtils.ErrBadArgument, key)
	}
	f, err := coerceFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%w: argument %q: %v", errUtils.ErrBadArgument, key, err)
	}
	return f, nil
}

func (a Args) FloatOr(key string, fallback float64) (float64, error) {
	if _, ok := a[key]; !ok {
		return fallback, nil
	}
	return a.Float(key)
}

// FloatPtr returns nil when the key is absent.
func (a Args) FloatPtr(key string) (*float64, error) {
	if _, ok := a[key]; !ok {
		return nil, nil
	}
	f, err := a.Float(key)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (a Args) Int(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing argument %q", errUtils.ErrBadArgument, key)
	}
	i, err := coerceInt(v)
	if err != nil {
		return 0, fmt.Errorf("%w: argument %q: %v", errUtils.ErrBadArgument, key, err)
	}
	return i, nil
}

func (a Args) IntOr(key string, fallback int) (int, error) {
	if _, ok := a[key]; !ok {
		return fallback, nil
	}
	return a.Int(key)
}

func (a Args) BoolOr(key string, fallback bool) (bool, error) {
	v, ok := a[key]
	if !ok {
		return fallback, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: argument %q: want bool, got %T", errUtils.ErrBadArgument, key, v)
	}
	return b, nil
}

// Text returns a string-valued argument, accepting bare numbers (YAML
// writers rarely quote years).
func (a Args) Text(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("%w: missing argument %q", errUtils.ErrBadArgument, key)
	}
	s, err := coerceString(v)
	if err != nil {
		return "", fmt.Errorf("%w: argument %q: %v", errUtils.ErrBadArgument, key, err)
	}
	return s, nil
}

// Strings returns a list-valued argument; absent means nil. A bare string
// is accepted as a one-element list.
func (a Args) Strings(key string) ([]string, error) {
	v, ok := a[key]
	if !ok {
		return nil, nil
	}
	switch list := v.(type) {
	case string:
		return []string{list}, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: argument %q: want strings, got %T", errUtils.ErrBadArgument, key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: argument %q: want string list, got %T", errUtils.ErrBadArgument, key, v)
	}
}

// Pairs returns (year, value) pairs. Accepted shapes: a mapping from year
// (or range shorthand) to value, or a list of [year, value] two-element
// lists. Mappings are sorted by key for deterministic application order.
func (a Args) Pairs(key string) ([]RawYearValue, error) {
	v, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing argument %q", errUtils.ErrBadArgument, key)
	}
	pairs, err := coercePairs(v)
	if err != nil {
		return nil, fmt.Errorf("%w: argument %q: %v", errUtils.ErrBadArgument, key, err)
	}
	return pairs, nil
}

func coercePairs(v any) ([]RawYearValue, error) {
	switch m := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make([]RawYearValue, 0, len(keys))
		for _, year := range keys {
			value, err := coerceFloat(m[year])
			if err != nil {
				return nil, fmt.Errorf("year %q: %v", year, err)
			}
			out = append(out, RawYearValue{Year: year, Value: value})
		}
		return out, nil

	case []any:
		out := make([]RawYearValue, 0, len(m))
		for _, item := range m {
			pair, ok := item.([]any)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("want [year, value] pairs, got %v", item)
			}
			year, err := coerceString(pair[0])
			if err != nil {
				return nil, err
			}
			value, err := coerceFloat(pair[1])
			if err != nil {
				return nil, fmt.Errorf("year %q: %v", year, err)
			}
			out = append(out, RawYearValue{Year: year, Value: value})
		}
		return out, nil

	default:
		return nil, fmt.Errorf("want a year mapping or pair list, got %T", v)
	}
}

// Rows returns a technology improvement table: a list of mappings each
// carrying sector/subsector/technology identifiers and a values mapping.
func (a Args) Rows(key string) ([]TechImprovement, error) {
	v, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing argument %q", errUtils.ErrBadArgument, key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: argument %q: want a row list, got %T", errUtils.ErrBadArgument, key, v)
	}

	out := make([]TechImprovement, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: argument %q row %d: want a mapping, got %T", errUtils.ErrBadArgument, key, i, item)
		}
		row := Args(m)

		region, err := row.StringOr("region", "")
		if err != nil {
			return nil, err
		}
		sector, err := row.String("sector")
		if err != nil {
			return nil, err
		}
		subsector, err := row.String("subsector")
		if err != nil {
			return nil, err
		}
		technology, err := row.String("technology")
		if err != nil {
			return nil, err
		}
		input, err := row.StringOr("input", "")
		if err != nil {
			return nil, err
		}
		pairs, err := row.Pairs("values")
		if err != nil {
			return nil, err
		}
		out = append(out, TechImprovement{
			Region:     region,
			Sector:     sector,
			Subsector:  subsector,
			Technology: technology,
			Input:      input,
			Pairs:      pairs,
		})
	}
	return out, nil
}

// Years returns a list of literal years, expanding range shorthands.
func (a Args) Years(key string) ([]int, error) {
	v, ok := a[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing argument %q", errUtils.ErrBadArgument, key)
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}

	var raw []RawYearValue
	for _, item := range list {
		s, err := coerceString(item)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %q: %v", errUtils.ErrBadArgument, key, err)
		}
		raw = append(raw, RawYearValue{Year: s})
	}
	expanded, err := ExpandYearRanges(raw)
	if err != nil {
		return nil, err
	}

	years := make([]int, 0, len(expanded))
	for _, yv := range expanded {
		years = append(years, yv.Year)
	}
	return years, nil
}

// Targets returns constraint targets with literal years.
func (a Args) Targets(key string) ([]policy.YearTarget, error) {
	pairs, err := a.Pairs(key)
	if err != nil {
		return nil, err
	}
	expanded, err := ExpandYearRanges(pairs)
	if err != nil {
		return nil, err
	}
	out := make([]policy.YearTarget, 0, len(expanded))
	for _, yv := range expanded {
		out = append(out, policy.YearTarget{Year: yv.Year, Value: yv.Value})
	}
	return out, nil
}

func coerceFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}

func coerceInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("value %q is not an integer", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
	}
}

func coerceString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case int:
		return strconv.Itoa(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case uint64:
		return strconv.FormatUint(s, 10), nil
	default:
		return "", fmt.Errorf("value %v (%T) is not a string", v, v)
	}
}

// Operation adapts one named operation to the dispatcher's uniform shape.
type Operation func(*Editor, Args) error

// Dispatcher routes operation calls from scenario group files to Editor
// methods. The operation table is built once at construction; names are
// compile-time constants, never registered dynamically.
type Dispatcher struct {
	ops map[string]Operation
}

// NewDispatcher builds the dispatcher with the full operation table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{ops: map[string]Operation{
		"replaceValue":                    opReplaceValue,
		"multiply":                        opMultiply,
		"add":                             opAdd,
		"stringReplace":                   opStringReplace,
		"setConfigValue":                  opSetConfigValue,
		"setClimateOutputInterval":        opSetClimateOutputInterval,
		"setStopPeriod":                   opSetStopPeriod,
		"addScenarioComponent":            opAddScenarioComponent,
		"insertScenarioComponent":         opInsertScenarioComponent,
		"updateScenarioComponent":         opUpdateScenarioComponent,
		"deleteScenarioComponent":         opDeleteScenarioComponent,
		"renameScenarioComponent":         opRenameScenarioComponent,
		"addMarketConstraint":             opAddMarketConstraint,
		"delMarketConstraint":             opDelMarketConstraint,
		"setupSolver":                     opSetupSolver,
		"dropLandProtection":              opDropLandProtection,
		"protectLand":                     opProtectLand,
		"setInterpolationFunction":        opSetInterpolationFunction,
		"setGlobalTechNonEnergyCost":      opSetGlobalTechNonEnergyCost,
		"setGlobalTechShutdownRate":       opSetGlobalTechShutdownRate,
		"setGlobalTechShareWeight":        opSetGlobalTechShareWeight,
		"setEnergyTechnologyCoefficients": opSetEnergyTechnologyCoefficients,
		"setRegionalShareWeights":         opSetRegionalShareWeights,
		"setRegionPopulation":             opSetRegionPopulation,
		"freezeRegionPopulation":          opFreezeRegionPopulation,
		"freezeGlobalPopulation":          opFreezeGlobalPopulation,
		"setPriceElasticity":              opSetPriceElasticity,
		"setRegionalNonCO2Emissions":      opSetRegionalNonCO2Emissions,
		"transportTechEfficiency":         opTransportTechEfficiency,
		"buildingTechEfficiency":          opBuildingTechEfficiency,
		"extractStubTechnology":           opExtractStubTechnology,
		"taxCarbon":                       opTaxCarbon,
		"taxBioCarbon":                    opTaxBioCarbon,
		"writePolicyMarketFile":           opWritePolicyMarketFile,
		"writePolicyConstraintFile":       opWritePolicyConstraintFile,
	}}
}

// Names returns the registered operation names, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.ops))
	for name := range d.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call dispatches one operation by name.
func (d *Dispatcher) Call(e *Editor, name string, args Args) error {
	op, ok := d.ops[name]
	if !ok {
		return fmt.Errorf("%w: %q", errUtils.ErrUnknownOperation, name)
	}
	return op(e, args)
}

// Run dispatches every call of a scenario definition in order.
func (d *Dispatcher) Run(e *Editor, calls []schema.OperationCall) error {
	for _, call := range calls {
		if err := d.Call(e, call.Name, Args(call.Args)); err != nil {
			return fmt.Errorf("operation %q: %w", call.Name, err)
		}
	}
	return nil
}

func opReplaceValue(e *Editor, a Args) error {
	tag, err := a.String("tag")
	if err != nil {
		return err
	}
	selector, err := a.String("selector")
	if err != nil {
		return err
	}
	value, ok := a["value"]
	if !ok {
		return fmt.Errorf("%w: missing argument %q", errUtils.ErrBadArgument, "value")
	}
	return e.ReplaceValue(tag, selector, value)
}

func opMultiply(e *Editor, a Args) error {
	tag, err := a.String("tag")
	if err != nil {
		return err
	}
	selector, err := a.String("selector")
	if err != nil {
		return err
	}
	value, err := a.Float("value")
	if err != nil {
		return err
	}
	return e.Multiply(tag, selector, value)
}

func opAdd(e *Editor, a Args) error {
	tag, err := a.String("tag")
	if err != nil {
		return err
	}
	selector, err := a.String("selector")
	if err != nil {
		return err
	}
	value, err := a.Float("value")
	if err != nil {
		return err
	}
	return e.Add(tag, selector, value)
}

func opStringReplace(e *Editor, a Args) error {
	tag, err := a.String("tag")
	if err != nil {
		return err
	}
	selector, err := a.String("selector")
	if err != nil {
		return err
	}
	oldText, err := a.String("old")
	if err != nil {
		return err
	}
	newText, err := a.String("new")
	if err != nil {
		return err
	}
	return e.StringReplace(tag, selector, oldText, newText)
}

func opSetConfigValue(e *Editor, a Args) error {
	group, err := a.String("group")
	if err != nil {
		return err
	}
	name, err := a.String("name")
	if err != nil {
		return err
	}
	value, ok := a["value"]
	if !ok {
		return fmt.Errorf("%w: missing argument %q", errUtils.ErrBadArgument, "value")
	}
	return e.SetConfigValue(group, name, value)
}

func opSetClimateOutputInterval(e *Editor, a Args) error {
	years, err := a.Int("years")
	if err != nil {
		return err
	}
	return e.SetClimateOutputInterval(years)
}

func opSetStopPeriod(e *Editor, a Args) error {
	year, err := a.Int("year")
	if err != nil {
		return err
	}
	return e.SetStopPeriod(year)
}

func opAddScenarioComponent(e *Editor, a Args) error {
	name, err := a.String("name")
	if err != nil {
		return err
	}
	xmlfile, err := a.String("file")
	if err != nil {
		return err
	}
	return e.AddScenarioComponent(name, xmlfile)
}

func opInsertScenarioComponent(e *Editor, a Args) error {
	name, err := a.String("name")
	if err != nil {
		return err
	}
	xmlfile, err := a.String("file")
	if err != nil {
		return err
	}
	after, err := a.String("after")
	if err != nil {
		return err
	}
	return e.InsertScenarioComponent(name, xmlfile, after)
}

func opUpdateScenarioComponent(e *Editor, a Args) error {
	name, err := a.String("name")
	if err != nil {
		return err
	}
	xmlfile, err := a.String("file")
	if err != nil {
		return err
	}
	return e.UpdateScenarioComponent(name, xmlfile)
}

func opDeleteScenarioComponent(e *Editor, a Args) error {
	name, err := a.String("name")
	if err != nil {
		return err
	}
	return e.DeleteScenarioComponent(name)
}

func opRenameScenarioComponent(e *Editor, a Args) error {
	name, err := a.String("name")
	if err != nil {
		return err
	}
	xmlfile, err := a.String("file")
	if err != nil {
		return err
	}
	return e.RenameScenarioComponent(name, xmlfile)
}

func opAddMarketConstraint(e *Editor, a Args) error {
	target, err := a.String("target")
	if err != nil {
		return err
	}
	pol, err := a.String("policy")
	if err != nil {
		return err
	}
	dynamic, err := a.BoolOr("dynamic", false)
	if err != nil {
		return err
	}
	return e.AddMarketConstraint(target, pol, dynamic)
}

func opDelMarketConstraint(e *Editor, a Args) error {
	target, err := a.String("target")
	if err != nil {
		return err
	}
	pol, err := a.String("policy")
	if err != nil {
		return err
	}
	return e.DelMarketConstraint(target, pol)
}

func opSetupSolver(e *Editor, a Args) error {
	solutionTol, err := a.FloatOr("solutionTolerance", 0)
	if err != nil {
		return err
	}
	broydenTol, err := a.FloatOr("broydenTolerance", 0)
	if err != nil {
		return err
	}
	maxModelCalcs, err := a.IntOr("maxModelCalcs", 0)
	if err != nil {
		return err
	}
	maxIterations, err := a.IntOr("maxIterations", 0)
	if err != nil {
		return err
	}
	return e.SetupSolver(SolverSettings{
		SolutionTolerance: solutionTol,
		BroydenTolerance:  broydenTol,
		MaxModelCalcs:     maxModelCalcs,
		MaxIterations:     maxIterations,
	})
}

func opDropLandProtection(e *Editor, a Args) error {
	dropEmissions, err := a.BoolOr("dropEmissions", true)
	if err != nil {
		return err
	}
	return e.DropLandProtection(dropEmissions)
}

func opProtectLand(e *Editor, a Args) error {
	fraction, err := a.Float("fraction")
	if err != nil {
		return err
	}
	landClasses, err := a.Strings("landClasses")
	if err != nil {
		return err
	}
	regions, err := a.Strings("regions")
	if err != nil {
		return err
	}
	return e.ProtectLand(fraction, landClasses, regions)
}

func opSetInterpolationFunction(e *Editor, a Args) error {
	tag, err := a.StringOr("tag", "")
	if err != nil {
		return err
	}
	region, err := a.String("region")
	if err != nil {
		return err
	}
	sector, err := a.String("sector")
	if err != nil {
		return err
	}
	subsector, err := a.String("subsector")
	if err != nil {
		return err
	}
	stubTechnology, err := a.StringOr("stubTechnology", "")
	if err != nil {
		return err
	}
	subsectorTag, err := a.StringOr("subsectorTag", "")
	if err != nil {
		return err
	}
	applyTo, err := a.StringOr("applyTo", "")
	if err != nil {
		return err
	}
	fromYear, err := a.Text("fromYear")
	if err != nil {
		return err
	}
	toYear, err := a.Text("toYear")
	if err != nil {
		return err
	}
	funcName, err := a.StringOr("funcName", "")
	if err != nil {
		return err
	}
	fromValue, err := a.FloatPtr("fromValue")
	if err != nil {
		return err
	}
	toValue, err := a.FloatPtr("toValue")
	if err != nil {
		return err
	}
	deleteRule, err := a.BoolOr("delete", false)
	if err != nil {
		return err
	}
	return e.SetInterpolationFunction(tag, InterpolationSettings{
		Region:         region,
		Sector:         sector,
		Subsector:      subsector,
		StubTechnology: stubTechnology,
		SubsectorTag:   subsectorTag,
		ApplyTo:        applyTo,
		FromYear:       fromYear,
		ToYear:         toYear,
		FuncName:       funcName,
		FromValue:      fromValue,
		ToValue:        toValue,
		Delete:         deleteRule,
	})
}

func techIdentifiers(a Args) (sector, subsector, technology string, err error) {
	if sector, err = a.String("sector"); err != nil {
		return
	}
	if subsector, err = a.String("subsector"); err != nil {
		return
	}
	technology, err = a.String("technology")
	return
}

func opSetGlobalTechNonEnergyCost(e *Editor, a Args) error {
	sector, subsector, technology, err := techIdentifiers(a)
	if err != nil {
		return err
	}
	pairs, err := a.Pairs("values")
	if err != nil {
		return err
	}
	return e.SetGlobalTechNonEnergyCost(sector, subsector, technology, pairs)
}

func opSetGlobalTechShutdownRate(e *Editor, a Args) error {
	sector, subsector, technology, err := techIdentifiers(a)
	if err != nil {
		return err
	}
	pairs, err := a.Pairs("values")
	if err != nil {
		return err
	}
	return e.SetGlobalTechShutdownRate(sector, subsector, technology, pairs)
}

func opSetGlobalTechShareWeight(e *Editor, a Args) error {
	sector, subsector, technology, err := techIdentifiers(a)
	if err != nil {
		return err
	}
	tag, err := a.StringOr("tag", "")
	if err != nil {
		return err
	}
	pairs, err := a.Pairs("values")
	if err != nil {
		return err
	}
	return e.SetGlobalTechShareWeight(sector, subsector, technology, tag, pairs)
}

func opSetEnergyTechnologyCoefficients(e *Editor, a Args) error {
	subsector, err := a.String("subsector")
	if err != nil {
		return err
	}
	technology, err := a.String("technology")
	if err != nil {
		return err
	}
	energyInput, err := a.String("input")
	if err != nil {
		return err
	}
	pairs, err := a.Pairs("values")
	if err != nil {
		return err
	}
	return e.SetEnergyTechnologyCoefficients(subsector, technology, energyInput, pairs)
}

func opSetRegionalShareWeights(e *Editor, a Args) error {
	region, err := a.StringOr("region", "")
	if err != nil {
		return err
	}
	sector, err := a.String("sector")
	if err != nil {
		return err
	}
	subsector, err := a.StringOr("subsector", "")
	if err != nil {
		return err
	}
	stubTechnology, err := a.StringOr("stubTechnology", "")
	if err != nil {
		return err
	}
	subsectorTag, err := a.StringOr("subsectorTag", "")
	if err != nil {
		return err
	}
	tag, err := a.StringOr("tag", "")
	if err != nil {
		return err
	}
	pairs, err := a.Pairs("values")
	if err != nil {
		return err
	}
	return e.SetRegionalShareWeights(ShareWeightTarget{
		Region:         region,
		Sector:         sector,
		Subsector:      subsector,
		StubTechnology: stubTechnology,
		SubsectorTag:   subsectorTag,
		Tag:            tag,
	}, pairs)
}

func opSetRegionPopulation(e *Editor, a Args) error {
	region, err := a.String("region")
	if err != nil {
		return err
	}
	pairs, err := a.Pairs("values")
	if err != nil {
		return err
	}
	return e.SetRegionPopulation(region, pairs)
}

func opFreezeRegionPopulation(e *Editor, a Args) error {
	region, err := a.String("region")
	if err != nil {
		return err
	}
	year, err := a.Int("year")
	if err != nil {
		return err
	}
	endYear, err := a.IntOr("endYear", 0)
	if err != nil {
		return err
	}
	return e.FreezeRegionPopulation(region, year, endYear)
}

func opFreezeGlobalPopulation(e *Editor, a Args) error {
	year, err := a.Int("year")
	if err != nil {
		return err
	}
	endYear, err := a.IntOr("endYear", 0)
	if err != nil {
		return err
	}
	return e.FreezeGlobalPopulation(year, endYear)
}

func opSetPriceElasticity(e *Editor, a Args) error {
	regions, err := a.Strings("regions")
	if err != nil {
		return err
	}
	sectors, err := a.Strings("sectors")
	if err != nil {
		return err
	}
	tag, err := a.StringOr("tag", "")
	if err != nil {
		return err
	}
	pairs, err := a.Pairs("values")
	if err != nil {
		return err
	}
	return e.SetPriceElasticity(regions, sectors, tag, pairs)
}

func opSetRegionalNonCO2Emissions(e *Editor, a Args) error {
	region, err := a.String("region")
	if err != nil {
		return err
	}
	sector, err := a.String("sector")
	if err != nil {
		return err
	}
	subsector, err := a.String("subsector")
	if err != nil {
		return err
	}
	stubTechnology, err := a.String("stubTechnology")
	if err != nil {
		return err
	}
	species, err := a.String("species")
	if err != nil {
		return err
	}
	tag, err := a.StringOr("tag", "")
	if err != nil {
		return err
	}
	pairs, err := a.Pairs("values")
	if err != nil {
		return err
	}
	return e.SetRegionalNonCO2Emissions(region, sector, subsector, stubTechnology, species, tag, pairs)
}

func opTransportTechEfficiency(e *Editor, a Args) error {
	tag, err := a.StringOr("tag", "")
	if err != nil {
		return err
	}
	rows, err := a.Rows("rows")
	if err != nil {
		return err
	}
	return e.TransportTechEfficiency(tag, rows)
}

func opBuildingTechEfficiency(e *Editor, a Args) error {
	filename, err := a.String("file")
	if err != nil {
		return err
	}
	mode, err := a.StringOr("mode", "mult")
	if err != nil {
		return err
	}
	baseTag, err := a.StringOr("tag", "")
	if err != nil {
		return err
	}
	rows, err := a.Rows("rows")
	if err != nil {
		return err
	}
	return e.BuildingTechEfficiency(filename, mode, baseTag, rows)
}

func opExtractStubTechnology(e *Editor, a Args) error {
	region, err := a.String("region")
	if err != nil {
		return err
	}
	srcTag, err := a.String("tag")
	if err != nil {
		return err
	}
	dstFile, err := a.String("file")
	if err != nil {
		return err
	}
	sectorElement, err := a.StringOr("sectorElement", "")
	if err != nil {
		return err
	}
	sector, subsector, technology, err := techIdentifiers(a)
	if err != nil {
		return err
	}
	return e.ExtractStubTechnology(region, srcTag, dstFile, sectorElement, sector, subsector, technology)
}

func opTaxCarbon(e *Editor, a Args) error {
	value, err := a.Float("value")
	if err != nil {
		return err
	}
	startYear, err := a.IntOr("startYear", 0)
	if err != nil {
		return err
	}
	endYear, err := a.IntOr("endYear", 0)
	if err != nil {
		return err
	}
	rate, err := a.FloatOr("rate", 0)
	if err != nil {
		return err
	}
	regions, err := a.Strings("regions")
	if err != nil {
		return err
	}
	market, err := a.StringOr("market", "")
	if err != nil {
		return err
	}
	return e.TaxCarbon(CarbonTaxArgs{
		InitialValue: value,
		StartYear:    startYear,
		EndYear:      endYear,
		Rate:         rate,
		Regions:      regions,
		Market:       market,
	})
}

func opTaxBioCarbon(e *Editor, a Args) error {
	market, err := a.StringOr("market", "")
	if err != nil {
		return err
	}
	regions, err := a.Strings("regions")
	if err != nil {
		return err
	}
	forTax, err := a.BoolOr("forTax", true)
	if err != nil {
		return err
	}
	forCap, err := a.BoolOr("forCap", false)
	if err != nil {
		return err
	}
	return e.TaxBioCarbon(market, regions, forTax, forCap)
}

func opWritePolicyMarketFile(e *Editor, a Args) error {
	filename, err := a.String("file")
	if err != nil {
		return err
	}
	policyName, err := a.String("policy")
	if err != nil {
		return err
	}
	marketRegion, err := a.String("marketRegion")
	if err != nil {
		return err
	}
	regions, err := a.Strings("regions")
	if err != nil {
		return err
	}
	element, err := a.StringOr("policyElement", "")
	if err != nil {
		return err
	}
	policyType, err := a.StringOr("policyType", "")
	if err != nil {
		return err
	}
	years, err := a.Years("years")
	if err != nil {
		return err
	}
	return e.WritePolicyMarketFile(filename, policy.MarketSpec{
		PolicyName:    policyName,
		MarketRegion:  marketRegion,
		Regions:       regions,
		Years:         years,
		PolicyElement: element,
		PolicyType:    policyType,
	})
}

func opWritePolicyConstraintFile(e *Editor, a Args) error {
	filename, err := a.String("file")
	if err != nil {
		return err
	}
	policyName, err := a.String("policy")
	if err != nil {
		return err
	}
	region, err := a.String("region")
	if err != nil {
		return err
	}
	market, err := a.StringOr("market", "")
	if err != nil {
		return err
	}
	element, err := a.StringOr("policyElement", "")
	if err != nil {
		return err
	}
	policyType, err := a.StringOr("policyType", "")
	if err != nil {
		return err
	}
	minPrice, err := a.FloatPtr("minPrice")
	if err != nil {
		return err
	}
	targets, err := a.Targets("targets")
	if err != nil {
		return err
	}
	return e.WritePolicyConstraintFile(filename, policy.ConstraintSpec{
		PolicyName:    policyName,
		Region:        region,
		Market:        market,
		PolicyElement: element,
		PolicyType:    policyType,
		Targets:       targets,
		MinPrice:      minPrice,
	})
}
