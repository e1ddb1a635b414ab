package scenario

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	errUtils "github.com/scenforge/scenforge/errors"
	log "github.com/scenforge/scenforge/pkg/logger"
	"github.com/scenforge/scenforge/pkg/xmldoc"
)

// Default component tags for the files the technology operations edit.
const (
	TagEnergyTransformation = "energy_transformation"
	TagSocioeconomics       = "socioeconomics"
	TagTransportation       = "transportation_UCD_CORE"
	TagBuilding             = "building_det"
	TagNonCO2Energy         = "nonco2_energy"
)

// globalTechPrefix addresses one technology in the global technology
// database. Chained attribute filters stand in for conjunctive predicates.
func globalTechPrefix(sector, subsector, technology string) string {
	return fmt.Sprintf(
		"//global-technology-database/location-info[@sector-name='%s'][@subsector-name='%s']/technology[@name='%s']",
		sector, subsector, technology)
}

// regionPrefix addresses one region, or all regions when region is empty.
func regionPrefix(region string) string {
	if region == "" {
		return "//region"
	}
	return fmt.Sprintf("//region[@name='%s']", region)
}

// yearInstructions renders one assignment per expanded (year, value) pair,
// with the year spliced into the selector via format (one %d verb).
func yearInstructions(format string, pairs []RawYearValue) ([]xmldoc.Instruction, error) {
	expanded, err := ExpandYearRanges(pairs)
	if err != nil {
		return nil, err
	}

	instructions := make([]xmldoc.Instruction, 0, len(expanded))
	for _, yv := range expanded {
		instructions = append(instructions, xmldoc.Instruction{
			Selector: fmt.Sprintf(format, yv.Year),
			Op:       xmldoc.OpAssign,
			Value:    yv.Value,
		})
	}
	return instructions, nil
}

// SetGlobalTechNonEnergyCost sets the non-energy input cost of a global
// technology for each given year. Years may be range shorthands.
func (e *Editor) SetGlobalTechNonEnergyCost(sector, subsector, technology string, pairs []RawYearValue) error {
	log.Info("setGlobalTechNonEnergyCost", "sector", sector, "subsector", subsector, "technology", technology)

	format := globalTechPrefix(sector, subsector, technology) +
		"/period[@year='%d']/minicam-non-energy-input[@name='non-energy']/input-cost"
	instructions, err := yearInstructions(format, pairs)
	if err != nil {
		return err
	}
	return e.editComponentFile(TagEnergyTransformation, instructions)
}

// SetGlobalTechShutdownRate sets the phased shutdown rate of a global
// technology for each given year.
func (e *Editor) SetGlobalTechShutdownRate(sector, subsector, technology string, pairs []RawYearValue) error {
	log.Info("setGlobalTechShutdownRate", "sector", sector, "subsector", subsector, "technology", technology)

	format := globalTechPrefix(sector, subsector, technology) +
		"/period[@year='%d']/phased-shutdown-decider/shutdown-rate"
	instructions, err := yearInstructions(format, pairs)
	if err != nil {
		return err
	}
	return e.editComponentFile(TagEnergyTransformation, instructions)
}

// SetGlobalTechShareWeight sets the share weight of a global technology for
// each given year. tag defaults to the energy transformation component.
func (e *Editor) SetGlobalTechShareWeight(sector, subsector, technology, tag string, pairs []RawYearValue) error {
	if tag == "" {
		tag = TagEnergyTransformation
	}
	log.Info("setGlobalTechShareWeight", "sector", sector, "subsector", subsector,
		"technology", technology, "tag", tag)

	format := globalTechPrefix(sector, subsector, technology) + "/period[@year='%d']/share-weight"
	instructions, err := yearInstructions(format, pairs)
	if err != nil {
		return err
	}
	return e.editComponentFile(tag, instructions)
}

// SetEnergyTechnologyCoefficients sets the coefficient of a named energy
// input across all sectors carrying the technology.
func (e *Editor) SetEnergyTechnologyCoefficients(subsector, technology, energyInput string, pairs []RawYearValue) error {
	log.Info("setEnergyTechnologyCoefficients", "subsector", subsector,
		"technology", technology, "input", energyInput)

	format := fmt.Sprintf(
		"//global-technology-database/location-info[@subsector-name='%s']/technology[@name='%s']",
		subsector, technology) +
		"/period[@year='%d']" +
		fmt.Sprintf("/minicam-energy-input[@name='%s']/coefficient", energyInput)
	instructions, err := yearInstructions(format, pairs)
	if err != nil {
		return err
	}
	return e.editComponentFile(TagEnergyTransformation, instructions)
}

// ShareWeightTarget narrows SetRegionalShareWeights to one point of the
// sector tree.
type ShareWeightTarget struct {
	// Region empty means all regions.
	Region    string
	Sector    string
	Subsector string

	// StubTechnology moves the share weight down to the technology period
	// level when set.
	StubTechnology string

	// SubsectorTag defaults to "subsector".
	SubsectorTag string

	// Tag names the component file; defaults to energy_transformation.
	Tag string
}

// SetRegionalShareWeights sets subsector or technology share weights in one
// or all regions for each given year.
func (e *Editor) SetRegionalShareWeights(t ShareWeightTarget, pairs []RawYearValue) error {
	if t.SubsectorTag == "" {
		t.SubsectorTag = "subsector"
	}
	if t.Tag == "" {
		t.Tag = TagEnergyTransformation
	}
	log.Info("setRegionalShareWeights", "region", t.Region, "sector", t.Sector,
		"subsector", t.Subsector, "stubTechnology", t.StubTechnology, "tag", t.Tag)

	prefix := regionPrefix(t.Region) + fmt.Sprintf("/supplysector[@name='%s']", t.Sector)
	if t.Subsector != "" {
		prefix += fmt.Sprintf("/%s[@name='%s']", t.SubsectorTag, t.Subsector)
	}

	var format string
	if t.StubTechnology != "" {
		format = prefix + fmt.Sprintf("/stub-technology[@name='%s']", t.StubTechnology) +
			"/period[@year='%d']/share-weight"
	} else {
		format = prefix + "/share-weight[@year='%d']"
	}

	instructions, err := yearInstructions(format, pairs)
	if err != nil {
		return err
	}
	return e.editComponentFile(t.Tag, instructions)
}

// SetRegionPopulation sets a region's total population for each given year.
func (e *Editor) SetRegionPopulation(region string, pairs []RawYearValue) error {
	log.Info("setRegionPopulation", "region", region)

	format := fmt.Sprintf("//region[@name='%s']", region) +
		"/demographics/populationMiniCAM[@year='%d']/totalPop"
	instructions, err := yearInstructions(format, pairs)
	if err != nil {
		return err
	}
	return e.editComponentFile(TagSocioeconomics, instructions)
}

// FreezeRegionPopulation holds a region's population constant at its value
// in year, through endYear (default 2100), at the model timestep.
func (e *Editor) FreezeRegionPopulation(region string, year, endYear int) error {
	if endYear == 0 {
		endYear = 2100
	}
	if endYear < year {
		return fmt.Errorf("%w: freeze end year %d before start year %d",
			errUtils.ErrBadArgument, endYear, year)
	}
	log.Info("freezeRegionPopulation", "region", region, "year", year, "endYear", endYear)

	fileRel, fileAbs, err := e.LocalCopy(TagSocioeconomics)
	if err != nil {
		return err
	}
	doc, err := e.cache.Get(fileAbs)
	if err != nil {
		return err
	}

	format := fmt.Sprintf("//region[@name='%s']", region) +
		"/demographics/populationMiniCAM[@year='%d']/totalPop"

	pop, found, err := e.cache.Text(doc, fmt.Sprintf(format, year))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no population for region %q in year %d",
			errUtils.ErrElementNotFound, region, year)
	}

	timestep := e.settings.Timestep
	if timestep <= 0 {
		timestep = DefaultYearStep
	}

	var instructions []xmldoc.Instruction
	for y := year + timestep; y <= endYear; y += timestep {
		instructions = append(instructions, xmldoc.Instruction{
			Selector: fmt.Sprintf(format, y), Op: xmldoc.OpAssign, Value: pop,
		})
	}
	if _, err := e.cache.Apply(doc, instructions); err != nil {
		return err
	}
	return e.components.Update(TagSocioeconomics, fileRel)
}

// FreezeGlobalPopulation freezes every region's population at its value in
// year, through endYear.
func (e *Editor) FreezeGlobalPopulation(year, endYear int) error {
	log.Info("freezeGlobalPopulation", "year", year, "endYear", endYear)
	for _, region := range AllRegions {
		if err := e.FreezeRegionPopulation(region, year, endYear); err != nil {
			return err
		}
	}
	return nil
}

// SetPriceElasticity sets the price elasticity of final demand sectors. An
// empty region list means all regions; sectors must be named explicitly.
func (e *Editor) SetPriceElasticity(regions, sectors []string, configFileTag string, pairs []RawYearValue) error {
	if configFileTag == "" {
		configFileTag = TagSocioeconomics
	}
	if len(sectors) == 0 {
		return fmt.Errorf("%w: no demand sectors given", errUtils.ErrBadArgument)
	}
	log.Info("setPriceElasticity", "regions", regions, "sectors", sectors, "tag", configFileTag)

	if len(regions) == 0 {
		regions = []string{""}
	}

	var instructions []xmldoc.Instruction
	for _, region := range regions {
		for _, sector := range sectors {
			format := regionPrefix(region) +
				fmt.Sprintf("/energy-final-demand[@name='%s']", sector) +
				"/price-elasticity[@year='%d']"
			batch, err := yearInstructions(format, pairs)
			if err != nil {
				return err
			}
			instructions = append(instructions, batch...)
		}
	}
	return e.editComponentFile(configFileTag, instructions)
}

// SetRegionalNonCO2Emissions sets input emissions of one non-CO2 species
// for a stub technology in one region.
func (e *Editor) SetRegionalNonCO2Emissions(region, sector, subsector, stubTechnology, species, tag string, pairs []RawYearValue) error {
	if tag == "" {
		tag = TagNonCO2Energy
	}
	log.Info("setRegionalNonCO2Emissions", "region", region, "sector", sector,
		"technology", stubTechnology, "species", species, "tag", tag)

	format := fmt.Sprintf(
		"//region[@name='%s']/supplysector[@name='%s']/subsector[@name='%s']/stub-technology[@name='%s']",
		region, sector, subsector, stubTechnology) +
		"/period[@year='%d']" +
		fmt.Sprintf("/Non-CO2[@name='%s']/input-emissions", species)
	instructions, err := yearInstructions(format, pairs)
	if err != nil {
		return err
	}
	return e.editComponentFile(tag, instructions)
}

// TechImprovement is one row of a technology efficiency improvement table:
// a fractional improvement per (possibly range-shorthand) year for one
// technology.
type TechImprovement struct {
	// Region empty means all regions.
	Region     string
	Sector     string
	Subsector  string
	Technology string

	// Input names the minicam-energy-input; empty matches any input.
	Input string

	Pairs []RawYearValue
}

func (t TechImprovement) inputFilter() string {
	if t.Input == "" {
		return "minicam-energy-input"
	}
	return fmt.Sprintf("minicam-energy-input[@name='%s']", t.Input)
}

// TransportTechEfficiency applies fractional efficiency improvements to
// transport technologies. An improvement f scales the input coefficient by
// 1/(1+f), since transport files store intensity rather than efficiency.
func (e *Editor) TransportTechEfficiency(tag string, rows []TechImprovement) error {
	if tag == "" {
		tag = TagTransportation
	}
	log.Info("transportTechEfficiency", "tag", tag, "rows", len(rows))

	var instructions []xmldoc.Instruction
	for _, row := range rows {
		expanded, err := ExpandYearRanges(row.Pairs)
		if err != nil {
			return err
		}
		prefix := regionPrefix(row.Region) + fmt.Sprintf(
			"/supplysector[@name='%s']/tranSubsector[@name='%s']/stub-technology[@name='%s']",
			row.Sector, row.Subsector, row.Technology)
		for _, yv := range expanded {
			if yv.Value <= -1 {
				return fmt.Errorf("%w: improvement %v in year %d yields a non-positive coefficient",
					errUtils.ErrBadArgument, yv.Value, yv.Year)
			}
			instructions = append(instructions, xmldoc.Instruction{
				Selector: prefix + fmt.Sprintf("/period[@year='%d']/%s/coefficient", yv.Year, row.inputFilter()),
				Op:       xmldoc.OpMultiply,
				Value:    1 / (1 + yv.Value),
			})
		}
	}
	return e.editComponentFile(tag, instructions)
}

// BuildingTechEfficiency applies efficiency improvements to building
// technologies by generating an overlay document: base efficiencies are read
// from the file behind baseTag, improved in place of the overlay, and the
// overlay is registered as a new scenario component loading after it.
// mode is "mult" (eff * (1+f)) or "add" (eff + f).
func (e *Editor) BuildingTechEfficiency(filename, mode, baseTag string, rows []TechImprovement) error {
	if baseTag == "" {
		baseTag = TagBuilding
	}
	switch mode {
	case "mult", "add":
	default:
		return fmt.Errorf("%w: building efficiency mode %q (want mult or add)", errUtils.ErrBadArgument, mode)
	}
	log.Info("buildingTechEfficiency", "file", filename, "mode", mode, "baseTag", baseTag, "rows", len(rows))

	_, baseAbs, err := e.LocalCopy(baseTag)
	if err != nil {
		return err
	}
	base, err := e.cache.Get(baseAbs)
	if err != nil {
		return err
	}

	overlay := xmldoc.NewGeneratedDocument()
	root := overlay.CreateElement("scenario")
	world := root.CreateElement("world")

	for _, row := range rows {
		expanded, err := ExpandYearRanges(row.Pairs)
		if err != nil {
			return err
		}
		regions := []string{row.Region}
		if row.Region == "" {
			regions = AllRegions
		}
		for _, region := range regions {
			if err := e.buildingOverlayRegion(base, world, region, row, expanded, mode); err != nil {
				return err
			}
		}
	}

	overlayAbs := filepath.Join(e.node.LocalDirAbs, filename)
	overlayRel := filepath.Join(e.node.LocalDirRel, filename)
	if _, err := e.cache.Put(overlayAbs, overlay); err != nil {
		return err
	}

	componentName := strings.TrimSuffix(filename, filepath.Ext(filename))
	return e.AddScenarioComponent(componentName, overlayRel)
}

func (e *Editor) buildingOverlayRegion(base *xmldoc.Document, world *etree.Element,
	region string, row TechImprovement, pairs []YearValue, mode string) error {

	prefix := fmt.Sprintf("//region[@name='%s']/supplysector[@name='%s']/subsector[@name='%s']/stub-technology[@name='%s']",
		region, row.Sector, row.Subsector, row.Technology)

	var periods []*etree.Element
	for _, yv := range pairs {
		selector := prefix + fmt.Sprintf("/period[@year='%d']/%s/efficiency", yv.Year, row.inputFilter())
		text, found, err := e.cache.Text(base, selector)
		if err != nil {
			return err
		}
		if !found {
			// Not every technology exists in every region.
			continue
		}
		baseEff, err := parseFloatText(text)
		if err != nil {
			return fmt.Errorf("%w: efficiency %q at %s is not numeric", errUtils.ErrBadArgument, text, selector)
		}

		newEff := baseEff * (1 + yv.Value)
		if mode == "add" {
			newEff = baseEff + yv.Value
		}

		period := etree.NewElement("period")
		period.CreateAttr("year", strconv.Itoa(yv.Year))
		input := period.CreateElement("minicam-energy-input")
		input.CreateAttr("name", row.Input)
		input.CreateElement("efficiency").SetText(xmldoc.FormatFloat(newEff))
		periods = append(periods, period)
	}
	if len(periods) == 0 {
		return nil
	}

	regionElt := findOrCreate(world, "region", region)
	sector := findOrCreate(regionElt, "supplysector", row.Sector)
	subsector := findOrCreate(sector, "subsector", row.Subsector)
	tech := findOrCreate(subsector, "stub-technology", row.Technology)
	for _, period := range periods {
		tech.AddChild(period)
	}
	return nil
}

// findOrCreate returns the child of parent with the given tag and name
// attribute, creating it if absent. Keeps overlay documents from repeating
// structural elements when multiple rows share a region or sector.
func findOrCreate(parent *etree.Element, tag, name string) *etree.Element {
	for _, child := range parent.SelectElements(tag) {
		if child.SelectAttrValue("name", "") == name {
			return child
		}
	}
	child := parent.CreateElement(tag)
	child.CreateAttr("name", name)
	return child
}

// ExtractStubTechnology pulls one stub technology out of the file behind
// srcTag into a standalone document registered as a new component loading
// immediately after it. The extracted subtree keeps the scenario's value;
// the original is marked deleted so the standalone copy wins.
func (e *Editor) ExtractStubTechnology(region, srcTag, dstFile, sectorElement, sector, subsector, technology string) error {
	if sectorElement == "" {
		sectorElement = "supplysector"
	}
	log.Info("extractStubTechnology", "region", region, "srcTag", srcTag, "dstFile", dstFile,
		"sector", sector, "subsector", subsector, "technology", technology)

	srcRel, srcAbs, err := e.LocalCopy(srcTag)
	if err != nil {
		return err
	}
	src, err := e.cache.Get(srcAbs)
	if err != nil {
		return err
	}

	selector := fmt.Sprintf("//region[@name='%s']/%s[@name='%s']/subsector[@name='%s']/stub-technology[@name='%s']",
		region, sectorElement, sector, subsector, technology)
	path, err := etree.CompilePath(selector)
	if err != nil {
		return errUtils.Build(errUtils.ErrBadSelector).
			WithCause(err).
			WithContext("selector", selector).
			Err()
	}
	stub := src.Tree.FindElementPath(path)
	if stub == nil {
		return fmt.Errorf("%w: selector %q in %s", errUtils.ErrElementNotFound, selector, srcAbs)
	}

	out := xmldoc.NewGeneratedDocument()
	root := out.CreateElement("scenario")
	world := root.CreateElement("world")
	regionElt := findOrCreate(world, "region", region)
	sectorElt := findOrCreate(regionElt, sectorElement, sector)
	subsectorElt := findOrCreate(sectorElt, "subsector", subsector)
	subsectorElt.AddChild(stub.Copy())

	// The source copy is marked deleted, not removed, so the document
	// still records that the technology existed there.
	stub.CreateAttr("delete", "1")
	e.cache.MarkDirty(src)
	if err := e.components.Update(srcTag, srcRel); err != nil {
		return err
	}

	dstAbs := filepath.Join(e.node.LocalDirAbs, dstFile)
	dstRel := filepath.Join(e.node.LocalDirRel, dstFile)
	if _, err := e.cache.Put(dstAbs, out); err != nil {
		return err
	}

	componentName := strings.TrimSuffix(dstFile, filepath.Ext(dstFile))
	return e.components.InsertAfter(componentName, dstRel, srcTag)
}
