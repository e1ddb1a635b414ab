package scenario

import (
	"path/filepath"
	"strings"

	log "github.com/scenforge/scenforge/pkg/logger"
	"github.com/scenforge/scenforge/pkg/policy"
)

// CarbonTaxArgs parameterizes TaxCarbon. Zero fields take model defaults.
type CarbonTaxArgs struct {
	// InitialValue is the tax in the start year, 1990$/tC.
	InitialValue float64

	// StartYear defaults to 2020, EndYear to 2100.
	StartYear int
	EndYear   int

	// Rate is the annual growth rate; defaults to 0.05.
	Rate float64

	// Regions defaults to all regions, Market to the global market.
	Regions []string
	Market  string
}

// TaxCarbon generates a carbon tax growing at a fixed annual rate and
// registers it as the carbon_tax component.
func (e *Editor) TaxCarbon(args CarbonTaxArgs) error {
	if args.StartYear == 0 {
		args.StartYear = 2020
	}
	if args.EndYear == 0 {
		args.EndYear = 2100
	}
	if args.Rate == 0 {
		args.Rate = 0.05
	}
	if len(args.Regions) == 0 {
		args.Regions = AllRegions
	}
	timestep := e.settings.Timestep
	if timestep <= 0 {
		timestep = DefaultYearStep
	}
	log.Info("taxCarbon", "initialValue", args.InitialValue, "rate", args.Rate,
		"startYear", args.StartYear, "endYear", args.EndYear, "market", args.Market)

	doc, err := policy.CarbonTaxDocument(policy.CarbonTaxSpec{
		InitialValue: args.InitialValue,
		StartYear:    args.StartYear,
		EndYear:      args.EndYear,
		Timestep:     timestep,
		Rate:         args.Rate,
		Regions:      args.Regions,
		Market:       args.Market,
	})
	if err != nil {
		return err
	}

	const filename = "carbon_tax.xml"
	if _, err := e.cache.Put(filepath.Join(e.node.LocalDirAbs, filename), doc); err != nil {
		return err
	}
	return e.AddScenarioComponent("carbon_tax", filepath.Join(e.node.LocalDirRel, filename))
}

// TaxBioCarbon links land-use-change carbon to the fossil carbon market so
// biogenic emissions see the tax (forTax) or count against the cap (forCap),
// and registers the linked policy as the carbon_tax_bio component.
func (e *Editor) TaxBioCarbon(market string, regions []string, forTax, forCap bool) error {
	if len(regions) == 0 {
		regions = AllRegions
	}
	log.Info("taxBioCarbon", "market", market, "forTax", forTax, "forCap", forCap)

	doc, err := policy.BioCarbonDocument(policy.BioCarbonSpec{
		Market:  market,
		Regions: regions,
		ForTax:  forTax,
		ForCap:  forCap,
	})
	if err != nil {
		return err
	}

	const filename = "carbon_tax_bio.xml"
	if _, err := e.cache.Put(filepath.Join(e.node.LocalDirAbs, filename), doc); err != nil {
		return err
	}
	return e.AddScenarioComponent("carbon_tax_bio", filepath.Join(e.node.LocalDirRel, filename))
}

// WritePolicyMarketFile generates the market declaration side of a policy
// pair into the scenario's local tree. The file is not registered as a
// component; AddMarketConstraint binds the pair by naming convention.
func (e *Editor) WritePolicyMarketFile(filename string, spec policy.MarketSpec) error {
	log.Info("writePolicyMarketFile", "file", filename, "policy", spec.PolicyName)

	doc, err := policy.MarketDocument(spec)
	if err != nil {
		return err
	}
	_, err = e.cache.Put(e.policyFilePath(filename), doc)
	return err
}

// WritePolicyConstraintFile generates the constraint side of a policy pair
// into the scenario's local tree (or dynamic tree for files under dyn-xml).
func (e *Editor) WritePolicyConstraintFile(filename string, spec policy.ConstraintSpec) error {
	log.Info("writePolicyConstraintFile", "file", filename, "policy", spec.PolicyName)

	doc, err := policy.ConstraintDocument(spec)
	if err != nil {
		return err
	}
	_, err = e.cache.Put(e.policyFilePath(filename), doc)
	return err
}

// policyFilePath anchors a generated policy file: absolute paths pass
// through, a "dyn-xml/" prefix selects the dynamic tree, anything else
// lands in the scenario's local tree.
func (e *Editor) policyFilePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filepath.Clean(filename)
	}
	if strings.HasPrefix(filepath.ToSlash(filename), DynXMLName+"/") {
		return filepath.Join(e.node.DynDirAbs, filepath.Base(filename))
	}
	return filepath.Join(e.node.LocalDirAbs, filename)
}
