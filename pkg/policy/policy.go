// Package policy generates standalone policy documents: carbon taxes,
// linked biogenic-carbon policies, and the market/constraint file pair used
// by market constraints. Generators build in-memory documents only; callers
// decide where they land and whether they are registered as components.
package policy

import (
	"fmt"
	"math"
	"strconv"

	"github.com/beevik/etree"

	errUtils "github.com/scenforge/scenforge/errors"
	"github.com/scenforge/scenforge/pkg/xmldoc"
)

// Default identifiers shared by the generators.
const (
	// CarbonPolicyName is the policy the model prices fossil carbon under.
	CarbonPolicyName = "CO2"

	// BioPolicyName is the linked policy for land-use-change carbon.
	BioPolicyName = "CO2_LUC"

	// DefaultMarket is the market name used when none is given.
	DefaultMarket = "global"

	// GHGPolicyElement is the element wrapping tax-style policies.
	GHGPolicyElement = "ghgpolicy"

	// PortfolioStandardElement wraps share-requirement policies; these
	// carry an explicit policyType child.
	PortfolioStandardElement = "policy-portfolio-standard"
)

// CarbonTaxSpec describes an exponentially growing carbon tax.
type CarbonTaxSpec struct {
	// InitialValue is the tax in StartYear, in 1990$/tC.
	InitialValue float64

	StartYear int
	EndYear   int

	// Timestep is the interval between taxed years.
	Timestep int

	// Rate is the annual growth rate (0.05 for 5%/yr).
	Rate float64

	// Regions participate in the tax.
	Regions []string

	// Market defaults to DefaultMarket.
	Market string
}

// CarbonTaxDocument builds a fixed-tax policy document with the tax
// compounding annually from the initial value.
func CarbonTaxDocument(spec CarbonTaxSpec) (*etree.Document, error) {
	if spec.InitialValue <= 0 || spec.Timestep <= 0 || spec.EndYear < spec.StartYear {
		return nil, fmt.Errorf("%w: carbon tax spec %+v", errUtils.ErrBadArgument, spec)
	}
	if len(spec.Regions) == 0 {
		return nil, fmt.Errorf("%w: carbon tax needs at least one region", errUtils.ErrBadArgument)
	}
	market := spec.Market
	if market == "" {
		market = DefaultMarket
	}

	doc := xmldoc.NewGeneratedDocument()
	world := doc.CreateElement("scenario").CreateElement("world")

	for _, region := range spec.Regions {
		regionElt := world.CreateElement("region")
		regionElt.CreateAttr("name", region)

		policy := regionElt.CreateElement(GHGPolicyElement)
		policy.CreateAttr("name", CarbonPolicyName)
		policy.CreateElement("market").SetText(market)

		for year := spec.StartYear; year <= spec.EndYear; year += spec.Timestep {
			tax := spec.InitialValue * math.Pow(1+spec.Rate, float64(year-spec.StartYear))
			fixedTax := policy.CreateElement("fixedTax")
			fixedTax.CreateAttr("year", strconv.Itoa(year))
			fixedTax.SetText(xmldoc.FormatFloat(round2(tax)))
		}
	}
	return doc, nil
}

// round2 keeps generated tax values readable; the model does not resolve
// below cents anyway.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// BioCarbonSpec describes a linked policy pricing (or capping) biogenic
// land-use-change carbon alongside the fossil carbon policy.
type BioCarbonSpec struct {
	// Market defaults to DefaultMarket.
	Market  string
	Regions []string

	// ForTax links the price signal; ForCap links the demand signal.
	ForTax bool
	ForCap bool
}

// BioCarbonDocument builds a linked-ghg-policy document tying land-use-change
// carbon to the fossil policy's market.
func BioCarbonDocument(spec BioCarbonSpec) (*etree.Document, error) {
	if len(spec.Regions) == 0 {
		return nil, fmt.Errorf("%w: bio carbon policy needs at least one region", errUtils.ErrBadArgument)
	}
	market := spec.Market
	if market == "" {
		market = DefaultMarket
	}

	doc := xmldoc.NewGeneratedDocument()
	world := doc.CreateElement("scenario").CreateElement("world")

	for _, region := range spec.Regions {
		regionElt := world.CreateElement("region")
		regionElt.CreateAttr("name", region)

		policy := regionElt.CreateElement("linked-ghg-policy")
		policy.CreateAttr("name", BioPolicyName)
		policy.CreateElement("market").SetText(market)
		policy.CreateElement("linked-policy").SetText(CarbonPolicyName)
		policy.CreateElement("price-unit").SetText("1990$/tC")
		policy.CreateElement("demand-unit").SetText("MtC")

		priceAdjust := policy.CreateElement("price-adjust")
		priceAdjust.CreateAttr("year", "2020")
		priceAdjust.CreateAttr("fillout", "1")
		priceAdjust.SetText(boolText(spec.ForTax))

		demandAdjust := policy.CreateElement("demand-adjust")
		demandAdjust.CreateAttr("year", "2020")
		demandAdjust.CreateAttr("fillout", "1")
		demandAdjust.SetText(boolText(spec.ForCap))
	}
	return doc, nil
}

func boolText(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// MarketSpec describes the market side of a policy pair: every participating
// region declares the policy and points it at one shared market.
type MarketSpec struct {
	PolicyName string

	// MarketRegion names the market all participants trade in.
	MarketRegion string

	// Regions participate; defaults to just MarketRegion.
	Regions []string

	// Years get zero-valued fixedTax placeholders so the market exists in
	// every period the constraint file later binds.
	Years []int

	// PolicyElement defaults to GHGPolicyElement.
	PolicyElement string

	// PolicyType is required for portfolio-standard policies ("tax" or
	// "subsidy") and ignored otherwise.
	PolicyType string
}

// MarketDocument builds the market declaration document for a policy.
func MarketDocument(spec MarketSpec) (*etree.Document, error) {
	if spec.PolicyName == "" || spec.MarketRegion == "" {
		return nil, fmt.Errorf("%w: market spec needs a policy name and market region", errUtils.ErrBadArgument)
	}
	element := spec.PolicyElement
	if element == "" {
		element = GHGPolicyElement
	}
	if element == PortfolioStandardElement && spec.PolicyType == "" {
		return nil, fmt.Errorf("%w: portfolio-standard policies need a policyType", errUtils.ErrBadArgument)
	}
	regions := spec.Regions
	if len(regions) == 0 {
		regions = []string{spec.MarketRegion}
	}

	doc := xmldoc.NewGeneratedDocument()
	world := doc.CreateElement("scenario").CreateElement("world")

	for _, region := range regions {
		regionElt := world.CreateElement("region")
		regionElt.CreateAttr("name", region)

		policy := regionElt.CreateElement(element)
		policy.CreateAttr("name", spec.PolicyName)
		policy.CreateElement("market").SetText(spec.MarketRegion)
		if element == PortfolioStandardElement {
			policy.CreateElement("policyType").SetText(spec.PolicyType)
		}

		for _, year := range spec.Years {
			fixedTax := policy.CreateElement("fixedTax")
			fixedTax.CreateAttr("year", strconv.Itoa(year))
			fixedTax.SetText("0")
		}
	}
	return doc, nil
}

// YearTarget is one constrained (year, level) point.
type YearTarget struct {
	Year  int
	Value float64
}

// ConstraintSpec describes the constraint side of a policy pair.
type ConstraintSpec struct {
	PolicyName string
	Region     string

	// Market defaults to DefaultMarket.
	Market string

	// PolicyElement defaults to GHGPolicyElement.
	PolicyElement string

	// PolicyType as in MarketSpec.
	PolicyType string

	Targets []YearTarget

	// MinPrice, when set, is declared with fillout from the first target
	// year.
	MinPrice *float64
}

// ConstraintDocument builds the constraint document binding a policy to
// per-year target levels in one region.
func ConstraintDocument(spec ConstraintSpec) (*etree.Document, error) {
	if spec.PolicyName == "" || spec.Region == "" {
		return nil, fmt.Errorf("%w: constraint spec needs a policy name and region", errUtils.ErrBadArgument)
	}
	if len(spec.Targets) == 0 {
		return nil, fmt.Errorf("%w: constraint spec needs at least one target", errUtils.ErrBadArgument)
	}
	element := spec.PolicyElement
	if element == "" {
		element = GHGPolicyElement
	}
	market := spec.Market
	if market == "" {
		market = DefaultMarket
	}

	doc := xmldoc.NewGeneratedDocument()
	world := doc.CreateElement("scenario").CreateElement("world")

	regionElt := world.CreateElement("region")
	regionElt.CreateAttr("name", spec.Region)

	policy := regionElt.CreateElement(element)
	policy.CreateAttr("name", spec.PolicyName)
	policy.CreateElement("market").SetText(market)
	if element == PortfolioStandardElement && spec.PolicyType != "" {
		policy.CreateElement("policyType").SetText(spec.PolicyType)
	}

	if spec.MinPrice != nil {
		minPrice := policy.CreateElement("min-price")
		minPrice.CreateAttr("year", strconv.Itoa(spec.Targets[0].Year))
		minPrice.CreateAttr("fillout", "1")
		minPrice.SetText(xmldoc.FormatFloat(*spec.MinPrice))
	}

	for _, target := range spec.Targets {
		constraint := policy.CreateElement("constraint")
		constraint.CreateAttr("year", strconv.Itoa(target.Year))
		constraint.SetText(xmldoc.FormatFloat(target.Value))
	}
	return doc, nil
}
