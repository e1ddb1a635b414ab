package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/scenforge/scenforge/errors"
)

func TestCarbonTaxDocumentCompounds(t *testing.T) {
	doc, err := CarbonTaxDocument(CarbonTaxSpec{
		InitialValue: 10,
		StartYear:    2020,
		EndYear:      2030,
		Timestep:     5,
		Rate:         0.05,
		Regions:      []string{"USA", "China"},
	})
	require.NoError(t, err)

	regions := doc.FindElements("//region")
	require.Len(t, regions, 2)

	policy := doc.FindElement("//region[@name='USA']/ghgpolicy[@name='CO2']")
	require.NotNil(t, policy)
	assert.Equal(t, "global", policy.FindElement("market").Text())

	// 10 * 1.05^0, ^5, ^10, rounded to cents.
	assert.Equal(t, "10.0", policy.FindElement("fixedTax[@year='2020']").Text())
	assert.Equal(t, "12.76", policy.FindElement("fixedTax[@year='2025']").Text())
	assert.Equal(t, "16.29", policy.FindElement("fixedTax[@year='2030']").Text())
}

func TestCarbonTaxDocumentValidation(t *testing.T) {
	_, err := CarbonTaxDocument(CarbonTaxSpec{
		InitialValue: 0, StartYear: 2020, EndYear: 2030, Timestep: 5,
		Regions: []string{"USA"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)

	_, err = CarbonTaxDocument(CarbonTaxSpec{
		InitialValue: 10, StartYear: 2030, EndYear: 2020, Timestep: 5,
		Regions: []string{"USA"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)

	_, err = CarbonTaxDocument(CarbonTaxSpec{
		InitialValue: 10, StartYear: 2020, EndYear: 2030, Timestep: 5,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)
}

func TestBioCarbonDocumentLinksSignals(t *testing.T) {
	doc, err := BioCarbonDocument(BioCarbonSpec{
		Regions: []string{"USA"},
		ForTax:  true,
		ForCap:  false,
	})
	require.NoError(t, err)

	policy := doc.FindElement("//region[@name='USA']/linked-ghg-policy[@name='CO2_LUC']")
	require.NotNil(t, policy)
	assert.Equal(t, "CO2", policy.FindElement("linked-policy").Text())
	assert.Equal(t, "1", policy.FindElement("price-adjust").Text())
	assert.Equal(t, "0", policy.FindElement("demand-adjust").Text())
	assert.Equal(t, "1", policy.FindElement("price-adjust").SelectAttrValue("fillout", ""))
}

func TestMarketDocument(t *testing.T) {
	doc, err := MarketDocument(MarketSpec{
		PolicyName:   "cellulosic-etoh-subsidy",
		MarketRegion: "USA",
		Regions:      []string{"USA", "Canada"},
		Years:        []int{2025, 2030},
	})
	require.NoError(t, err)

	for _, region := range []string{"USA", "Canada"} {
		policy := doc.FindElement("//region[@name='" + region + "']/ghgpolicy[@name='cellulosic-etoh-subsidy']")
		require.NotNil(t, policy, "region %s", region)
		assert.Equal(t, "USA", policy.FindElement("market").Text())
		assert.Equal(t, "0", policy.FindElement("fixedTax[@year='2025']").Text())
	}
}

func TestMarketDocumentPortfolioStandardNeedsType(t *testing.T) {
	_, err := MarketDocument(MarketSpec{
		PolicyName:    "res",
		MarketRegion:  "USA",
		PolicyElement: PortfolioStandardElement,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)

	doc, err := MarketDocument(MarketSpec{
		PolicyName:    "res",
		MarketRegion:  "USA",
		PolicyElement: PortfolioStandardElement,
		PolicyType:    "subsidy",
	})
	require.NoError(t, err)
	assert.Equal(t, "subsidy", doc.FindElement("//policy-portfolio-standard/policyType").Text())
}

func TestConstraintDocument(t *testing.T) {
	minPrice := 1.0
	doc, err := ConstraintDocument(ConstraintSpec{
		PolicyName: "CO2",
		Region:     "USA",
		Market:     "global",
		Targets: []YearTarget{
			{Year: 2025, Value: 5000},
			{Year: 2030, Value: 4500},
		},
		MinPrice: &minPrice,
	})
	require.NoError(t, err)

	policy := doc.FindElement("//region[@name='USA']/ghgpolicy[@name='CO2']")
	require.NotNil(t, policy)
	assert.Equal(t, "5000.0", policy.FindElement("constraint[@year='2025']").Text())
	assert.Equal(t, "4500.0", policy.FindElement("constraint[@year='2030']").Text())

	min := policy.FindElement("min-price")
	require.NotNil(t, min)
	assert.Equal(t, "2025", min.SelectAttrValue("year", ""))
	assert.Equal(t, "1.0", min.Text())
}

func TestConstraintDocumentValidation(t *testing.T) {
	_, err := ConstraintDocument(ConstraintSpec{PolicyName: "CO2", Region: "USA"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)

	_, err = ConstraintDocument(ConstraintSpec{Region: "USA", Targets: []YearTarget{{Year: 2025, Value: 1}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)
}
