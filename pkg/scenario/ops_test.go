package scenario

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/scenforge/scenforge/errors"
)

func TestSetupSolverValidatesBeforeTouchingFiles(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	err := env.base.SetupSolver(SolverSettings{
		SolutionTolerance: 0.001,
		BroydenTolerance:  0.01, // exceeds the solution tolerance
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)

	// Nothing was materialized.
	assert.NoFileExists(t, filepath.Join(env.base.Node().LocalDirAbs, "cal_broyden_config.xml"))

	err = env.base.SetupSolver(SolverSettings{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)

	err = env.base.SetupSolver(SolverSettings{MaxModelCalcs: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)
}

func TestSetupSolverEditsSolverFile(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	require.NoError(t, env.base.SetupSolver(SolverSettings{
		SolutionTolerance: 0.01,
		BroydenTolerance:  0.005,
		MaxModelCalcs:     4000,
	}))

	doc, err := env.cache.Get(filepath.Join(env.base.Node().LocalDirAbs, "cal_broyden_config.xml"))
	require.NoError(t, err)
	assert.Equal(t, "0.01", doc.Tree.FindElement("//user-configurable-solver/solution-tolerance").Text())
	assert.Equal(t, "0.005", doc.Tree.FindElement("//broyden-solver-component/ftol").Text())
	assert.Equal(t, "4000", doc.Tree.FindElement("//user-configurable-solver/max-model-calcs").Text())
	// Untouched settings keep their reference values.
	assert.Equal(t, "100", doc.Tree.FindElement("//broyden-solver-component/max-iterations").Text())
}

func TestMarketConstraintPair(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	require.NoError(t, env.base.AddMarketConstraint("cellulosic-etoh", "tax", false))

	c := env.base.Components()
	policyPath, err := c.Lookup("cellulosic-etoh-policy")
	require.NoError(t, err)
	assert.Equal(t,
		filepath.ToSlash(filepath.Join(env.base.Node().LocalDirRel, "cellulosic-etoh-tax.xml")),
		policyPath)

	constraintPath, err := c.Lookup("cellulosic-etoh-constraint")
	require.NoError(t, err)
	assert.Equal(t,
		filepath.ToSlash(filepath.Join(env.base.Node().LocalDirRel, "cellulosic-etoh-tax-constraint.xml")),
		constraintPath)

	// Re-adding as dynamic updates in place rather than duplicating.
	require.NoError(t, env.base.AddMarketConstraint("cellulosic-etoh", "tax", true))
	constraintPath, err = c.Lookup("cellulosic-etoh-constraint")
	require.NoError(t, err)
	assert.Equal(t,
		filepath.ToSlash(filepath.Join(env.base.Node().DynDirRel, "cellulosic-etoh-tax-constraint.xml")),
		constraintPath)

	require.NoError(t, env.base.DelMarketConstraint("cellulosic-etoh", "tax"))
	ok, err := c.Exists("cellulosic-etoh-policy")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is benign.
	require.NoError(t, env.base.DelMarketConstraint("cellulosic-etoh", "tax"))
}

func TestSetGlobalTechShareWeightYearRange(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	require.NoError(t, env.base.SetGlobalTechShareWeight(
		"refining", "biomass liquids", "cellulosic ethanol", "energy",
		[]RawYearValue{{Year: "2025-2030", Value: 1}}))

	doc, err := env.cache.Get(filepath.Join(env.base.Node().LocalDirAbs, "energy.xml"))
	require.NoError(t, err)
	for _, year := range []string{"2025", "2030"} {
		elt := doc.Tree.FindElement("//technology[@name='cellulosic ethanol']/period[@year='" + year + "']/share-weight")
		require.NotNil(t, elt, "year %s", year)
		assert.Equal(t, "1.0", elt.Text())
	}
}

func TestSetRegionPopulationAndFreeze(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	require.NoError(t, env.base.SetRegionPopulation("USA", []RawYearValue{{Year: "2020", Value: 331000}}))

	doc, err := env.cache.Get(filepath.Join(env.base.Node().LocalDirAbs, "socio.xml"))
	require.NoError(t, err)
	assert.Equal(t, "331000.0",
		doc.Tree.FindElement("//populationMiniCAM[@year='2020']/totalPop").Text())

	require.NoError(t, env.base.FreezeRegionPopulation("USA", 2020, 2030))
	for _, year := range []string{"2025", "2030"} {
		assert.Equal(t, "331000.0",
			doc.Tree.FindElement("//populationMiniCAM[@year='"+year+"']/totalPop").Text(), "year %s", year)
	}
}

func TestFreezeRegionPopulationMissingYear(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	err := env.base.FreezeRegionPopulation("USA", 1990, 2030)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrElementNotFound)
}

func TestProtectLand(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	require.NoError(t, env.base.ProtectLand(0.9, []string{"Shrubland"}, nil))

	doc, err := env.cache.Get(filepath.Join(env.base.Node().LocalDirAbs, "land2.xml"))
	require.NoError(t, err)

	unmanaged := doc.Tree.FindElement("//UnmanagedLandLeaf[@name='Shrubland_USA']/allocation[@year='2020']")
	require.NotNil(t, unmanaged)
	assert.InDelta(t, 10.0, mustFloat(t, unmanaged.Text()), 1e-9)

	protected := doc.Tree.FindElement("//UnmanagedLandLeaf[@name='ProtectedShrubland_USA']/allocation[@year='2020']")
	require.NotNil(t, protected)
	assert.InDelta(t, 90.0, mustFloat(t, protected.Text()), 1e-9)

	// Unmatched land classes keep their allocations.
	grass := doc.Tree.FindElement("//UnmanagedLandLeaf[@name='Grassland_USA']/allocation[@year='2020']")
	require.NotNil(t, grass)
	assert.Equal(t, "50.0", grass.Text())
	assert.Nil(t, doc.Tree.FindElement("//UnmanagedLandLeaf[@name='ProtectedGrassland_USA']"))
}

func TestProtectLandRejectsBadFraction(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	err := env.base.ProtectLand(1.5, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrBadArgument)
}

func TestDropLandProtection(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	c := env.base.Components()
	require.NoError(t, c.Add("protected_land_2", "../input/xml/prot2.xml"))
	require.NoError(t, c.Add("protected_land_3", "../input/xml/prot3.xml"))
	require.NoError(t, c.Add("nonco2_aglu_prot", "../input/xml/prot_nonco2.xml"))

	require.NoError(t, env.base.DropLandProtection(true))

	for _, tag := range []string{"protected_land_2", "protected_land_3", "nonco2_aglu_prot"} {
		ok, err := c.Exists(tag)
		require.NoError(t, err)
		assert.False(t, ok, "tag %s", tag)
	}
}

func TestExtractStubTechnology(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	// The energy fixture uses the global technology database, so extract
	// from a file with regional stub technologies instead.
	writeXML(t, filepath.Join(env.ws, "input", "xml", "elec.xml"), `<scenario>
  <world>
    <region name="USA">
      <supplysector name="electricity">
        <subsector name="solar">
          <stub-technology name="PV">
            <period year="2025"><share-weight>0.3</share-weight></period>
          </stub-technology>
        </subsector>
      </supplysector>
    </region>
  </world>
</scenario>`)
	require.NoError(t, env.base.Components().Add("electricity", "../input/xml/elec.xml"))

	require.NoError(t, env.base.ExtractStubTechnology(
		"USA", "electricity", "solar_pv.xml", "", "electricity", "solar", "PV"))
	require.NoError(t, env.cache.FlushAll())

	out, err := env.cache.Get(filepath.Join(env.base.Node().LocalDirAbs, "solar_pv.xml"))
	require.NoError(t, err)
	stub := out.Tree.FindElement("//region[@name='USA']/supplysector[@name='electricity']/subsector[@name='solar']/stub-technology[@name='PV']")
	require.NotNil(t, stub)
	assert.Equal(t, "0.3", stub.FindElement("period/share-weight").Text())

	// The source copy is marked deleted.
	src, err := env.cache.Get(filepath.Join(env.base.Node().LocalDirAbs, "elec.xml"))
	require.NoError(t, err)
	assert.Equal(t, "1", src.Tree.FindElement("//stub-technology[@name='PV']").SelectAttrValue("delete", ""))

	// The new component loads right after its source.
	got, err := env.base.Components().Lookup("solar_pv")
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(env.base.Node().LocalDirRel, "solar_pv.xml")), got)
}

func TestTaxCarbonRegistersComponent(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	require.NoError(t, env.base.TaxCarbon(CarbonTaxArgs{
		InitialValue: 10,
		StartYear:    2020,
		EndYear:      2030,
		Rate:         0.05,
		Regions:      []string{"USA"},
	}))
	require.NoError(t, env.cache.FlushAll())

	got, err := env.base.Components().Lookup("carbon_tax")
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(env.base.Node().LocalDirRel, "carbon_tax.xml")), got)

	doc, err := env.cache.Get(filepath.Join(env.base.Node().LocalDirAbs, "carbon_tax.xml"))
	require.NoError(t, err)
	first := doc.Tree.FindElement("//region[@name='USA']/ghgpolicy[@name='CO2']/fixedTax[@year='2020']")
	require.NotNil(t, first)
	assert.Equal(t, "10.0", first.Text())
}

func TestStringReplace(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	selector := "//technology[@name='cellulosic ethanol']/period[@year='2025']/share-weight"
	require.NoError(t, env.base.StringReplace("energy", selector, "0.5", "0.75"))

	doc, err := env.cache.Get(filepath.Join(env.base.Node().LocalDirAbs, "energy.xml"))
	require.NoError(t, err)
	assert.Equal(t, "0.75", doc.Tree.FindElement(selector).Text())
}

func TestStringReplaceRequiresMatch(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	err := env.base.StringReplace("energy", "//no-such-element", "a", "b")
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrElementNotFound)
}

func mustFloat(t *testing.T, s string) float64 {
	t.Helper()
	f, err := parseFloatText(s)
	require.NoError(t, err)
	return f
}
