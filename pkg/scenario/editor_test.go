package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenforge/scenforge/pkg/schema"
	"github.com/scenforge/scenforge/pkg/xmldoc"
)

const refConfigDoc = `<Configuration>
  <Files>
    <Value name="xmlDebugFileName" write-output="0">debug.xml</Value>
  </Files>
  <Strings>
    <Value name="scenarioName">reference</Value>
  </Strings>
  <Ints>
    <Value name="stop-period">-1</Value>
  </Ints>
  <Bools>
    <Value name="PrintPrices">0</Value>
  </Bools>
  <ScenarioComponents>
    <Value name="energy">../input/xml/energy.xml</Value>
    <Value name="socioeconomics">../input/xml/socio.xml</Value>
    <Value name="solver">../input/solution/cal_broyden_config.xml</Value>
    <Value name="land_2">../input/xml/land2.xml</Value>
    <Value name="land_3">../input/xml/land3.xml</Value>
  </ScenarioComponents>
</Configuration>`

const energyDoc = `<scenario>
  <world>
    <global-technology-database>
      <location-info sector-name="refining" subsector-name="biomass liquids">
        <technology name="cellulosic ethanol">
          <period year="2025">
            <share-weight>0.5</share-weight>
            <minicam-non-energy-input name="non-energy">
              <input-cost>10.0</input-cost>
            </minicam-non-energy-input>
          </period>
          <period year="2030">
            <share-weight>0.5</share-weight>
            <minicam-non-energy-input name="non-energy">
              <input-cost>10.0</input-cost>
            </minicam-non-energy-input>
          </period>
        </technology>
      </location-info>
    </global-technology-database>
  </world>
</scenario>`

const socioDoc = `<scenario>
  <world>
    <region name="USA">
      <demographics>
        <populationMiniCAM year="2020"><totalPop>330000</totalPop></populationMiniCAM>
        <populationMiniCAM year="2025"><totalPop>340000</totalPop></populationMiniCAM>
        <populationMiniCAM year="2030"><totalPop>350000</totalPop></populationMiniCAM>
      </demographics>
    </region>
  </world>
</scenario>`

const solverDoc = `<scenario>
  <user-configurable-solver year="2010">
    <solution-tolerance>0.001</solution-tolerance>
    <max-model-calcs>2000</max-model-calcs>
    <broyden-solver-component>
      <ftol>0.001</ftol>
      <max-iterations>100</max-iterations>
    </broyden-solver-component>
  </user-configurable-solver>
</scenario>`

const landDoc = `<scenario>
  <world>
    <region name="USA">
      <LandNode name="root">
        <UnmanagedLandLeaf name="Shrubland_USA">
          <allocation year="2020">100.0</allocation>
          <allocation year="2025">100.0</allocation>
        </UnmanagedLandLeaf>
        <UnmanagedLandLeaf name="Grassland_USA">
          <allocation year="2020">50.0</allocation>
        </UnmanagedLandLeaf>
      </LandNode>
    </region>
  </world>
</scenario>`

// testEnv is one run workspace with a baseline and a derived scenario.
type testEnv struct {
	ws       string
	settings schema.Settings
	h        *Hierarchy
	cache    *xmldoc.Cache
	base     *Editor
	child    *Editor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ws := t.TempDir()

	for name, content := range map[string]string{
		filepath.Join("input", "xml", "energy.xml"):                  energyDoc,
		filepath.Join("input", "xml", "socio.xml"):                   socioDoc,
		filepath.Join("input", "xml", "land2.xml"):                   landDoc,
		filepath.Join("input", "xml", "land3.xml"):                   landDoc,
		filepath.Join("input", "solution", "cal_broyden_config.xml"): solverDoc,
		"reference-config.xml":                                       refConfigDoc,
	} {
		writeXML(t, filepath.Join(ws, name), content)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(ws, "exe"), 0o755))

	settings := schema.Settings{
		ReferenceWorkspace: ws,
		ReferenceConfig:    filepath.Join(ws, "reference-config.xml"),
		ScenarioRoot:       ws,
		SourceRoot:         filepath.Join(ws, "sources"),
		ModelVersion:       "5.1.2",
		Timestep:           5,
	}

	h := NewHierarchy(ws)
	baseNode, err := h.Add("base", "grp", "")
	require.NoError(t, err)
	childNode, err := h.Add("child", "grp", "base")
	require.NoError(t, err)

	cache := xmldoc.NewCache()
	return &testEnv{
		ws:       ws,
		settings: settings,
		h:        h,
		cache:    cache,
		base:     NewEditor(settings, cache, baseNode, ""),
		child:    NewEditor(settings, cache, childNode, ""),
	}
}

func (env *testEnv) setupBase(t *testing.T) {
	t.Helper()
	require.NoError(t, env.base.SetupStatic(SetupOptions{}))
	require.NoError(t, env.cache.FlushAll())
}

func (env *testEnv) setupChild(t *testing.T) {
	t.Helper()
	require.NoError(t, env.child.SetupStatic(SetupOptions{}))
	require.NoError(t, env.cache.FlushAll())
}

func TestSetupStaticBaselineClonesReferenceConfig(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	configPath := env.base.Node().ConfigPath()
	require.FileExists(t, configPath)

	doc, err := env.cache.Get(configPath)
	require.NoError(t, err)
	assert.Equal(t, "base", doc.Tree.FindElement("//Strings/Value[@name='scenarioName']").Text())
	assert.Equal(t, StaticSetupDone, env.base.State())
}

func TestSetupStaticChildClonesParentConfig(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	// A baseline edit visible in the flushed config.
	require.NoError(t, env.base.DeleteScenarioComponent("land_3"))
	require.NoError(t, env.cache.FlushAll())

	env.setupChild(t)

	doc, err := env.cache.Get(env.child.Node().ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "child", doc.Tree.FindElement("//Strings/Value[@name='scenarioName']").Text())
	// The parent's deletion is inherited.
	assert.Nil(t, doc.Tree.FindElement("//ScenarioComponents/Value[@name='land_3']"))
}

func TestSetupStaticCopiesSourceFiles(t *testing.T) {
	env := newTestEnv(t)
	writeXML(t, filepath.Join(env.settings.SourceRoot, "grp", "base", "extra.xml"), "<extra/>")
	writeXML(t, filepath.Join(env.settings.SourceRoot, "grp", "base", "xml", "legacy.xml"), "<legacy/>")

	env.setupBase(t)

	assert.FileExists(t, filepath.Join(env.base.Node().LocalDirAbs, "extra.xml"))
	assert.FileExists(t, filepath.Join(env.base.Node().LocalDirAbs, "legacy.xml"))
}

func TestSetupStaticClearsStaleChildFiles(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	stale := filepath.Join(env.child.Node().LocalDirAbs, "stale.xml")
	writeXML(t, stale, "<stale/>")

	env.setupChild(t)
	assert.NoFileExists(t, stale)
}

func TestLocalCopyMaterializesAndIsStable(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	rel, abs, err := env.base.LocalCopy("energy")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.base.Node().LocalDirRel, "energy.xml"), rel)
	require.FileExists(t, abs)

	// Second call performs no further copy and returns the same paths.
	rel2, abs2, err := env.base.LocalCopy("energy")
	require.NoError(t, err)
	assert.Equal(t, rel, rel2)
	assert.Equal(t, abs, abs2)
}

func TestMultiplyEditsLocalCopyOnly(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	selector := "//location-info[@sector-name='refining'][@subsector-name='biomass liquids']" +
		"/technology[@name='cellulosic ethanol']/period[@year='2025']" +
		"/minicam-non-energy-input[@name='non-energy']/input-cost"

	require.NoError(t, env.base.Multiply("energy", selector, 2.0))
	require.NoError(t, env.cache.FlushAll())

	local, err := env.cache.Get(filepath.Join(env.base.Node().LocalDirAbs, "energy.xml"))
	require.NoError(t, err)
	assert.Equal(t, "20.0", local.Tree.FindElement(selector).Text())

	// The reference copy is untouched.
	data, err := os.ReadFile(filepath.Join(env.ws, "input", "xml", "energy.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<input-cost>10.0</input-cost>")

	// The config entry now points at the scenario-local copy.
	got, err := env.base.Components().Lookup("energy")
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(env.base.Node().LocalDirRel, "energy.xml")), got)
}

func TestChildInheritsParentEditAndOverrides(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	selector := "//technology[@name='cellulosic ethanol']/period[@year='2025']" +
		"/minicam-non-energy-input[@name='non-energy']/input-cost"

	require.NoError(t, env.base.Multiply("energy", selector, 2.0))
	require.NoError(t, env.cache.FlushAll())

	env.setupChild(t)
	require.NoError(t, env.child.Add("energy", selector, 5.0))
	require.NoError(t, env.cache.FlushAll())

	childDoc, err := env.cache.Get(filepath.Join(env.child.Node().LocalDirAbs, "energy.xml"))
	require.NoError(t, err)
	assert.Equal(t, "25.0", childDoc.Tree.FindElement(selector).Text())

	baseDoc, err := env.cache.Get(filepath.Join(env.base.Node().LocalDirAbs, "energy.xml"))
	require.NoError(t, err)
	assert.Equal(t, "20.0", baseDoc.Tree.FindElement(selector).Text())
}

func TestSetupDynamicLinksLocalFiles(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	_, _, err := env.base.LocalCopy("energy")
	require.NoError(t, err)
	require.NoError(t, env.cache.FlushAll())

	require.NoError(t, env.base.SetupDynamic())
	assert.Equal(t, DynamicSetupDone, env.base.State())

	link := filepath.Join(env.base.Node().DynDirAbs, "energy.xml")
	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.Equal(t, os.ModeSymlink, info.Mode()&os.ModeSymlink)
}

func TestSetupDynamicCopiesWhenConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.settings.CopyAllFiles = true
	env.base = NewEditor(env.settings, env.cache, env.base.Node(), "")
	env.setupBase(t)

	require.NoError(t, env.base.SetupDynamic())

	info, err := os.Lstat(filepath.Join(env.base.Node().DynDirAbs, "config.xml"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&os.ModeSymlink)
}

func TestSetStopPeriod(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	// A calendar year is converted using the timestep.
	require.NoError(t, env.base.SetStopPeriod(2050))
	doc, err := env.cache.Get(env.base.Node().ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "11", doc.Tree.FindElement("//Ints/Value[@name='stop-period']").Text())

	// A small value is a literal period index.
	require.NoError(t, env.base.SetStopPeriod(4))
	assert.Equal(t, "4", doc.Tree.FindElement("//Ints/Value[@name='stop-period']").Text())
}

func TestSetupStopPeriodViaOptions(t *testing.T) {
	env := newTestEnv(t)
	stopYear := 2030
	require.NoError(t, env.base.SetupStatic(SetupOptions{StopPeriod: &stopYear}))

	doc, err := env.cache.Get(env.base.Node().ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "7", doc.Tree.FindElement("//Ints/Value[@name='stop-period']").Text())
}

func TestSetClimateOutputIntervalInsertsWhenMissing(t *testing.T) {
	env := newTestEnv(t)
	env.setupBase(t)

	require.NoError(t, env.base.SetClimateOutputInterval(1))

	doc, err := env.cache.Get(env.base.Node().ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, "1", doc.Tree.FindElement("//Ints/Value[@name='climateOutputInterval']").Text())
}
