package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	errUtils "github.com/scenforge/scenforge/errors"
	"github.com/scenforge/scenforge/pkg/config"
	log "github.com/scenforge/scenforge/pkg/logger"
	"github.com/scenforge/scenforge/pkg/scenario"
	"github.com/scenforge/scenforge/pkg/schema"
	"github.com/scenforge/scenforge/pkg/workspace"
	"github.com/scenforge/scenforge/pkg/xmldoc"
)

var (
	scenariosFile string
	groupName     string
	scenarioName  string
	stopYear      int
	skipStatic    bool
	skipDynamic   bool
	skipWorkspace bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Build scenario configuration trees from a scenario definition file",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		return runSetup(cmd, settings)
	},
}

func init() {
	setupCmd.Flags().StringVar(&scenariosFile, "scenarios", "scenarios.yaml", "scenario definition file")
	setupCmd.Flags().StringVar(&groupName, "group", "", "only process the named scenario group")
	setupCmd.Flags().StringVar(&scenarioName, "scenario", "", "only process the named scenario (its ancestors must already be built)")
	setupCmd.Flags().IntVar(&stopYear, "stop-year", 0, "limit the simulation horizon (a calendar year, or a period index below 1000)")
	setupCmd.Flags().BoolVar(&skipStatic, "skip-static", false, "skip static tree generation")
	setupCmd.Flags().BoolVar(&skipDynamic, "skip-dynamic", false, "skip dynamic tree generation")
	setupCmd.Flags().BoolVar(&skipWorkspace, "skip-workspace", false, "assume the run workspace already exists")

	RootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, settings schema.Settings) error {
	defs, err := config.LoadScenarioGroups(scenariosFile)
	if err != nil {
		return err
	}

	if !skipWorkspace {
		if err := workspace.Ensure(cmd.Context(), settings.ScenarioRoot, settings); err != nil {
			return err
		}
	}

	processed := 0
	for _, group := range defs.Groups {
		if groupName != "" && group.Name != groupName {
			continue
		}
		if err := setupGroup(settings, group); err != nil {
			return fmt.Errorf("group %q: %w", group.Name, err)
		}
		processed++
	}

	if processed == 0 {
		return fmt.Errorf("%w: no scenario group matched %q in %s",
			errUtils.ErrBadArgument, groupName, scenariosFile)
	}
	return nil
}

func setupGroup(settings schema.Settings, group schema.ScenarioGroup) error {
	hierarchy := scenario.NewHierarchy(settings.ScenarioRoot)
	for _, def := range group.Scenarios {
		if _, err := hierarchy.Add(def.Name, group.Name, def.Parent); err != nil {
			return err
		}
	}

	cache := xmldoc.NewCache()
	dispatcher := scenario.NewDispatcher()

	for _, def := range group.Scenarios {
		if scenarioName != "" && def.Name != scenarioName {
			continue
		}
		if err := setupScenario(settings, hierarchy, cache, dispatcher, def); err != nil {
			return fmt.Errorf("scenario %q: %w", def.Name, err)
		}
	}

	parses, writes := cache.Stats()
	log.Info("group complete", "group", group.Name, "parses", parses, "writes", writes)
	return nil
}

func setupScenario(settings schema.Settings, hierarchy *scenario.Hierarchy,
	cache *xmldoc.Cache, dispatcher *scenario.Dispatcher, def schema.ScenarioDef) error {

	node, err := hierarchy.Lookup(def.Name)
	if err != nil {
		return err
	}
	editor := scenario.NewEditor(settings, cache, node, def.Subdir)

	opts := scenario.SetupOptions{}
	if stopYear > 0 {
		opts.StopPeriod = &stopYear
	}

	if !skipStatic {
		if err := editor.SetupStatic(opts); err != nil {
			return err
		}
	}

	if err := dispatcher.Run(editor, def.Operations); err != nil {
		return err
	}

	if !skipDynamic {
		if err := editor.SetupDynamic(); err != nil {
			return err
		}
	}

	// One write per touched document, after all edits.
	return cache.FlushAll()
}
