// Package schema holds the shared configuration structures for scenforge:
// program settings loaded by pkg/config and scenario-group definitions
// loaded from YAML setup files.
package schema

// Settings is the top-level program configuration.
type Settings struct {
	// ReferenceWorkspace is the read-only root tree of model defaults.
	// Files under it are copy sources, never write targets.
	ReferenceWorkspace string `yaml:"reference_workspace" mapstructure:"reference_workspace"`

	// ReferenceConfig is the model's default top-level configuration
	// document, cloned for baseline scenarios that have no parent.
	ReferenceConfig string `yaml:"reference_config" mapstructure:"reference_config"`

	// ScenarioRoot is the output tree under which local-xml and dyn-xml
	// scenario directories are created.
	ScenarioRoot string `yaml:"scenario_root" mapstructure:"scenario_root"`

	// SourceRoot holds per-scenario fully-custom static XML files, grouped
	// as <SourceRoot>/<group>/<scenario>/*.xml.
	SourceRoot string `yaml:"source_root" mapstructure:"source_root"`

	// ModelVersion is the semantic version of the target model. Behavior
	// gates are resolved against it per operation.
	ModelVersion string `yaml:"model_version" mapstructure:"model_version"`

	// Timestep is the model period length in years. Default 5.
	Timestep int `yaml:"timestep" mapstructure:"timestep"`

	// CopyAllFiles copies files into dynamic directories and workspaces
	// instead of symlinking them.
	CopyAllFiles bool `yaml:"copy_all_files" mapstructure:"copy_all_files"`

	// RequiredFiles lists paths (relative to the reference workspace) that
	// a private workspace needs.
	RequiredFiles []string `yaml:"required_files" mapstructure:"required_files"`

	// FilesToLink is the subset of RequiredFiles that is symlinked rather
	// than copied when populating a workspace.
	FilesToLink []string `yaml:"files_to_link" mapstructure:"files_to_link"`

	Logs LogsSettings `yaml:"logs" mapstructure:"logs"`
}

// LogsSettings configures the global logger.
type LogsSettings struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}

// ScenarioGroupFile is the root of a scenarios.yaml definition file.
type ScenarioGroupFile struct {
	Groups []ScenarioGroup `yaml:"groups"`
}

// ScenarioGroup is a named set of scenarios sharing one baseline.
type ScenarioGroup struct {
	Name      string        `yaml:"name"`
	Scenarios []ScenarioDef `yaml:"scenarios"`
}

// ScenarioDef defines one scenario: its identity, optional parent, and the
// ordered list of operations applied during setup.
type ScenarioDef struct {
	Name string `yaml:"name"`

	// Parent names the baseline this scenario derives from. Empty for
	// baselines.
	Parent string `yaml:"parent"`

	// Subdir overrides the source subdirectory name; defaults to Name.
	Subdir string `yaml:"subdir"`

	Operations []OperationCall `yaml:"operations"`
}

// OperationCall invokes a named operation with keyword arguments.
type OperationCall struct {
	Name string         `yaml:"name"`
	Args map[string]any `yaml:"args"`
}
