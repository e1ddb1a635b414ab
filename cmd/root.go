// Package cmd implements the scenforge command line.
package cmd

import (
	"os"

	charm "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/scenforge/scenforge/pkg/config"
	log "github.com/scenforge/scenforge/pkg/logger"
	"github.com/scenforge/scenforge/pkg/schema"
)

var (
	configFile string
	logLevel   string
)

// RootCmd is the top-level scenforge command.
var RootCmd = &cobra.Command{
	Use:           "scenforge",
	Short:         "Generate and customize model scenario configurations",
	Long:          "scenforge builds per-scenario configuration trees for the simulation model: it replicates the reference workspace, derives scenario configurations along a baseline hierarchy, and applies declarative edit operations to the XML inputs.",
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to scenforge.yaml (default: ./scenforge.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

// loadSettings loads settings and configures the global logger from them,
// with the --log-level flag taking precedence over the config file.
func loadSettings() (schema.Settings, error) {
	settings, err := config.LoadSettings(configFile)
	if err != nil {
		return schema.Settings{}, err
	}

	level := settings.Logs.Level
	if logLevel != "" {
		level = logLevel
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return schema.Settings{}, err
	}

	out := os.Stderr
	if settings.Logs.File != "" {
		f, err := os.OpenFile(settings.Logs.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return schema.Settings{}, err
		}
		out = f
	}

	logger := log.NewLogger(charm.NewWithOptions(out, charm.Options{
		Level:           parsed,
		ReportTimestamp: false,
	}))
	log.SetDefault(logger)

	return settings, nil
}
