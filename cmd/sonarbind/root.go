package main

import (
	"sonarbind/internal/version"

	"github.com/spf13/cobra"
)

var (
	// configDirFlag is the directory holding sonarbind.{json,yaml}
	configDirFlag string
	// logLevelFlag overrides the configured log level
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "sonarbind",
	Short: "sonarbind - SonarQube/SonarCloud binding suggestion engine",
	Long: `sonarbind inspects workspace folders for scanner configuration files
(sonar-project.properties, .sonarcloud.properties), matches the clues they
carry against configured server connections and suggests which remote
project each folder should be bound to.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("sonarbind version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config", ".",
		"Directory containing the sonarbind configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, or error (overrides the config file)")
}
