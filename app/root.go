// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/daemon"
	"github.com/pkp/pkplib/internal/logger"
)

var (
	configPath string // directory holding main.toml

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "pkplib",
		Short: "pkplib runs the shared services of the PKP publishing applications",
		Long: `pkplib runs the shared services of the PKP publishing applications:
multilingual settings, submission search, navigation menus and the scheduled
tasks for DOI deposits, usage statistics and reports.`,
		Args:              cobra.OnlyValidArgs,
		SilenceUsage:      true,
		PersistentPreRunE: readConfig,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory holding main.toml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func readConfig(_ *cobra.Command, _ []string) error {
	var err error

	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	return logger.Init(cfg.Log)
}

// openServices builds the services for a one-shot command. The caller closes them.
func openServices() (*daemon.Services, error) {
	return daemon.Open(&cfg)
}
