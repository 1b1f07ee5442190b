package main

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/categorizer/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/categorizer/internal/config"
)

const version = "1.0.0"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath  string
	catalogPath string
	debug       bool
}

// loadConfig loads the service config and applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := bootstrap.LoadConfig(bootstrap.ConfigPath(o.configPath))
	if err != nil {
		return nil, err
	}
	if o.catalogPath != "" {
		cfg.Catalog.Path = o.catalogPath
	}
	if o.debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "categorizer",
		Short:         "Warehouse data categorization and validation",
		Long:          `Classifies warehouse records and free text into categories, validates them and plans their storage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"service config file (default is $CONFIG_PATH or ./config.yml)")
	cmd.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "",
		"category configuration file (overrides catalog.path)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug mode")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("categorizer version %s\n", version)
		},
	})
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newClassifyCommand(opts))
	cmd.AddCommand(newCheckConfigCommand(opts))

	return cmd
}
