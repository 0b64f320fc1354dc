package main

import (
	"github.com/spf13/cobra"

	"pipeld/internal/config"
)

// loadConfig resolves the effective configuration: defaults, overlaid by the
// config file when one is given.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path == "" {
		return cfg, nil
	}
	loaded, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	return config.Merge(cfg, loaded), nil
}

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "pipeld",
		Short:         "Streaming pipeline graph daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (.toml, .yaml or .json)")

	rootCmd.AddCommand(newServeCommand(&configFlag))
	rootCmd.AddCommand(newValidateCommand(&configFlag))
	rootCmd.AddCommand(newConfigCommand(&configFlag))

	return rootCmd
}
