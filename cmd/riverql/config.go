package main

import (
	"github.com/spf13/cobra"

	"github.com/typester/riverql/internal/appconfig"
)

// loadConfig loads the configuration, letting the flags in keys override it.
func loadConfig(cmd *cobra.Command, opts *rootOptions, keys map[string]string) (appconfig.Config, error) {
	return appconfig.Load(appconfig.LoadOptions{
		Path:     opts.configPath,
		Flags:    cmd.Flags(),
		FlagKeys: keys,
	})
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, nil)
			if err != nil {
				return err
			}
			data, err := appconfig.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
