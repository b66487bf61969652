package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(c *cli) *cobra.Command {
	var showSource bool

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the configuration after merging the config file, environment variables and flags. Passwords are redacted.`,
		Example: `  strata config show --source warehouse=postgres:postgres://app:pw@db/wh
  strata config show --from`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if showSource {
				if c.configPath != "" {
					fmt.Fprintf(out, "Config file: %s\n\n", c.configPath)
				} else {
					fmt.Fprintln(out, "Config file: (none, using defaults and environment)")
					fmt.Fprintln(out)
				}
			}

			data, err := yaml.Marshal(c.cfg.Redacted())
			if err != nil {
				return generalError("encoding configuration", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
	showCmd.Flags().BoolVar(&showSource, "from", false, "print which config file was read")

	configCmd.AddCommand(showCmd)
	return configCmd
}
