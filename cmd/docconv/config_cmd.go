package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(env *Environment) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `config prints the settings docconv would run with after merging, in order
of priority, command-line flags, DOCCONV_* environment variables, the
config file, and the built-in defaults.

The output is a valid config file:

  docconv config > docconv.yaml`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			out, err := env.Config.YAML()
			if err != nil {
				return fmt.Errorf("rendering config: %w", err)
			}
			_, err = env.Stdout.Write(out)
			return err
		},
	}
}
