// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modflow/modflow/internal/config"
)

// newConfigCommand creates the `modflow config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the pipeline configuration",
		Long: `Inspect the pipeline configuration.

The configuration is read from the file given with --config, or from
pipeline.cue in the current directory. Any pipeline.* or script.* key can be
overridden from the environment, e.g. MODFLOW_SCRIPT_BATCH_SIZE=20.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		Long: `Print the configuration after defaults and environment overrides are
applied, rendered as CUE that loads back to the same settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.load(cmd.Context())
			if err != nil {
				return fail(err, "load configuration")
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(app.stdout, app.loadOptions().Path())
			return nil
		},
	})

	return cfgCmd
}
