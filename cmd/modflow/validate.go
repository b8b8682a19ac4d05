// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and module dependencies",
		Long: `Check the pipeline configuration, build every module and verify that
required modules are present and prerequisites run first. Nothing is written
to the output root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.open(cmd.Context())
			if err != nil {
				return fail(err, "validate pipeline")
			}
			if _, err := app.selectLauncher(s.cfg, ""); err != nil {
				return fail(err, "select launcher")
			}

			w := app.stdout
			fmt.Fprintln(w, SuccessStyle.Render("✓")+" "+s.path+" is valid")
			fmt.Fprintln(w)
			for _, m := range s.registry.Modules() {
				fmt.Fprintf(w, "  %s %s\n", moduleColumnStyle.Render(CmdStyle.Render(m.DirName())), SubtitleStyle.Render(string(m.Type)))
			}
			return nil
		},
	}
}
