// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modflow/modflow/internal/issue"
	"github.com/modflow/modflow/internal/scriptgen"
)

func newMainScriptCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "main-script MODULE",
		Short: "Print the path of a module's driver script",
		Long: `Print the absolute path of the module's driver script. A module whose
scripts were generated from no inputs has no driver; that is reported on
stderr and is not an error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.open(cmd.Context())
			if err != nil {
				return fail(err, "load pipeline")
			}
			m, err := s.module(args[0])
			if err != nil {
				return fail(err, "find module")
			}
			params, err := scriptgen.JobParams(m)
			if err != nil {
				return fail(issue.WrapWithContext(err, "find driver script", m.ScriptDir()), "")
			}
			if len(params) == 0 {
				fmt.Fprintf(app.stderr, "%s has no executable work (run 'modflow explain %s')\n",
					m.DirName(), issue.Get(issue.NoExecutableWorkId).Name())
				return nil
			}
			fmt.Fprintln(app.stdout, params[0])
			return nil
		},
	}
}
