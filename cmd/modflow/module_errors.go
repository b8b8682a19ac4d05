// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modflow/modflow/internal/issue"
	"github.com/modflow/modflow/internal/scriptdir"
)

func newErrorsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "errors MODULE",
		Short: "Print the failure report of one module",
		Long: `Print every line of every worker failure file in the module's script
directory as "file | line", in directory listing order.`,
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
			failures, err := scriptdir.ModuleFailures(m)
			if err != nil {
				return fail(issue.WrapWithContext(err, "read failure report", m.ScriptDir()), "")
			}
			if len(failures) == 0 {
				fmt.Fprintln(app.stderr, SubtitleStyle.Render("no failures recorded for "+m.DirName()))
				return nil
			}
			for _, f := range failures {
				fmt.Fprintln(app.stdout, f.String())
			}
			return nil
		},
	}
}
