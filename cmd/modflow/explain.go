// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modflow/modflow/internal/issue"
)

func newExplainCommand(app *App) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "explain [ISSUE]",
		Short: "Explain an error category",
		Long: `Explain an error category reported by modflow, with the likely causes and
what to try. Without an argument, list the known categories.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, i := range issue.Values() {
					fmt.Fprintln(app.stdout, CmdStyle.Render(i.Name()))
				}
				return nil
			}

			i := issue.ByName(args[0])
			if i == nil {
				return fail(issue.NewErrorContext().
					WithOperation("explain issue").
					WithResource(args[0]).
					WithSuggestion("Run 'modflow explain' to list the known issues").
					Wrap(fmt.Errorf("unknown issue %q", args[0])).
					BuildError(), "explain issue")
			}
			rendered, err := i.Render(style)
			if err != nil {
				return fail(err, "render issue")
			}
			fmt.Fprint(app.stdout, rendered)
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", "dark", "glamour style (dark, light, notty)")
	return cmd
}
