// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/modflow/modflow/internal/lifecycle"
	"github.com/modflow/modflow/internal/runner"
	"github.com/modflow/modflow/internal/watch"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

func newStatusCommand(app *App) *cobra.Command {
	var (
		output string
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the lifecycle state of every module",
		Long: `Show each module's lifecycle state, script counts and failure lines.
With --watch the status is printed again whenever a lifecycle marker or
worker status file changes under the output root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != outputText && output != outputYAML {
				return fmt.Errorf("unknown output format %q (want %s or %s)", output, outputText, outputYAML)
			}
			return showStatus(cmd.Context(), app, output, follow)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format (text, yaml)")
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "print the status again when markers change")
	return cmd
}

func showStatus(ctx context.Context, app *App, output string, follow bool) error {
	s, err := app.open(ctx)
	if err != nil {
		return fail(err, "load pipeline")
	}
	tracker := lifecycle.NewFS()

	show := func() error {
		sum, err := runner.Status(s.registry, tracker, app.Clock)
		if err != nil {
			return err
		}
		if output == outputYAML {
			data, err := yaml.Marshal(sum)
			if err != nil {
				return err
			}
			_, err = app.stdout.Write(data)
			return err
		}
		return renderSummary(app.stdout, "Pipeline status", sum)
	}
	if err := show(); err != nil {
		return fail(err, "read pipeline status")
	}
	if !follow {
		return nil
	}

	w, err := watch.New(watch.Config{
		Root:   s.registry.OutputRoot(),
		Logger: app.logger(),
		OnChange: func(context.Context, []string) error {
			fmt.Fprintln(app.stdout)
			return show()
		},
	})
	if err != nil {
		return fail(err, "watch output root")
	}
	return w.Run(ctx)
}
