// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/modflow/modflow/internal/lifecycle"
	"github.com/modflow/modflow/internal/runner"
	"github.com/modflow/modflow/pkg/types"
)

func newRunCommand(app *App) *cobra.Command {
	var launcherName string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every module that is not complete",
		Long: `Run the pipeline in module order.

Complete modules are skipped. A module left started-incomplete by an earlier
run is cleared and rerun. The first module whose scripts fail to build, whose
driver fails, or whose workers record failures halts the run; fix the cause
and run again to resume from it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, app, launcherName)
		},
	}
	cmd.Flags().StringVar(&launcherName, "launcher", "", "launcher override (native, virtual)")
	return cmd
}

func runPipeline(cmd *cobra.Command, app *App, launcherName string) error {
	s, err := app.open(cmd.Context())
	if err != nil {
		return fail(err, "load pipeline")
	}
	l, err := app.selectLauncher(s.cfg, launcherName)
	if err != nil {
		return fail(err, "select launcher")
	}

	logger := app.logger()
	tracker := lifecycle.NewFS(lifecycle.WithLogger(logger), lifecycle.WithClock(app.Clock))
	r := runner.New(s.registry, tracker, l, runner.InputsFromConfig(s.cfg.Pipeline),
		runner.WithPairedReads(s.cfg.Pipeline.PairedReads),
		runner.WithClock(app.Clock),
		runner.WithLogger(logger),
		runner.WithOutput(app.stdout, app.stderr),
	)
	logger.Info("starting pipeline", "name", s.cfg.Pipeline.Name, "modules", s.registry.Len(), "launcher", l.Name())

	sum, runErr := r.Run(cmd.Context())
	if sum != nil {
		if err := renderSummary(app.stdout, "Pipeline summary", sum); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fail(runErr, "run pipeline")
	}
	if !sum.Complete() {
		return &ExitError{Code: types.ExitModuleIncomplete}
	}
	return nil
}
