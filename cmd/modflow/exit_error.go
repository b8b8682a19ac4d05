// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/modflow/modflow/internal/config"
	"github.com/modflow/modflow/internal/issue"
	"github.com/modflow/modflow/internal/launcher"
	"github.com/modflow/modflow/internal/lifecycle"
	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/runner"
	"github.com/modflow/modflow/internal/scriptgen"
	"github.com/modflow/modflow/pkg/types"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// classify maps an error to the process exit code and the issue that
// explains it. Lifecycle marker failures are checked first: they mean the
// output root can no longer be trusted, whatever else went wrong.
func classify(err error) (types.ExitCode, issue.Id) {
	switch {
	case errors.Is(err, lifecycle.ErrMarkerIO):
		return types.ExitStateCorrupt, issue.MarkerIOFailureId
	case errors.Is(err, config.ErrConfigMissing):
		return types.ExitConfigInvalid, issue.ConfigMissingId
	case errors.Is(err, pipeline.ErrMissingRequiredModule):
		return types.ExitConfigInvalid, issue.MissingRequiredModuleId
	case errors.Is(err, pipeline.ErrPrerequisiteOrder):
		return types.ExitConfigInvalid, issue.PrerequisiteOrderId
	case errors.Is(err, config.ErrConfigFormat),
		errors.Is(err, pipeline.ErrInvalidModule),
		errors.Is(err, pipeline.ErrDuplicateModuleID),
		errors.Is(err, pipeline.ErrEmptyRegistry):
		return types.ExitConfigInvalid, issue.ConfigFormatId
	case errors.Is(err, launcher.ErrUnknownLauncher), errors.Is(err, errLauncherUnavailable):
		return types.ExitFailure, issue.LauncherNotAvailableId
	case errors.Is(err, scriptgen.ErrModuleBuild):
		return types.ExitModuleIncomplete, issue.ModuleBuildFailureId
	case errors.Is(err, runner.ErrModuleFailed):
		return types.ExitModuleIncomplete, issue.ScriptExecutionFailureId
	case errors.Is(err, launcher.ErrLaunch):
		return types.ExitModuleIncomplete, issue.ModuleIncompleteId
	default:
		return types.ExitFailure, 0
	}
}

// fail converts err into an ExitError carrying its exit code. Actionable
// errors without a linked issue get the one classify finds; other errors are
// wrapped with operation as context.
func fail(err error, operation string) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	code, id := classify(err)
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if ae.Issue == 0 {
			ae.Issue = id
		}
		return &ExitError{Code: code, Err: err}
	}
	return &ExitError{Code: code, Err: issue.NewErrorContext().
		WithOperation(operation).
		WithIssue(id).
		Wrap(err).
		BuildError()}
}
