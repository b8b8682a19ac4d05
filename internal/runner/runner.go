// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modflow/modflow/internal/launcher"
	"github.com/modflow/modflow/internal/lifecycle"
	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptdir"
	"github.com/modflow/modflow/internal/scriptgen"
)

const (
	noteAlreadyComplete = "already complete"
	notePreviousFailure = "previous run failed, rerun"
	noteNoWork          = "no executable work"
	noteNotReached      = "not reached"
)

// ErrModuleFailed is the sentinel error wrapped by ModuleFailedError.
var ErrModuleFailed = errors.New("module failed")

type (
	// Runner performs pipeline passes over one registry.
	Runner struct {
		registry *pipeline.Registry
		tracker  lifecycle.Tracker
		launcher launcher.Launcher
		inputs   Inputs
		paired   bool
		clock    lifecycle.Clock
		logger   *log.Logger
		stdout   io.Writer
		stderr   io.Writer
	}

	// Option configures a Runner.
	Option func(*Runner)

	// ModuleFailedError reports worker failures that left a module
	// started-incomplete.
	ModuleFailedError struct {
		Module   pipeline.ModuleID
		Failures []scriptdir.Failure
	}

	wallClock struct{}
)

// Error implements the error interface for ModuleFailedError.
func (e *ModuleFailedError) Error() string {
	return fmt.Sprintf("module %s: %d worker failure lines recorded", e.Module, len(e.Failures))
}

// Unwrap returns ErrModuleFailed for errors.Is() compatibility.
func (e *ModuleFailedError) Unwrap() error { return ErrModuleFailed }

func (wallClock) Now() time.Time { return time.Now() }

// WithPairedReads selects paired-read builds for the whole pass.
func WithPairedReads(paired bool) Option {
	return func(r *Runner) { r.paired = paired }
}

// WithClock sets the clock used for runtimes.
func WithClock(c lifecycle.Clock) Option {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithOutput routes driver output. nil writers discard it.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// New creates a Runner.
func New(reg *pipeline.Registry, tracker lifecycle.Tracker, l launcher.Launcher, inputs Inputs, opts ...Option) *Runner {
	r := &Runner{
		registry: reg,
		tracker:  tracker,
		launcher: l,
		inputs:   inputs,
		clock:    wallClock{},
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the modules in registry order. Complete modules are skipped.
// The first module that fails to build, launch or finish without worker
// failures halts the pass; its error is returned together with a summary
// covering every module.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := r.clock.Now()
	gen := scriptgen.New(scriptgen.WithPairedReads(r.paired), scriptgen.WithLogger(r.logger))
	sum := &Summary{OutputRoot: r.registry.OutputRoot()}

	modules := r.registry.Modules()
	for _, m := range modules {
		var (
			rep ModuleReport
			err error
		)
		if err = ctx.Err(); err == nil {
			rep, err = r.runModule(ctx, gen, m)
			sum.Modules = append(sum.Modules, rep)
		}
		if err != nil {
			r.logger.Error("pipeline halted", "module", m.ID, "err", err)
			for _, rest := range modules[len(sum.Modules):] {
				sum.Modules = append(sum.Modules, r.untouched(rest))
			}
			sum.Elapsed = lifecycle.FormatRuntime(r.clock.Now().Sub(start))
			return sum, err
		}
	}

	sum.Elapsed = lifecycle.FormatRuntime(r.clock.Now().Sub(start))
	r.logger.Info("pipeline complete", "modules", len(modules), "elapsed", sum.Elapsed)
	return sum, nil
}

func (r *Runner) runModule(ctx context.Context, gen *scriptgen.Generator, m *pipeline.Module) (ModuleReport, error) {
	rep := newReport(m)
	state, err := r.tracker.State(m)
	if err != nil {
		return rep, err
	}
	rep.State = state

	switch state {
	case lifecycle.Complete:
		r.logger.Info("module already complete, skipping", "module", m.ID)
		rep.Skipped = true
		rep.Note = noteAlreadyComplete
		rep.Scripts, err = scriptdir.Summarize(m)
		return rep, err
	case lifecycle.StartedIncomplete:
		r.logger.Warn("previous run of module failed, resetting", "module", m.ID)
		rep.Note = notePreviousFailure
		if err := reset(m); err != nil {
			return rep, &scriptgen.ModuleBuildError{Module: m.ID, Batch: -1, Err: err}
		}
	}

	if err := r.tracker.MarkStarted(m); err != nil {
		return rep, err
	}
	rep.State = lifecycle.StartedIncomplete

	if _, err := m.RequireSubDir(pipeline.OutputDirName); err != nil {
		return rep, &scriptgen.ModuleBuildError{Module: m.ID, Batch: -1, Err: err}
	}
	inputs, err := r.inputs.Resolve(r.registry, m)
	if err != nil {
		return rep, &scriptgen.ModuleBuildError{Module: m.ID, Batch: -1, Err: err}
	}
	rep.Inputs = len(inputs)

	set, err := gen.Generate(m, inputs)
	if err != nil {
		r.recordRuntime(&rep, m)
		return rep, err
	}
	if set.Empty() {
		r.logger.Info("module has no inputs", "module", m.ID)
		rep.Note = noteNoWork
		return rep, r.complete(&rep, m)
	}

	launchErr := r.launch(ctx, set)
	r.recordRuntime(&rep, m)
	if rep.Scripts, err = scriptdir.Summarize(m); err != nil {
		return rep, err
	}
	if rep.Failures, err = scriptdir.ModuleFailures(m); err != nil {
		return rep, err
	}
	if launchErr != nil {
		return rep, launchErr
	}
	if len(rep.Failures) > 0 {
		return rep, &ModuleFailedError{Module: m.ID, Failures: rep.Failures}
	}
	return rep, r.complete(&rep, m)
}

func (r *Runner) launch(ctx context.Context, set *scriptgen.ScriptSet) error {
	req, err := launcher.NewRequest(ctx, set.Dir)
	if err != nil {
		return &launcher.LaunchError{Launcher: r.launcher.Name(), Driver: set.Driver, ExitCode: -1, Err: err}
	}
	req.Stdout, req.Stderr = r.stdout, r.stderr
	r.logger.Debug("launching driver", "launcher", r.launcher.Name(), "driver", set.Driver, "timeout", req.Timeout)
	return r.launcher.Launch(req).Err(r.launcher, set.Driver)
}

// complete records the runtime while STARTED still exists, then marks m
// complete.
func (r *Runner) complete(rep *ModuleReport, m *pipeline.Module) error {
	r.recordRuntime(rep, m)
	if err := r.tracker.MarkComplete(m); err != nil {
		return err
	}
	rep.State = lifecycle.Complete
	r.logger.Info("module complete", "module", m.ID, "runtime", rep.Runtime)
	return nil
}

func (r *Runner) recordRuntime(rep *ModuleReport, m *pipeline.Module) {
	runtime, err := lifecycle.Runtime(r.tracker, m, r.clock)
	if err != nil {
		r.logger.Warn("module runtime unavailable", "module", m.ID, "err", err)
		return
	}
	rep.Runtime = runtime
}

func (r *Runner) untouched(m *pipeline.Module) ModuleReport {
	rep := newReport(m)
	rep.Note = noteNotReached
	if state, err := r.tracker.State(m); err == nil {
		rep.State = state
	}
	return rep
}

// reset clears what a failed or interrupted run left behind so the module
// reruns from scratch. A COMPLETE marker next to STARTED is stale and goes
// first, while STARTED still holds the module incomplete.
func reset(m *pipeline.Module) error {
	complete := filepath.Join(m.Root(), lifecycle.CompleteMarker)
	if err := os.Remove(complete); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reset module %s: %w", m.ID, err)
	}
	for _, dir := range []string{m.ScriptDir(), m.OutputDir()} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("reset module %s: %w", m.ID, err)
		}
	}
	return nil
}
