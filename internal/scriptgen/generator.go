// SPDX-License-Identifier: MPL-2.0

package scriptgen

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptdir"
)

// ErrModuleBuild is the sentinel error wrapped by ModuleBuildError.
var ErrModuleBuild = errors.New("module build failure")

type (
	// Generator writes worker and driver scripts for modules. Paired-read
	// mode is fixed for the lifetime of a Generator, which matches one
	// pipeline pass.
	Generator struct {
		pairedReads bool
		logger      *log.Logger
	}

	// Option configures a Generator.
	Option func(*Generator)

	// ScriptSet describes the scripts written for one module.
	ScriptSet struct {
		Module pipeline.ModuleID
		// Dir is the absolute script directory.
		Dir string
		// Driver is the absolute driver path; empty when there were no inputs.
		Driver string
		// Workers holds absolute worker paths, one per batch, in batch order.
		Workers []string
		// Batches holds the input files of each worker.
		Batches [][]string
		// Launch is the metadata written for the launcher.
		Launch LaunchSpec
	}

	// ModuleBuildError reports a failure to build a module's scripts. Batch is
	// the zero-based batch whose build failed, or -1 when the failure is not
	// tied to one batch.
	ModuleBuildError struct {
		Module pipeline.ModuleID
		Batch  int
		Err    error
	}

	pendingFile struct {
		path    string
		content string
		mode    os.FileMode
	}
)

// Error implements the error interface for ModuleBuildError.
func (e *ModuleBuildError) Error() string {
	if e.Batch >= 0 {
		return fmt.Sprintf("build scripts for module %s (batch %d): %v", e.Module, e.Batch, e.Err)
	}
	return fmt.Sprintf("build scripts for module %s: %v", e.Module, e.Err)
}

// Unwrap returns ErrModuleBuild for errors.Is() compatibility.
func (e *ModuleBuildError) Unwrap() error { return ErrModuleBuild }

// WithPairedReads selects the paired-read build routine of every module.
func WithPairedReads(paired bool) Option {
	return func(g *Generator) { g.pairedReads = paired }
}

// WithLogger sets the logger for generation progress.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Empty reports whether no work was generated.
func (s *ScriptSet) Empty() bool { return s.Driver == "" }

// Generate partitions inputs into batches of the module's batch size, builds
// one worker script per batch and one driver script, and writes them to the
// module's script directory together with the launch metadata.
//
// Every batch is built and rendered before anything is written, so a build
// failure leaves no scripts behind. Zero inputs produce an empty ScriptSet
// and no files.
func (g *Generator) Generate(m *pipeline.Module, inputs []string) (*ScriptSet, error) {
	if valid, errs := m.Settings.IsValid(); !valid {
		return nil, &ModuleBuildError{Module: m.ID, Batch: -1, Err: errors.Join(errs...)}
	}

	set := &ScriptSet{Module: m.ID}
	units := singleUnits(inputs)
	if g.pairedReads {
		units = PairReads(inputs)
	}
	unitBatches := Batches(units, m.Settings.BatchSize.Int())
	if len(unitBatches) == 0 {
		g.logger.Debug("no inputs, no scripts generated", "module", m.ID)
		return set, nil
	}

	dir, err := filepath.Abs(m.ScriptDir())
	if err != nil {
		return nil, &ModuleBuildError{Module: m.ID, Batch: -1, Err: err}
	}
	set.Dir = dir

	mode, err := m.Settings.Permissions.FileMode()
	if err != nil {
		return nil, &ModuleBuildError{Module: m.ID, Batch: -1, Err: err}
	}

	build := m.BuildFor(g.pairedReads)
	width := len(strconv.Itoa(len(unitBatches) - 1))
	files := make([]pendingFile, 0, len(unitBatches)+2)
	for i, ub := range unitBatches {
		batch := flatten(ub)
		groups, err := safeBuild(build, batch)
		if err != nil {
			return nil, &ModuleBuildError{Module: m.ID, Batch: i, Err: err}
		}
		content, err := renderWorker(m, i, len(unitBatches), flatten(groups))
		if err != nil {
			return nil, &ModuleBuildError{Module: m.ID, Batch: i, Err: err}
		}
		name := fmt.Sprintf("%s.%0*d_%s%s", m.Ordinal(), width, i, m.ID, m.WorkerExt())
		path := filepath.Join(dir, name)
		files = append(files, pendingFile{path: path, content: content, mode: mode})
		set.Workers = append(set.Workers, path)
		set.Batches = append(set.Batches, batch)
	}

	driver, err := renderDriver(m, set.Workers)
	if err != nil {
		return nil, &ModuleBuildError{Module: m.ID, Batch: -1, Err: err}
	}
	set.Driver = filepath.Join(dir, DriverName(m))
	files = append(files, pendingFile{path: set.Driver, content: driver, mode: mode})

	set.Launch = LaunchSpec{
		Module:      string(m.ID),
		Driver:      set.Driver,
		Permissions: m.Settings.Permissions.String(),
		Threads:     m.Settings.NumThreads.Int(),
		Workers:     set.Workers,
	}
	if m.Settings.Timeout != nil {
		set.Launch.TimeoutMinutes = m.Settings.Timeout.Int()
	}
	if m.Output == pipeline.OutputInterpreted {
		set.Launch.Interpreter = m.Interpreter.Command
	}
	meta, err := encodeLaunchSpec(set.Launch)
	if err != nil {
		return nil, &ModuleBuildError{Module: m.ID, Batch: -1, Err: err}
	}
	files = append(files, pendingFile{path: filepath.Join(dir, scriptdir.LaunchFile), content: string(meta), mode: 0o644})

	if _, err := m.RequireSubDir(pipeline.ScriptDirName); err != nil {
		return nil, &ModuleBuildError{Module: m.ID, Batch: -1, Err: err}
	}
	if err := writeAll(files); err != nil {
		return nil, &ModuleBuildError{Module: m.ID, Batch: -1, Err: err}
	}

	g.logger.Info("generated scripts", "module", m.ID, "workers", len(set.Workers), "inputs", len(inputs))
	return set, nil
}

// DriverName returns the base name of m's driver script.
func DriverName(m *pipeline.Module) string {
	return scriptdir.DriverPrefix + "_" + m.Ordinal() + "_" + string(m.ID) + pipeline.ShellExt
}

// JobParams returns the launcher arguments for m: the absolute path of its
// driver script. It returns nil when the module produced no executable work.
func JobParams(m *pipeline.Module) ([]string, error) {
	driver, ok, err := scriptdir.MainScript(m)
	if err != nil || !ok {
		return nil, err
	}
	abs, err := filepath.Abs(driver)
	if err != nil {
		return nil, err
	}
	return []string{abs}, nil
}

// safeBuild calls build and converts a panic into an error so one broken
// module cannot take down the pipeline process.
func safeBuild(build pipeline.BuildFunc, batch []string) (groups [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build capability panicked: %v", r)
		}
	}()
	return build(batch)
}

// writeAll writes files in order and removes every file it wrote if any
// write fails, so no driver is left referencing missing workers.
func writeAll(files []pendingFile) (err error) {
	var written []string
	defer func() {
		if err == nil {
			return
		}
		for _, p := range written {
			_ = os.Remove(p)
		}
	}()
	for _, f := range files {
		if err := os.WriteFile(f.path, []byte(f.content), f.mode); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
		}
		written = append(written, f.path)
		// WriteFile honors the umask; chmod applies the configured mode exactly.
		if err := os.Chmod(f.path, f.mode); err != nil {
			return fmt.Errorf("chmod %s: %w", filepath.Base(f.path), err)
		}
	}
	return nil
}

func flatten(groups [][]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
