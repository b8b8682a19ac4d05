// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modflow/modflow/internal/launcher"
	"github.com/modflow/modflow/internal/lifecycle"
	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptdir"
	"github.com/modflow/modflow/internal/scriptgen"
	"github.com/modflow/modflow/internal/testutil"
	"github.com/modflow/modflow/pkg/types"
)

// fakeLauncher stands in for the driver: every worker listed in the launch
// metadata gets a success or failure file, and the module's output
// directory receives the files named by outputs.
type fakeLauncher struct {
	mu       sync.Mutex
	clock    *testutil.FakeClock
	exitCode int
	fail     map[string]int
	outputs  map[string][]string
	launched []string
}

func newFakeLauncher(clock *testutil.FakeClock) *fakeLauncher {
	return &fakeLauncher{clock: clock, fail: map[string]int{}, outputs: map[string][]string{}}
}

func (f *fakeLauncher) Name() string    { return "fake" }
func (f *fakeLauncher) Available() bool { return true }

func (f *fakeLauncher) Launch(req *launcher.Request) *launcher.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	spec, err := scriptgen.ReadLaunchSpec(req.Dir)
	if err != nil {
		return &launcher.Result{ExitCode: 1, Error: err}
	}
	f.launched = append(f.launched, spec.Module)
	if f.clock != nil {
		f.clock.Advance(90 * time.Second)
	}
	if f.exitCode != 0 {
		return &launcher.Result{ExitCode: f.exitCode}
	}

	outDir := filepath.Join(filepath.Dir(req.Dir), pipeline.OutputDirName)
	for i, worker := range spec.Workers {
		if failAt, ok := f.fail[spec.Module]; ok && failAt == i {
			content := fmt.Sprintf("%s: command failed\nexit status 1\n", filepath.Base(worker))
			if err := os.WriteFile(worker+scriptdir.FailureSuffix, []byte(content), 0o644); err != nil {
				return &launcher.Result{ExitCode: 1, Error: err}
			}
			continue
		}
		if err := os.WriteFile(worker+scriptdir.SuccessSuffix, nil, 0o644); err != nil {
			return &launcher.Result{ExitCode: 1, Error: err}
		}
	}

	names, ok := f.outputs[spec.Module]
	if !ok {
		for i := range spec.Workers {
			names = append(names, fmt.Sprintf("%s_%d.out", spec.Module, i))
		}
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("data\n"), 0o644); err != nil {
			return &launcher.Result{ExitCode: 1, Error: err}
		}
	}
	return &launcher.Result{}
}

func (f *fakeLauncher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.launched)
}

func echoBuild(inputs []string) ([][]string, error) {
	groups := make([][]string, 0, len(inputs))
	for _, in := range inputs {
		q, err := scriptgen.Quote(in)
		if err != nil {
			return nil, err
		}
		groups = append(groups, []string{"echo " + q})
	}
	return groups, nil
}

func testModule(id string) *pipeline.Module {
	return &pipeline.Module{
		ID:       pipeline.ModuleID(id),
		Type:     "command",
		Output:   pipeline.OutputShell,
		Settings: pipeline.ScriptSettings{Permissions: "750", BatchSize: 2, NumThreads: types.PositiveInt(4)},
		Build:    echoBuild,
	}
}

type fixture struct {
	inputDir string
	reg      *pipeline.Registry
	clock    *testutil.FakeClock
	tracker  lifecycle.Tracker
	launcher *fakeLauncher
}

func newFixture(t *testing.T, inputs int, modules ...*pipeline.Module) *fixture {
	t.Helper()
	base := t.TempDir()
	inputDir := filepath.Join(base, "input")
	testutil.MustMkdirAll(t, inputDir, 0o755)
	testutil.InputFiles(t, inputDir, inputs)

	reg, err := pipeline.NewRegistry(filepath.Join(base, "out"), modules)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	clock := testutil.NewFakeClock(time.Time{})
	return &fixture{
		inputDir: inputDir,
		reg:      reg,
		clock:    clock,
		tracker:  lifecycle.NewFS(lifecycle.WithClock(clock)),
		launcher: newFakeLauncher(clock),
	}
}

func (f *fixture) runner(opts ...Option) *Runner {
	opts = append([]Option{WithClock(f.clock)}, opts...)
	return New(f.reg, f.tracker, f.launcher, Inputs{Dir: f.inputDir, MetadataFile: "metadata.tsv"}, opts...)
}

func (f *fixture) state(t *testing.T, id string) lifecycle.State {
	t.Helper()
	s, err := f.tracker.State(f.reg.ByID(pipeline.ModuleID(id)))
	if err != nil {
		t.Fatalf("State(%s) error: %v", id, err)
	}
	return s
}

func TestRunCompletesEveryModule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3, testModule("Trim"), testModule("Align"))
	sum, err := f.runner().Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !sum.Complete() {
		t.Fatalf("Complete() = false, incomplete: %v", sum.Incomplete())
	}
	if got := f.launcher.calls(); !slices.Equal(got, []string{"Trim", "Align"}) {
		t.Errorf("launched = %v", got)
	}

	trim, align := sum.Modules[0], sum.Modules[1]
	if trim.Inputs != 3 || trim.Scripts.Workers != 2 || trim.Scripts.Succeeded != 2 {
		t.Errorf("Trim report = %+v", trim)
	}
	// Align reads Trim's two output files.
	if align.Inputs != 2 || align.Scripts.Workers != 1 {
		t.Errorf("Align report = %+v", align)
	}
	if trim.Runtime != "00 hours : 01 minutes : 30 seconds" {
		t.Errorf("Trim runtime = %q", trim.Runtime)
	}
	if sum.Elapsed != "00 hours : 03 minutes : 00 seconds" {
		t.Errorf("Elapsed = %q", sum.Elapsed)
	}

	for _, m := range f.reg.Modules() {
		if testutil.Exists(filepath.Join(m.Root(), lifecycle.StartedMarker)) {
			t.Errorf("%s still carries STARTED", m.ID)
		}
		if !testutil.Exists(filepath.Join(m.Root(), lifecycle.CompleteMarker)) {
			t.Errorf("%s has no COMPLETE marker", m.ID)
		}
	}
}

func TestRunSkipsCompleteModules(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3, testModule("Trim"), testModule("Align"))
	trim := f.reg.ByID("Trim")
	if err := f.tracker.MarkStarted(trim); err != nil {
		t.Fatal(err)
	}
	if err := f.tracker.MarkComplete(trim); err != nil {
		t.Fatal(err)
	}
	for i := range 5 {
		testutil.MustTouch(t, filepath.Join(trim.OutputDir(), fmt.Sprintf("s%d.out", i)))
	}

	sum, err := f.runner().Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := f.launcher.calls(); !slices.Equal(got, []string{"Align"}) {
		t.Errorf("launched = %v, want [Align]", got)
	}
	if !sum.Modules[0].Skipped || sum.Modules[0].Note != noteAlreadyComplete {
		t.Errorf("Trim report = %+v", sum.Modules[0])
	}
	if sum.Modules[1].Inputs != 5 || sum.Modules[1].Scripts.Workers != 3 {
		t.Errorf("Align report = %+v", sum.Modules[1])
	}
}

func TestRunWorkerFailureHaltsPass(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 4, testModule("Trim"), testModule("Align"))
	f.launcher.fail["Trim"] = 1

	sum, err := f.runner().Run(context.Background())
	if !errors.Is(err, ErrModuleFailed) {
		t.Fatalf("Run() error = %v, want ErrModuleFailed", err)
	}
	var failed *ModuleFailedError
	if !errors.As(err, &failed) || failed.Module != "Trim" || len(failed.Failures) != 2 {
		t.Errorf("ModuleFailedError = %+v", failed)
	}

	if got := f.state(t, "Trim"); got != lifecycle.StartedIncomplete {
		t.Errorf("Trim state = %v, want started-incomplete", got)
	}
	if got := f.state(t, "Align"); got != lifecycle.NotStarted {
		t.Errorf("Align state = %v, want not-started", got)
	}
	if got := f.launcher.calls(); !slices.Equal(got, []string{"Trim"}) {
		t.Errorf("launched = %v", got)
	}

	if len(sum.Modules) != 2 || sum.Modules[1].Note != noteNotReached {
		t.Fatalf("summary modules = %+v", sum.Modules)
	}
	trim := sum.Modules[0]
	if trim.Scripts.Failed != 1 || trim.Scripts.Succeeded != 1 || trim.Runtime == "" {
		t.Errorf("Trim report = %+v", trim)
	}
	if lines := sum.Failures(); len(lines) != 2 || !strings.HasPrefix(lines[0], "Trim: ") {
		t.Errorf("Failures() = %v", lines)
	}
	if !slices.Equal(sum.Incomplete(), []pipeline.ModuleID{"Trim", "Align"}) {
		t.Errorf("Incomplete() = %v", sum.Incomplete())
	}
}

func TestRunResumesAfterFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 4, testModule("Trim"), testModule("Align"))
	f.launcher.fail["Trim"] = 0
	if _, err := f.runner().Run(context.Background()); !errors.Is(err, ErrModuleFailed) {
		t.Fatalf("first Run() error = %v", err)
	}
	trim := f.reg.ByID("Trim")
	stale := filepath.Join(trim.OutputDir(), "stale.out")
	testutil.MustTouch(t, stale)

	delete(f.launcher.fail, "Trim")
	sum, err := f.runner().Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if sum.Modules[0].Note != notePreviousFailure {
		t.Errorf("Trim note = %q", sum.Modules[0].Note)
	}
	if testutil.Exists(stale) {
		t.Error("output of the failed run was not cleared")
	}
	failures, err := scriptdir.ModuleFailures(trim)
	if err != nil || len(failures) != 0 {
		t.Errorf("ModuleFailures() = %v, %v; want none", failures, err)
	}
	if !sum.Complete() {
		t.Errorf("Incomplete() = %v", sum.Incomplete())
	}
}

func TestRunRerunsInterruptedCompletion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, testModule("Trim"))
	trim := f.reg.ByID("Trim")
	testutil.MustTouch(t, filepath.Join(trim.Root(), lifecycle.StartedMarker))
	testutil.MustTouch(t, filepath.Join(trim.Root(), lifecycle.CompleteMarker))

	sum, err := f.runner().Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum.Modules[0].Note != notePreviousFailure {
		t.Errorf("Trim note = %q, want %q", sum.Modules[0].Note, notePreviousFailure)
	}
	if got := f.launcher.calls(); !slices.Equal(got, []string{"Trim"}) {
		t.Errorf("launched = %v", got)
	}
	if s := f.state(t, "Trim"); s != lifecycle.Complete {
		t.Errorf("Trim state = %v", s)
	}
}

func TestRunWithoutInputs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0, testModule("Trim"), testModule("Align"))
	sum, err := f.runner().Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if calls := f.launcher.calls(); len(calls) != 0 {
		t.Errorf("launched = %v, want none", calls)
	}
	for _, rep := range sum.Modules {
		if rep.State != lifecycle.Complete || rep.Note != noteNoWork {
			t.Errorf("%s report = %+v", rep.ID, rep)
		}
		path, ok, err := scriptdir.MainScript(f.reg.ByID(rep.ID))
		if err != nil || ok {
			t.Errorf("MainScript(%s) = %q, %v, %v; want no driver", rep.ID, path, ok, err)
		}
	}
}

func TestRunMarkerFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, testModule("Trim"))
	mem := lifecycle.NewMemory(f.clock)
	mem.FailOn(lifecycle.StartedMarker)
	f.tracker = mem

	_, err := f.runner().Run(context.Background())
	if !errors.Is(err, lifecycle.ErrMarkerIO) {
		t.Fatalf("Run() error = %v, want ErrMarkerIO", err)
	}
	if calls := f.launcher.calls(); len(calls) != 0 {
		t.Errorf("launched = %v, want none", calls)
	}
}

func TestRunCompleteMarkerFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, testModule("Trim"))
	mem := lifecycle.NewMemory(f.clock)
	mem.FailOn(lifecycle.CompleteMarker)
	f.tracker = mem

	_, err := f.runner().Run(context.Background())
	if !errors.Is(err, lifecycle.ErrMarkerIO) {
		t.Fatalf("Run() error = %v, want ErrMarkerIO", err)
	}
	if got := f.state(t, "Trim"); got != lifecycle.StartedIncomplete {
		t.Errorf("Trim state = %v, want started-incomplete", got)
	}
}

func TestRunBuildFailureHaltsPass(t *testing.T) {
	t.Parallel()

	broken := testModule("Broken")
	broken.Build = func([]string) ([][]string, error) { return nil, errors.New("missing reference index") }
	f := newFixture(t, 2, broken, testModule("Align"))

	sum, err := f.runner().Run(context.Background())
	var buildErr *scriptgen.ModuleBuildError
	if !errors.As(err, &buildErr) || buildErr.Module != "Broken" {
		t.Fatalf("Run() error = %v, want ModuleBuildError for Broken", err)
	}
	if got := f.state(t, "Broken"); got != lifecycle.StartedIncomplete {
		t.Errorf("Broken state = %v", got)
	}
	if calls := f.launcher.calls(); len(calls) != 0 {
		t.Errorf("launched = %v, want none", calls)
	}
	if sum.Modules[1].State != lifecycle.NotStarted {
		t.Errorf("Align report = %+v", sum.Modules[1])
	}
}

func TestRunLaunchFailureHaltsPass(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, testModule("Trim"), testModule("Align"))
	f.launcher.exitCode = 124

	_, err := f.runner().Run(context.Background())
	var launchErr *launcher.LaunchError
	if !errors.As(err, &launchErr) || launchErr.ExitCode != 124 {
		t.Fatalf("Run() error = %v, want LaunchError with status 124", err)
	}
	if got := f.state(t, "Trim"); got != lifecycle.StartedIncomplete {
		t.Errorf("Trim state = %v", got)
	}
}

func TestRunSkipsMetadataModuleForInputs(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3, testModule("Trim"), testModule("Annotate"), testModule("Align"))
	f.launcher.outputs["Annotate"] = []string{"metadata.tsv"}

	sum, err := f.runner().Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// Annotate reads Trim's two files; Align skips Annotate and reads them too.
	if sum.Modules[1].Inputs != 2 || sum.Modules[2].Inputs != 2 {
		t.Errorf("inputs = %d, %d; want 2, 2", sum.Modules[1].Inputs, sum.Modules[2].Inputs)
	}
}

func TestRunReadsParserOutputAcrossModules(t *testing.T) {
	t.Parallel()

	parser := testModule("Counts")
	parser.Capabilities = []pipeline.Capability{pipeline.CapabilityParser}
	summary := testModule("Summary")
	summary.InputFrom = pipeline.CapabilityParser
	f := newFixture(t, 3, parser, testModule("Filter"), summary)
	f.launcher.outputs["Counts"] = []string{"a.counts.tsv", "b.counts.tsv", "c.counts.tsv"}

	sum, err := f.runner().Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// Filter leaves two files of its own; Summary still reads the three tables.
	if sum.Modules[1].Inputs != 3 || sum.Modules[2].Inputs != 3 {
		t.Errorf("inputs = %d, %d; want 3, 3", sum.Modules[1].Inputs, sum.Modules[2].Inputs)
	}

	var scripts strings.Builder
	for _, name := range testutil.MustListDir(t, summary.ScriptDir()) {
		if strings.HasSuffix(name, pipeline.ShellExt) && !strings.HasPrefix(name, scriptdir.DriverPrefix) {
			scripts.WriteString(testutil.MustReadFile(t, filepath.Join(summary.ScriptDir(), name)))
		}
	}
	if !strings.Contains(scripts.String(), "b.counts.tsv") || strings.Contains(scripts.String(), "Filter_0.out") {
		t.Errorf("Summary workers read the wrong files:\n%s", scripts.String())
	}
}

func TestRunPairedReads(t *testing.T) {
	t.Parallel()

	m := testModule("Merge")
	var got [][]string
	m.BuildPaired = func(inputs []string) ([][]string, error) {
		got = append(got, inputs)
		return [][]string{{"echo pair"}}, nil
	}
	f := newFixture(t, 0, m)
	for _, name := range []string{"a_R1.fq", "a_R2.fq", "b_R1.fq", "b_R2.fq"} {
		testutil.MustTouch(t, filepath.Join(f.inputDir, name))
	}

	if _, err := f.runner(WithPairedReads(true)).Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// Batch size 2 counts pairs, so both pairs land in one worker.
	if len(got) != 1 || len(got[0]) != 4 {
		t.Errorf("paired build inputs = %v", got)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, testModule("Trim"), testModule("Align"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := f.runner().Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(sum.Modules) != 2 || sum.Modules[0].Note != noteNotReached {
		t.Errorf("summary = %+v", sum.Modules)
	}
	if got := f.state(t, "Trim"); got != lifecycle.NotStarted {
		t.Errorf("Trim state = %v", got)
	}
}

func TestStatusDoesNotModify(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2, testModule("Trim"), testModule("Align"))
	f.launcher.fail["Trim"] = 0
	if _, err := f.runner().Run(context.Background()); err == nil {
		t.Fatal("Run() succeeded, want worker failure")
	}
	trim := f.reg.ByID("Trim")
	before := testutil.MustListDir(t, trim.ScriptDir())
	f.clock.Advance(time.Hour)

	sum, err := Status(f.reg, f.tracker, f.clock)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	rep := sum.Modules[0]
	if rep.State != lifecycle.StartedIncomplete || len(rep.Failures) != 2 {
		t.Errorf("Trim status = %+v", rep)
	}
	if rep.Runtime != "01 hours : 01 minutes : 30 seconds" {
		t.Errorf("Trim runtime = %q", rep.Runtime)
	}
	if sum.Modules[1].State != lifecycle.NotStarted {
		t.Errorf("Align status = %+v", sum.Modules[1])
	}
	if _, ok := f.reg.ByID("Align").SubDir(pipeline.OutputDirName); ok {
		t.Error("Status() created Align's output directory")
	}
	if after := testutil.MustListDir(t, trim.ScriptDir()); !slices.Equal(before, after) {
		t.Errorf("script dir changed: %v -> %v", before, after)
	}
}
