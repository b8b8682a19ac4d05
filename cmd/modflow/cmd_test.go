// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/modflow/modflow/internal/issue"
	"github.com/modflow/modflow/internal/launcher"
	"github.com/modflow/modflow/internal/lifecycle"
	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptdir"
	"github.com/modflow/modflow/internal/scriptgen"
	"github.com/modflow/modflow/internal/testutil"
	"github.com/modflow/modflow/pkg/types"
)

const twoModules = `
	{type: "command", id: "Trim", command: "trim {input} {output_dir}"},
	{type: "command", id: "Align", command: "align {input} {output_dir}"},
`

// stubLauncher marks every worker successful, or failed when failing is
// set, and writes one output file per worker.
type stubLauncher struct {
	failing bool
}

func (s *stubLauncher) Name() string    { return "native" }
func (s *stubLauncher) Available() bool { return true }

func (s *stubLauncher) Launch(req *launcher.Request) *launcher.Result {
	spec, err := scriptgen.ReadLaunchSpec(req.Dir)
	if err != nil {
		return &launcher.Result{ExitCode: 1, Error: err}
	}
	outDir := filepath.Join(filepath.Dir(req.Dir), pipeline.OutputDirName)
	for i, worker := range spec.Workers {
		marker, content := worker+scriptdir.SuccessSuffix, ""
		if s.failing {
			marker, content = worker+scriptdir.FailureSuffix, "trim: input truncated\n"
		}
		if err := os.WriteFile(marker, []byte(content), 0o644); err != nil {
			return &launcher.Result{ExitCode: 1, Error: err}
		}
		out := filepath.Join(outDir, fmt.Sprintf("part_%d.fq", i))
		if err := os.WriteFile(out, []byte("data\n"), 0o644); err != nil {
			return &launcher.Result{ExitCode: 1, Error: err}
		}
	}
	return &launcher.Result{}
}

type testEnv struct {
	dir        string
	configPath string
	outputRoot string
	launcher   *stubLauncher
	stdout     bytes.Buffer
	stderr     bytes.Buffer
}

func newTestEnv(t *testing.T, modules string, inputs int) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "pipeline.cue"),
		outputRoot: filepath.Join(dir, "out"),
		launcher:   &stubLauncher{},
	}
	inputDir := filepath.Join(dir, "in")
	testutil.MustMkdirAll(t, inputDir, 0o755)
	testutil.InputFiles(t, inputDir, inputs)

	testutil.MustWriteFile(t, env.configPath, fmt.Sprintf(`
pipeline: {
	name:        "test"
	input_dir:   %q
	output_root: %q
}
script: {
	permissions: "750"
	batch_size:  2
	num_threads: 2
}
modules: [%s]
`, inputDir, env.outputRoot, modules))
	return env
}

// execute runs one command line against a fresh App and command tree.
func (e *testEnv) execute(args ...string) error {
	e.stdout.Reset()
	e.stderr.Reset()
	launchers := launcher.NewRegistry()
	launchers.Register(launcher.TypeNative, e.launcher)
	app := NewApp(Dependencies{
		Launchers: launchers,
		Clock:     testutil.NewFakeClock(time.Time{}),
		Stdout:    &e.stdout,
		Stderr:    &e.stderr,
	})
	root := NewRootCommand(app)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	return root.ExecuteContext(context.Background())
}

func requireExit(t *testing.T, err error, code types.ExitCode, id issue.Id) {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.Code != code {
		t.Errorf("exit code = %d, want %d (err: %v)", exitErr.Code, code, err)
	}
	if id == 0 {
		return
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want an ActionableError", err)
	}
	if ae.Issue != id {
		t.Errorf("issue = %d, want %d", ae.Issue, id)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, twoModules, 3)
	if err := env.execute("validate"); err != nil {
		t.Fatalf("validate error: %v", err)
	}
	out := env.stdout.String()
	for _, want := range []string{"is valid", "0_Trim", "1_Align"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if testutil.Exists(env.outputRoot) {
		t.Error("validate created the output root")
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modules string
		code    types.ExitCode
		issue   issue.Id
	}{
		{"missing prerequisite", `{type: "report"}`, types.ExitConfigInvalid, issue.MissingRequiredModuleId},
		{"prerequisite order", `{type: "report"}, {type: "count-parser"}`, types.ExitConfigInvalid, issue.PrerequisiteOrderId},
		{"unknown type", `{type: "bowtie"}`, types.ExitConfigInvalid, issue.ConfigFormatId},
		{"missing command", `{type: "command"}`, types.ExitConfigInvalid, issue.ConfigMissingId},
		{"no modules", ``, types.ExitConfigInvalid, issue.ConfigMissingId},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.modules, 1)
			requireExit(t, env.execute("validate"), tt.code, tt.issue)
		})
	}
}

func TestValidateMissingConfig(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, twoModules, 1)
	env.configPath = filepath.Join(env.dir, "missing.cue")
	requireExit(t, env.execute("validate"), types.ExitConfigInvalid, issue.ConfigMissingId)
}

func TestRunCompletes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, twoModules, 3)
	if err := env.execute("run"); err != nil {
		t.Fatalf("run error: %v\nstderr:\n%s", err, env.stderr.String())
	}
	out := env.stdout.String()
	if !strings.Contains(out, "Pipeline summary") || strings.Count(out, "✓ complete") != 2 {
		t.Errorf("summary:\n%s", out)
	}
	for _, name := range []string{"0_Trim", "1_Align"} {
		if !testutil.Exists(filepath.Join(env.outputRoot, name, lifecycle.CompleteMarker)) {
			t.Errorf("%s has no COMPLETE marker", name)
		}
	}
	if !strings.Contains(env.stderr.String(), "STARTING 0_Trim") {
		t.Errorf("log missing STARTING line:\n%s", env.stderr.String())
	}

	// A second run skips everything.
	if err := env.execute("run"); err != nil {
		t.Fatalf("second run error: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "already complete") {
		t.Errorf("second summary:\n%s", env.stdout.String())
	}
}

func TestRunWorkerFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, twoModules, 3)
	env.launcher.failing = true
	requireExit(t, env.execute("run"), types.ExitModuleIncomplete, issue.ScriptExecutionFailureId)

	if err := env.execute("errors", "Trim"); err != nil {
		t.Fatalf("errors command: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(env.stdout.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], ".sh.failed | trim: input truncated") {
		t.Errorf("failure report = %q", lines)
	}

	if err := env.execute("status", "-o", "yaml"); err != nil {
		t.Fatalf("status error: %v", err)
	}
	var status struct {
		Modules []struct {
			ID    string `yaml:"id"`
			State string `yaml:"state"`
		} `yaml:"modules"`
	}
	if err := yaml.Unmarshal(env.stdout.Bytes(), &status); err != nil {
		t.Fatalf("status output is not YAML: %v\n%s", err, env.stdout.String())
	}
	if len(status.Modules) != 2 ||
		status.Modules[0].State != "started-incomplete" ||
		status.Modules[1].State != "not-started" {
		t.Errorf("status = %+v", status.Modules)
	}
}

func TestRunUnknownLauncher(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, twoModules, 1)
	requireExit(t, env.execute("run", "--launcher", "slurm"), types.ExitFailure, issue.LauncherNotAvailableId)
	if testutil.Exists(env.outputRoot) {
		t.Error("run created the output root before selecting a launcher")
	}
}

func TestMainScript(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, twoModules, 3)
	if err := env.execute("main-script", "Trim"); err != nil {
		t.Fatalf("main-script error: %v", err)
	}
	if env.stdout.Len() != 0 || !strings.Contains(env.stderr.String(), "no executable work") {
		t.Errorf("before run: stdout %q, stderr %q", env.stdout.String(), env.stderr.String())
	}

	if err := env.execute("run"); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if err := env.execute("main-script", "Trim"); err != nil {
		t.Fatalf("main-script error: %v", err)
	}
	path := strings.TrimSpace(env.stdout.String())
	if filepath.Base(path) != "MAIN_0_Trim.sh" || !filepath.IsAbs(path) || !testutil.Exists(path) {
		t.Errorf("main-script = %q", path)
	}
}

func TestUnknownModule(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, twoModules, 1)
	for _, args := range [][]string{{"errors", "Sort"}, {"main-script", "Sort"}} {
		err := env.execute(args...)
		requireExit(t, err, types.ExitFailure, 0)
		if !strings.Contains(err.Error(), `no module "Sort"`) {
			t.Errorf("%v error = %v", args, err)
		}
	}
}

func TestConfigShow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, twoModules, 1)
	if err := env.execute("config", "show"); err != nil {
		t.Fatalf("config show error: %v", err)
	}
	out := env.stdout.String()
	for _, want := range []string{`name: "test"`, "batch_size: 2", `launcher: "native"`, `id: "Align"`} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}

	if err := env.execute("config", "path"); err != nil {
		t.Fatalf("config path error: %v", err)
	}
	if got := strings.TrimSpace(env.stdout.String()); got != env.configPath {
		t.Errorf("config path = %q, want %q", got, env.configPath)
	}
}

func TestExplain(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, twoModules, 1)
	if err := env.execute("explain", "config-missing", "--style", "notty"); err != nil {
		t.Fatalf("explain error: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "Configuration is missing") {
		t.Errorf("explain output:\n%s", env.stdout.String())
	}

	if err := env.execute("explain"); err != nil {
		t.Fatalf("explain list error: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "marker-io-failure") {
		t.Errorf("explain list:\n%s", env.stdout.String())
	}

	requireExit(t, env.execute("explain", "no-such-issue"), types.ExitFailure, 0)
}

func TestStatusUnknownFormat(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, twoModules, 1)
	if err := env.execute("status", "-o", "json"); err == nil {
		t.Error("status -o json succeeded, want error")
	}
}
