// SPDX-License-Identifier: MPL-2.0

package scriptgen

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/modflow/modflow/internal/pipeline"
	"github.com/modflow/modflow/internal/scriptdir"
	"github.com/modflow/modflow/internal/testutil"
	"github.com/modflow/modflow/pkg/types"
)

func gzipBuild(inputs []string) ([][]string, error) {
	groups := make([][]string, 0, len(inputs))
	for _, in := range inputs {
		q, err := Quote(in)
		if err != nil {
			return nil, err
		}
		groups = append(groups, []string{"gzip -c " + q + " > " + q + ".gz"})
	}
	return groups, nil
}

func testModule(t *testing.T, batchSize int) *pipeline.Module {
	t.Helper()
	m := &pipeline.Module{
		ID:       "Gzip",
		Type:     "command",
		Output:   pipeline.OutputShell,
		Settings: pipeline.ScriptSettings{Permissions: "750", BatchSize: types.PositiveInt(batchSize), NumThreads: 4},
		Build:    gzipBuild,
	}
	if _, err := pipeline.NewRegistry(t.TempDir(), []*pipeline.Module{m}); err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return m
}

func TestBatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, size int
		want    []int
	}{
		{7, 3, []int{3, 3, 1}},
		{6, 3, []int{3, 3}},
		{1, 10, []int{1}},
		{0, 3, nil},
		{5, 1, []int{1, 1, 1, 1, 1}},
		{4, 0, nil},
	}

	for _, tt := range tests {
		inputs := make([]int, tt.n)
		for i := range inputs {
			inputs[i] = i
		}
		got := Batches(inputs, tt.size)
		var sizes []int
		var flat []int
		for _, b := range got {
			sizes = append(sizes, len(b))
			flat = append(flat, b...)
		}
		if !slices.Equal(sizes, tt.want) {
			t.Errorf("Batches(%d, %d) sizes = %v, want %v", tt.n, tt.size, sizes, tt.want)
		}
		if tt.size > 0 && !slices.Equal(flat, inputs) && tt.n > 0 {
			t.Errorf("Batches(%d, %d) lost order: %v", tt.n, tt.size, flat)
		}
	}
}

func TestRuntimeParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flag    string
		threads int
		params  []string
		want    string
	}{
		{"flag and params", "-p", 4, []string{"-i", "in.txt"}, "-p 4 -i in.txt"},
		{"flag only", "--threads", 8, nil, "--threads 8"},
		{"params only", "", 8, []string{"--fast"}, "--fast"},
		{"nothing", "", 2, nil, ""},
		{"blank params dropped", "-t", 1, []string{" ", "-q "}, "-t 1 -q"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := RuntimeParams(tt.flag, tt.threads, tt.params)
			if got != tt.want {
				t.Errorf("RuntimeParams() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateSevenInputsBatchThree(t *testing.T) {
	t.Parallel()

	m := testModule(t, 3)
	inputs := testutil.InputFiles(t, t.TempDir(), 7)

	set, err := New().Generate(m, inputs)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(set.Workers) != 3 {
		t.Fatalf("expected 3 workers, got %d", len(set.Workers))
	}
	var sizes []int
	for _, b := range set.Batches {
		sizes = append(sizes, len(b))
	}
	if !slices.Equal(sizes, []int{3, 3, 1}) {
		t.Errorf("batch sizes = %v, want [3 3 1]", sizes)
	}

	var drivers []string
	for _, name := range testutil.MustListDir(t, m.ScriptDir()) {
		if strings.HasPrefix(name, scriptdir.DriverPrefix) {
			drivers = append(drivers, name)
		}
	}
	if !slices.Equal(drivers, []string{"MAIN_0_Gzip.sh"}) {
		t.Fatalf("drivers = %v, want exactly MAIN_0_Gzip.sh", drivers)
	}

	driver := testutil.MustReadFile(t, set.Driver)
	for _, w := range []string{"0.0_Gzip.sh", "0.1_Gzip.sh", "0.2_Gzip.sh"} {
		if strings.Count(driver, w) != 1 {
			t.Errorf("driver should reference %s exactly once:\n%s", w, driver)
		}
	}

	last := testutil.MustReadFile(t, set.Workers[2])
	if !strings.Contains(last, "sample_006.fq") || strings.Contains(last, "sample_005.fq") {
		t.Errorf("last worker should hold only the seventh input:\n%s", last)
	}
	if !strings.HasPrefix(last, "#!/bin/bash\n") || !strings.Contains(last, "set -e") {
		t.Errorf("worker missing shebang or set -e:\n%s", last)
	}
}

func TestGenerateDriverMetadata(t *testing.T) {
	t.Parallel()

	m := testModule(t, 2)
	timeout := types.PositiveInt(30)
	m.Settings.Timeout = &timeout

	set, err := New().Generate(m, testutil.InputFiles(t, t.TempDir(), 3))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	driver := testutil.MustReadFile(t, set.Driver)
	for _, want := range []string{"# permissions: 750", "# threads: 4", "# timeout: 30 minutes", "NUM_THREADS=4", "wait"} {
		if !strings.Contains(driver, want) {
			t.Errorf("driver missing %q:\n%s", want, driver)
		}
	}

	info, err := os.Stat(set.Driver)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o750 {
		t.Errorf("driver mode = %o, want 750", info.Mode().Perm())
	}

	spec, err := ReadLaunchSpec(set.Dir)
	if err != nil {
		t.Fatalf("ReadLaunchSpec() error: %v", err)
	}
	if spec.Driver != set.Driver || spec.TimeoutMinutes != 30 || spec.Threads != 4 || len(spec.Workers) != 2 {
		t.Errorf("unexpected launch spec: %+v", spec)
	}
	if spec.Timeout().Minutes() != 30 {
		t.Errorf("Timeout() = %v", spec.Timeout())
	}

	path, ok, err := scriptdir.MainScript(m)
	if err != nil || !ok || path != set.Driver {
		t.Errorf("MainScript() = %q, %v, %v; want %q", path, ok, err, set.Driver)
	}
	params, err := JobParams(m)
	if err != nil || !slices.Equal(params, []string{set.Driver}) {
		t.Errorf("JobParams() = %v, %v", params, err)
	}
}

func TestGenerateUnboundedTimeout(t *testing.T) {
	t.Parallel()

	m := testModule(t, 5)
	set, err := New().Generate(m, testutil.InputFiles(t, t.TempDir(), 1))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.Contains(testutil.MustReadFile(t, set.Driver), "# timeout: unbounded") {
		t.Error("driver should record an unbounded timeout")
	}
	if set.Launch.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", set.Launch.Timeout())
	}
}

func TestGenerateNoInputs(t *testing.T) {
	t.Parallel()

	m := testModule(t, 3)
	set, err := New().Generate(m, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !set.Empty() {
		t.Error("expected empty script set")
	}
	if testutil.Exists(m.ScriptDir()) {
		t.Error("no script directory should be created without inputs")
	}
	if params, err := JobParams(m); params != nil || err != nil {
		t.Errorf("JobParams() = %v, %v", params, err)
	}
}

func TestGenerateBuildFailureLeavesNoScripts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build pipeline.BuildFunc
	}{
		{"error on second batch", func(in []string) ([][]string, error) {
			if strings.Contains(in[0], "sample_003") {
				return nil, errors.New("reference index missing")
			}
			return [][]string{{"true"}}, nil
		}},
		{"panic", func([]string) ([][]string, error) {
			panic("nil reference")
		}},
		{"invalid shell", func([]string) ([][]string, error) {
			return [][]string{{"if then fi ("}}, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := testModule(t, 3)
			m.Build = tt.build

			_, err := New().Generate(m, testutil.InputFiles(t, t.TempDir(), 7))
			if !errors.Is(err, ErrModuleBuild) {
				t.Fatalf("expected ErrModuleBuild, got %v", err)
			}
			var buildErr *ModuleBuildError
			if !errors.As(err, &buildErr) || buildErr.Module != "Gzip" {
				t.Errorf("unexpected error detail: %v", err)
			}
			if testutil.Exists(m.ScriptDir()) && len(testutil.MustListDir(t, m.ScriptDir())) > 0 {
				t.Errorf("script dir should be empty, has %v", testutil.MustListDir(t, m.ScriptDir()))
			}
		})
	}
}

func TestGenerateInvalidSettings(t *testing.T) {
	t.Parallel()

	m := testModule(t, 3)
	m.Settings.NumThreads = 0
	if _, err := New().Generate(m, []string{"a"}); !errors.Is(err, ErrModuleBuild) {
		t.Errorf("expected ErrModuleBuild, got %v", err)
	}
}

func TestGeneratePairedDispatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var inputs []string
	for _, name := range []string{"a_R1.fq", "a_R2.fq", "b_R1.fq", "b_R2.fq", "c_R1.fq", "c_R2.fq"} {
		p := filepath.Join(dir, name)
		testutil.MustTouch(t, p)
		inputs = append(inputs, p)
	}

	m := testModule(t, 2)
	var pairedCalls int
	m.BuildPaired = func(in []string) ([][]string, error) {
		pairedCalls++
		return [][]string{{"echo " + strings.Join(in, " ")}}, nil
	}

	set, err := New(WithPairedReads(true)).Generate(m, inputs)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if pairedCalls != 2 {
		t.Errorf("BuildPaired called %d times, want 2", pairedCalls)
	}
	if len(set.Batches) != 2 || len(set.Batches[0]) != 4 || len(set.Batches[1]) != 2 {
		t.Errorf("paired batches = %v", set.Batches)
	}
}

func TestPairReads(t *testing.T) {
	t.Parallel()

	got := PairReads([]string{"/in/s1_R1.fastq.gz", "/in/other.fq", "/in/s1_R2.fastq.gz", "/in/s2_1.fq", "/in/s2_2.fq"})
	want := [][]string{
		{"/in/s1_R1.fastq.gz", "/in/s1_R2.fastq.gz"},
		{"/in/other.fq"},
		{"/in/s2_1.fq", "/in/s2_2.fq"},
	}
	if len(got) != len(want) {
		t.Fatalf("PairReads() = %v", got)
	}
	for i := range want {
		if !slices.Equal(got[i], want[i]) {
			t.Errorf("unit %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	got, err := Quote("my sample.fq")
	if err != nil {
		t.Fatalf("Quote() error: %v", err)
	}
	if got != "'my sample.fq'" {
		t.Errorf("Quote() = %q", got)
	}
	if _, err := Quote("nul\x00byte"); err == nil {
		t.Error("expected error quoting a NUL byte")
	}
}
